package controllers

import (
	"errors"
	"net/http"
	"strings"

	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateRenterInput defines the expected JSON structure for creating a renter
type CreateRenterInput struct {
	FullName               string `json:"fullName" binding:"required"`
	Email                  string `json:"email"`
	PhoneNumber            string `json:"phoneNumber" binding:"required"`
	NotificationPreference string `json:"notificationPreference" binding:"omitempty,oneof=none email whatsapp both"`
}

// UpdatePreferencesInput defines the expected JSON structure for contact updates
type UpdatePreferencesInput struct {
	Email                  *string `json:"email"`
	PhoneNumber            *string `json:"phoneNumber"`
	NotificationPreference *string `json:"notificationPreference" binding:"omitempty,oneof=none email whatsapp both"`
}

// RenterController exposes the renter contact data the ledger notifies.
type RenterController struct {
	DB *gorm.DB
}

// CreateRenter handles renter creation
func (rc *RenterController) CreateRenter(c *gin.Context) {
	var input CreateRenterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if !utils.ValidatePhone(input.PhoneNumber) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}
	email := strings.TrimSpace(input.Email)
	if email != "" && !utils.ValidateEmail(email) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid email address")
		return
	}
	phone := utils.NormalizePhone(input.PhoneNumber)

	var count int64
	rc.DB.Model(&models.Renter{}).Where("phone_number = ?", phone).Count(&count)
	if count > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Renter with this phone number already exists")
		return
	}

	renter := models.Renter{
		FullName:               strings.TrimSpace(input.FullName),
		Email:                  email,
		PhoneNumber:            phone,
		NotificationPreference: models.PreferNone,
		Status:                 models.RenterProspective,
	}
	if input.NotificationPreference != "" {
		renter.NotificationPreference = models.NotificationPreference(input.NotificationPreference)
	}

	if err := rc.DB.Create(&renter).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.RespondWithError(c, http.StatusConflict, "Renter with this phone number already exists")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create renter")
		return
	}

	c.JSON(http.StatusCreated, renter)
}

// GetRenters lists renters, optionally filtered by status
func (rc *RenterController) GetRenters(c *gin.Context) {
	q := rc.DB.Model(&models.Renter{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR phone_number LIKE ?", like, like)
	}

	var renters []models.Renter
	if err := q.Order("full_name asc").Find(&renters).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve renters")
		return
	}
	c.JSON(http.StatusOK, renters)
}

// GetRenter retrieves a renter with their leases
func (rc *RenterController) GetRenter(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var renter models.Renter
	if err := rc.DB.Preload("Leases").First(&renter, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Renter not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"renter": renter,
		"leases": renter.Leases,
	})
}

// UpdatePreferences changes how and where a renter is notified
func (rc *RenterController) UpdatePreferences(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input UpdatePreferencesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var renter models.Renter
	if err := rc.DB.First(&renter, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Renter not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	updates := map[string]interface{}{}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email != "" && !utils.ValidateEmail(email) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid email address")
			return
		}
		updates["email"] = email
	}
	if input.PhoneNumber != nil {
		if !utils.ValidatePhone(*input.PhoneNumber) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		phone := utils.NormalizePhone(*input.PhoneNumber)
		var count int64
		rc.DB.Model(&models.Renter{}).Where("phone_number = ? AND id <> ?", phone, renter.ID).Count(&count)
		if count > 0 {
			utils.RespondWithError(c, http.StatusConflict, "Renter with this phone number already exists")
			return
		}
		updates["phone_number"] = phone
	}
	if input.NotificationPreference != nil {
		updates["notification_preference"] = *input.NotificationPreference
	}
	if len(updates) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "No changes supplied")
		return
	}

	if err := rc.DB.Model(&renter).Updates(updates).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update renter")
		return
	}
	if err := rc.DB.First(&renter, id).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	c.JSON(http.StatusOK, renter)
}
