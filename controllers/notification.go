// controllers/notification.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"rentledger-backend/models"
	"rentledger-backend/services"
	"rentledger-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateTemplateInput defines the expected JSON structure
type CreateTemplateInput struct {
	Kind    string `json:"kind" binding:"required,oneof=invoice_created payment_received rent_reminder overdue_notice"`
	Channel string `json:"channel" binding:"required,oneof=email whatsapp"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

// UpdateTemplateInput defines the expected JSON structure
type UpdateTemplateInput struct {
	Subject  *string `json:"subject"`
	Body     *string `json:"body"`
	IsActive *bool   `json:"isActive"`
}

// NotificationController exposes delivery logs and message templates.
type NotificationController struct {
	DB       *gorm.DB
	Notifier *services.NotificationService
	Ledger   *services.Ledger
}

// GetNotifications lists delivery attempts, newest first
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	invoiceID, ok := queryID(c, "invoice_id")
	if !ok {
		return
	}
	renterID, ok := queryID(c, "renter_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := nc.Notifier.ListLogs(c.Request.Context(), services.NotificationFilter{
		InvoiceID: invoiceID,
		RenterID:  renterID,
		Status:    c.Query("status"),
		Limit:     limit,
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": logs})
}

// SendOverdueNotices runs the overdue notice job on demand
func (nc *NotificationController) SendOverdueNotices(c *gin.Context) {
	result, err := nc.Ledger.SendOverdueNotices(c.Request.Context())
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateTemplate stores a message override for a kind and channel
func (nc *NotificationController) CreateTemplate(c *gin.Context) {
	var input CreateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// One template per kind and channel
	var existing models.NotificationTemplate
	if err := nc.DB.Where("kind = ? AND channel = ?", input.Kind, input.Channel).
		First(&existing).Error; err == nil {
		utils.RespondWithError(c, http.StatusConflict, "Template for this kind and channel already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	template := models.NotificationTemplate{
		Kind:     models.NotificationKind(input.Kind),
		Channel:  models.NotificationChannel(input.Channel),
		Subject:  input.Subject,
		Body:     input.Body,
		IsActive: true,
	}
	if err := nc.DB.Create(&template).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create template")
		return
	}

	c.JSON(http.StatusCreated, template)
}

// GetTemplates retrieves all message templates
func (nc *NotificationController) GetTemplates(c *gin.Context) {
	var templates []models.NotificationTemplate
	if err := nc.DB.Order("kind, channel").Find(&templates).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve templates")
		return
	}
	c.JSON(http.StatusOK, templates)
}

// UpdateTemplate changes the text or active flag of a template
func (nc *NotificationController) UpdateTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input UpdateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var template models.NotificationTemplate
	if err := nc.DB.First(&template, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Template not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Subject != nil {
		template.Subject = *input.Subject
	}
	if input.Body != nil {
		if *input.Body == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Template body cannot be empty")
			return
		}
		template.Body = *input.Body
	}
	if input.IsActive != nil {
		template.IsActive = *input.IsActive
	}

	if err := nc.DB.Save(&template).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update template")
		return
	}

	c.JSON(http.StatusOK, template)
}

// DeleteTemplate removes an override so the built-in message is used again
func (nc *NotificationController) DeleteTemplate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result := nc.DB.Unscoped().Delete(&models.NotificationTemplate{}, id)
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Template not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Template deleted successfully"})
}
