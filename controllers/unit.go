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

// CreateUnitInput defines the expected JSON structure for creating a unit
type CreateUnitInput struct {
	Name string `json:"name" binding:"required"`
}

// UpdateUnitInput lets staff take a vacant unit in and out of maintenance
type UpdateUnitInput struct {
	Name   *string `json:"name"`
	Status *string `json:"status" binding:"omitempty,oneof=vacant maintenance"`
}

type UnitController struct {
	DB *gorm.DB
}

// CreateUnit adds a rentable unit
func (uc *UnitController) CreateUnit(c *gin.Context) {
	var input CreateUnitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	unit := models.Unit{Name: strings.TrimSpace(input.Name), Status: models.UnitVacant}
	if err := uc.DB.Create(&unit).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create unit")
		return
	}
	c.JSON(http.StatusCreated, unit)
}

// GetUnits lists units, optionally filtered by status
func (uc *UnitController) GetUnits(c *gin.Context) {
	q := uc.DB.Model(&models.Unit{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var units []models.Unit
	if err := q.Order("name asc").Find(&units).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve units")
		return
	}
	c.JSON(http.StatusOK, units)
}

// UpdateUnit renames a unit or changes its availability. Occupancy is only
// changed by lease activation and termination.
func (uc *UnitController) UpdateUnit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input UpdateUnitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var unit models.Unit
	if err := uc.DB.First(&unit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Unit not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Status != nil {
		if unit.Status == models.UnitOccupied {
			utils.RespondWithError(c, http.StatusConflict, "Unit is occupied by an active lease")
			return
		}
		unit.Status = models.UnitStatus(*input.Status)
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		unit.Name = strings.TrimSpace(*input.Name)
	}

	if err := uc.DB.Save(&unit).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update unit")
		return
	}
	c.JSON(http.StatusOK, unit)
}
