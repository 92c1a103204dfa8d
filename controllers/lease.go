package controllers

import (
	"net/http"
	"time"

	"rentledger-backend/services"
	"rentledger-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateLeaseInput defines the expected JSON structure for creating a lease
type CreateLeaseInput struct {
	RenterID        uint    `json:"renterId" binding:"required"`
	UnitID          uint    `json:"unitId" binding:"required"`
	StartDate       string  `json:"startDate" binding:"required"`
	EndDate         *string `json:"endDate"`
	RentAmount      string  `json:"rentAmount" binding:"required"`
	SecurityDeposit string  `json:"securityDeposit"`
	Activate        bool    `json:"activate"`
}

// LeaseController drives the lease lifecycle through the ledger.
type LeaseController struct {
	Ledger *services.Ledger
}

// CreateLease stores a draft lease, activating it when asked
func (lc *LeaseController) CreateLease(c *gin.Context) {
	var input CreateLeaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	start, err := time.Parse(dateLayout, input.StartDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid startDate, expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(input.EndDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid endDate, expected YYYY-MM-DD")
		return
	}
	rent, err := utils.ParseAmount(input.RentAmount)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid rentAmount")
		return
	}
	deposit := decimal.Zero
	if input.SecurityDeposit != "" {
		deposit, err = utils.ParseAmount(input.SecurityDeposit)
	}
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid securityDeposit")
		return
	}

	result, err := lc.Ledger.CreateLease(c.Request.Context(), services.LeaseInput{
		RenterID:        input.RenterID,
		UnitID:          input.UnitID,
		StartDate:       start,
		EndDate:         end,
		RentAmount:      rent,
		SecurityDeposit: deposit,
		Activate:        input.Activate,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ActivateLease moves a draft lease to active and issues its opening invoices
func (lc *LeaseController) ActivateLease(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := lc.Ledger.ActivateLease(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// TerminateLease ends an active lease and settles the security deposit
func (lc *LeaseController) TerminateLease(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := lc.Ledger.Terminate(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
