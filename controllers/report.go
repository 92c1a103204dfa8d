package controllers

import (
	"net/http"

	"rentledger-backend/services"

	"github.com/gin-gonic/gin"
)

// ReportController serves balances and statements for a lease
type ReportController struct {
	Ledger *services.Ledger
}

// GetBalance returns what the renter currently owes on the lease
func (rc *ReportController) GetBalance(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	balance, err := rc.Ledger.CurrentBalance(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"leaseId": id,
		"balance": balance,
	})
}

// GetStatement returns every invoice and payment on the lease with totals
func (rc *ReportController) GetStatement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	statement, err := rc.Ledger.LeaseStatement(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}
