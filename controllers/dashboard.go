package controllers

import (
	"net/http"

	"rentledger-backend/services"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	Ledger *services.Ledger
}

// GetOverview returns portfolio totals for the dashboard
func (dc *DashboardController) GetOverview(c *gin.Context) {
	overview, err := dc.Ledger.Overview(c.Request.Context())
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
