package controllers

import (
	"net/http"
	"strconv"
	"time"

	"rentledger-backend/models"
	"rentledger-backend/services"
	"rentledger-backend/utils"

	"github.com/gin-gonic/gin"
)

// CreateInvoiceInput defines the expected JSON structure for creating an invoice
type CreateInvoiceInput struct {
	LeaseID     uint    `json:"leaseId" binding:"required"`
	InvoiceType string  `json:"invoiceType" binding:"required"`
	Amount      string  `json:"amount" binding:"required"`
	InvoiceDate *string `json:"invoiceDate"`
	DueDate     *string `json:"dueDate"`
	Month       *string `json:"invoiceMonth"`
	Description string  `json:"description"`
	Draft       bool    `json:"draft"`
}

// GenerateRentInput selects the month to bill; the current month when empty
type GenerateRentInput struct {
	Month string `json:"month"` // YYYY-MM
}

type InvoiceController struct {
	Ledger *services.Ledger
}

// CreateInvoice issues a new invoice against a lease
func (ic *InvoiceController) CreateInvoice(c *gin.Context) {
	var input CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !models.ValidInvoiceType(input.InvoiceType) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoiceType")
		return
	}
	amount, err := utils.ParseAmount(input.Amount)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	in := services.InvoiceInput{
		LeaseID:     input.LeaseID,
		Type:        models.InvoiceType(input.InvoiceType),
		Amount:      amount,
		Description: input.Description,
		Draft:       input.Draft,
	}
	if in.InvoiceDate, err = parseDate(input.InvoiceDate); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoiceDate, expected YYYY-MM-DD")
		return
	}
	if in.DueDate, err = parseDate(input.DueDate); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid dueDate, expected YYYY-MM-DD")
		return
	}
	if input.Month != nil && *input.Month != "" {
		month, err := parseMonth(*input.Month)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid invoiceMonth, expected YYYY-MM")
			return
		}
		in.Month = &month
	}

	invoice, err := ic.Ledger.CreateInvoice(c.Request.Context(), in)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// GetInvoice retrieves a specific invoice with its payments
func (ic *InvoiceController) GetInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := ic.Ledger.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoice":  invoice,
		"balance":  invoice.Balance(),
		"payments": invoice.Payments,
	})
}

// IssueInvoice releases a draft invoice to the renter
func (ic *InvoiceController) IssueInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := ic.Ledger.IssueInvoice(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// GetInvoices lists invoices with optional lease, status and type filters
func (ic *InvoiceController) GetInvoices(c *gin.Context) {
	leaseID, ok := queryID(c, "lease_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	invoices, total, err := ic.Ledger.ListInvoices(c.Request.Context(), services.InvoiceFilter{
		LeaseID: leaseID,
		Status:  c.Query("status"),
		Type:    c.Query("type"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"total":    total,
	})
}

// GenerateRent runs the monthly rent job on demand
func (ic *InvoiceController) GenerateRent(c *gin.Context) {
	var input GenerateRentInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}

	month := ic.Ledger.CurrentMonth()
	if input.Month != "" {
		m, err := parseMonth(input.Month)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid month, expected YYYY-MM")
			return
		}
		month = m
	}

	result, err := ic.Ledger.GenerateMonthlyRent(c.Request.Context(), month)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseMonth accepts YYYY-MM or a full date and returns the first of that month.
func parseMonth(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	return utils.FirstOfMonth(t), nil
}
