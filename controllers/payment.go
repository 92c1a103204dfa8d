package controllers

import (
	"errors"
	"net/http"

	"rentledger-backend/models"
	"rentledger-backend/services"
	"rentledger-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RecordPaymentInput defines the expected JSON structure for a payment.
// Exactly one of invoiceId and leaseId must be set.
type RecordPaymentInput struct {
	InvoiceID            *uint   `json:"invoiceId"`
	LeaseID              *uint   `json:"leaseId"`
	Amount               string  `json:"amount" binding:"required"`
	PaymentMethod        string  `json:"paymentMethod"`
	PaymentDate          *string `json:"paymentDate"`
	TransactionReference *string `json:"transactionReference"`
	Notes                *string `json:"notes"`
}

// BulkPaymentInput spreads one amount over a lease's open invoices
type BulkPaymentInput struct {
	LeaseID              uint    `json:"leaseId" binding:"required"`
	Amount               string  `json:"amount" binding:"required"`
	PaymentMethod        string  `json:"paymentMethod"`
	PaymentDate          *string `json:"paymentDate"`
	TransactionReference *string `json:"transactionReference"`
	Notes                *string `json:"notes"`
}

type PaymentController struct {
	Ledger *services.Ledger
}

// RecordPayment applies a payment to one invoice, or to a whole lease
func (pc *PaymentController) RecordPayment(c *gin.Context) {
	var input RecordPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if (input.InvoiceID == nil) == (input.LeaseID == nil) {
		utils.RespondWithError(c, http.StatusBadRequest, "Exactly one of invoiceId or leaseId is required")
		return
	}
	amount, method, ok := pc.bindAmountAndMethod(c, input.Amount, input.PaymentMethod)
	if !ok {
		return
	}
	date, err := parseDate(input.PaymentDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid paymentDate, expected YYYY-MM-DD")
		return
	}

	result, err := pc.Ledger.RecordPayment(c.Request.Context(), services.PaymentInput{
		InvoiceID:   input.InvoiceID,
		LeaseID:     input.LeaseID,
		Amount:      amount,
		Method:      method,
		PaymentDate: date,
		Reference:   input.TransactionReference,
		Notes:       input.Notes,
	})
	if err != nil {
		if input.LeaseID != nil {
			pc.respondBulkError(c, *input.LeaseID, err)
			return
		}
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// RecordBulkPayment allocates one amount over the lease's invoices, oldest first
func (pc *PaymentController) RecordBulkPayment(c *gin.Context) {
	var input BulkPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	amount, method, ok := pc.bindAmountAndMethod(c, input.Amount, input.PaymentMethod)
	if !ok {
		return
	}
	date, err := parseDate(input.PaymentDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid paymentDate, expected YYYY-MM-DD")
		return
	}

	result, err := pc.Ledger.ApplyBulk(c.Request.Context(), services.BulkPaymentInput{
		LeaseID:     input.LeaseID,
		Amount:      amount,
		Method:      method,
		PaymentDate: date,
		Reference:   input.TransactionReference,
		Notes:       input.Notes,
	})
	if err != nil {
		pc.respondBulkError(c, input.LeaseID, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetPayments lists payments filtered by lease_id or invoice_id
func (pc *PaymentController) GetPayments(c *gin.Context) {
	leaseID, ok := queryID(c, "lease_id")
	if !ok {
		return
	}
	invoiceID, ok := queryID(c, "invoice_id")
	if !ok {
		return
	}
	payments, err := pc.Ledger.ListPayments(c.Request.Context(), services.PaymentFilter{
		LeaseID:   leaseID,
		InvoiceID: invoiceID,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (pc *PaymentController) bindAmountAndMethod(c *gin.Context, rawAmount, rawMethod string) (decimal.Decimal, models.PaymentMethod, bool) {
	amount, err := utils.ParseAmount(rawAmount)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
		return decimal.Zero, "", false
	}
	if rawMethod != "" && !models.ValidPaymentMethod(rawMethod) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid paymentMethod")
		return decimal.Zero, "", false
	}
	return amount, models.PaymentMethod(rawMethod), true
}

// respondBulkError adds the lease's open invoices to a rejected bulk
// payment so the caller can see what the amount would have covered.
func (pc *PaymentController) respondBulkError(c *gin.Context, leaseID uint, err error) {
	if !errors.Is(err, services.ErrInvalidAmount) && !errors.Is(err, services.ErrOverpayment) {
		respondLedgerError(c, err)
		return
	}
	var le *services.LedgerError
	if !errors.As(err, &le) {
		respondLedgerError(c, err)
		return
	}
	details := gin.H{}
	for k, v := range le.Fields() {
		details[k] = v
	}
	if invoices, total, qerr := pc.Ledger.OutstandingInvoices(c.Request.Context(), leaseID); qerr == nil {
		details["outstandingInvoices"] = invoices
		details["outstanding"] = total
	}
	utils.RespondWithErrorDetails(c, statusFor(err), kindMessage(err), details)
}
