package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStorageErrMapsGormErrors(t *testing.T) {
	err := storageErr("GetInvoice", gorm.ErrRecordNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	err = storageErr("CreateInvoice", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey))
	assert.ErrorIs(t, err, ErrDuplicateInvoice)

	err = storageErr("ActivateLease", fmt.Errorf("update: %w", gorm.ErrDuplicatedKey))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, errors.Is(err, ErrDuplicateInvoice))

	original := &LedgerError{Op: "ApplyBulk", Err: ErrInvalidAmount}
	assert.Same(t, original, storageErr("Other", original))

	other := errors.New("connection reset")
	err = storageErr("ApplyBulk", other)
	assert.ErrorIs(t, err, other)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLedgerErrorMessageAndFields(t *testing.T) {
	amount, balance := dec("150"), dec("100")
	err := &LedgerError{
		Op: "ApplyToInvoice", Err: ErrOverpayment, LeaseID: 4, InvoiceID: 9,
		Amount: &amount, Balance: &balance,
	}

	assert.Equal(t, "ledger: ApplyToInvoice failed: payment exceeds outstanding balance (lease 4) (invoice 9)", err.Error())
	assert.Equal(t, map[string]interface{}{
		"operation": "ApplyToInvoice",
		"leaseId":   uint(4),
		"invoiceId": uint(9),
		"amount":    "150.00",
		"balance":   "100.00",
	}, err.Fields())
}
