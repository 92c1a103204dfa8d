package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger error kinds. Every error returned by Ledger wraps exactly one of these.
var (
	// ErrDuplicateInvoice is returned when a rent invoice already exists for the lease and month.
	ErrDuplicateInvoice = errors.New("duplicate invoice")

	// ErrOverpayment is returned when a payment exceeds an invoice's outstanding balance.
	ErrOverpayment = errors.New("payment exceeds outstanding balance")

	// ErrInvalidAmount is returned for zero, negative or malformed amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidInput is returned for malformed requests such as an unknown
	// payment method or invoice type.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when a lease or invoice is not in a state the operation accepts.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound is returned when a referenced lease, invoice or renter does not exist.
	ErrNotFound = errors.New("not found")
)

// LedgerError carries the ids and amounts involved in a rejected operation.
type LedgerError struct {
	// Op is the ledger operation that failed (e.g. "ApplyBulk", "Terminate").
	Op string

	// Err is the kind, or a wrapped storage error.
	Err error

	LeaseID   uint
	InvoiceID uint
	Amount    *decimal.Decimal
	Balance   *decimal.Decimal

	// Details names the failed precondition.
	Details string
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ledger: %s failed", e.Op)
	if e.Details != "" {
		fmt.Fprintf(&b, ": %s", e.Details)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.LeaseID != 0 {
		fmt.Fprintf(&b, " (lease %d)", e.LeaseID)
	}
	if e.InvoiceID != 0 {
		fmt.Fprintf(&b, " (invoice %d)", e.InvoiceID)
	}
	return b.String()
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Fields returns the error context as a flat map for logs and responses.
func (e *LedgerError) Fields() map[string]interface{} {
	f := map[string]interface{}{"operation": e.Op}
	if e.LeaseID != 0 {
		f["leaseId"] = e.LeaseID
	}
	if e.InvoiceID != 0 {
		f["invoiceId"] = e.InvoiceID
	}
	if e.Amount != nil {
		f["amount"] = e.Amount.StringFixed(2)
	}
	if e.Balance != nil {
		f["balance"] = e.Balance.StringFixed(2)
	}
	if e.Details != "" {
		f["details"] = e.Details
	}
	return f
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// invoiceWriters are the operations whose unique violations can only come
// from the one-rent-invoice-per-month index.
var invoiceWriters = map[string]bool{
	"CreateInvoice":       true,
	"GenerateMonthlyRent": true,
}

// storageErr maps gorm errors onto ledger kinds.
func storageErr(op string, err error) error {
	var le *LedgerError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &le):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &LedgerError{Op: op, Err: ErrNotFound}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		if invoiceWriters[op] {
			return &LedgerError{Op: op, Err: ErrDuplicateInvoice}
		}
		return &LedgerError{Op: op, Err: ErrInvalidState, Details: "conflicts with an existing record"}
	}
	return &LedgerError{Op: op, Err: err}
}
