package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	MethodCash       PaymentMethod = "cash"
	MethodBank       PaymentMethod = "bank"
	MethodCard       PaymentMethod = "card"
	MethodMobile     PaymentMethod = "mobile"
	MethodAdjustment PaymentMethod = "adjustment"
)

func ValidPaymentMethod(m string) bool {
	switch PaymentMethod(m) {
	case MethodCash, MethodBank, MethodCard, MethodMobile, MethodAdjustment:
		return true
	}
	return false
}

var ErrPaymentTarget = errors.New("payment must reference exactly one of invoice or lease")

// Payment rows are append-only. A correction is a new row.
type Payment struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	InvoiceID            *uint           `gorm:"index" json:"invoiceId,omitempty"`
	LeaseID              *uint           `gorm:"index" json:"leaseId,omitempty"`
	PaymentDate          time.Time       `gorm:"type:date;not null" json:"paymentDate"`
	Method               PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Amount               decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	TransactionReference *string         `gorm:"type:varchar(100)" json:"transactionReference,omitempty"`
	Notes                *string         `gorm:"type:text" json:"notes,omitempty"`
	BatchID              *uuid.UUID      `gorm:"type:uuid;index" json:"batchId,omitempty"`

	CreatedBy string    `gorm:"type:varchar(64)" json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if (p.InvoiceID == nil) == (p.LeaseID == nil) {
		return ErrPaymentTarget
	}
	return nil
}

// IsCredit reports a lease level row holding money not yet allocated.
func (p *Payment) IsCredit() bool {
	return p.InvoiceID == nil && p.LeaseID != nil
}
