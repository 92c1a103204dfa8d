package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceType string

const (
	InvoiceSecurityDeposit InvoiceType = "security_deposit"
	InvoiceRent            InvoiceType = "rent"
	InvoiceAdjustment      InvoiceType = "adjustment"
	InvoiceOther           InvoiceType = "other"
)

func ValidInvoiceType(t string) bool {
	switch InvoiceType(t) {
	case InvoiceSecurityDeposit, InvoiceRent, InvoiceAdjustment, InvoiceOther:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceUnpaid        InvoiceStatus = "unpaid"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceCancelled     InvoiceStatus = "cancelled"
)

// Invoice types that never take part in bulk allocation or balances.
var NonAllocatableTypes = []InvoiceType{InvoiceSecurityDeposit, InvoiceAdjustment}

// Statuses that still carry an outstanding balance.
var OpenStatuses = []InvoiceStatus{InvoiceUnpaid, InvoicePartiallyPaid}

type Invoice struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	InvoiceNumber *string     `gorm:"type:varchar(40);uniqueIndex" json:"invoiceNumber"`
	LeaseID       uint        `gorm:"index;not null;uniqueIndex:idx_rent_invoice_month,where:invoice_type = 'rent'" json:"leaseId"`
	InvoiceType   InvoiceType `gorm:"type:varchar(20);index;not null" json:"invoiceType"`
	InvoiceDate   time.Time   `gorm:"type:date;index;not null" json:"invoiceDate"`
	DueDate       time.Time   `gorm:"type:date;not null" json:"dueDate"`
	InvoiceMonth  *time.Time  `gorm:"type:date;uniqueIndex:idx_rent_invoice_month" json:"invoiceMonth,omitempty"`

	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaidAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"paidAmount"`
	Status     InvoiceStatus   `gorm:"type:varchar(20);index;not null" json:"status"`

	IsFinal     bool   `gorm:"not null" json:"isFinal"`
	Description string `gorm:"type:text" json:"description"`
	PDFPath     string `json:"pdfPath,omitempty"`

	CreatedBy string    `gorm:"type:varchar(64)" json:"createdBy"`
	UpdatedBy string    `gorm:"type:varchar(64)" json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Lease    *Lease    `gorm:"foreignKey:LeaseID" json:"-"`
	Payments []Payment `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

// DeriveInvoiceStatus maps (amount, paid) to a status. Cancelled is terminal
// and draft holds only while nothing has been paid.
func DeriveInvoiceStatus(amount, paid decimal.Decimal, current InvoiceStatus) InvoiceStatus {
	switch {
	case current == InvoiceCancelled:
		return InvoiceCancelled
	case paid.IsPositive() && paid.GreaterThanOrEqual(amount):
		return InvoicePaid
	case paid.IsPositive():
		return InvoicePartiallyPaid
	case current == InvoiceDraft:
		return InvoiceDraft
	default:
		return InvoiceUnpaid
	}
}

// Balance is amount minus paid, never negative.
func (i *Invoice) Balance() decimal.Decimal {
	b := i.Amount.Sub(i.PaidAmount)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

func (i *Invoice) IsOpen() bool {
	return i.Status == InvoiceUnpaid || i.Status == InvoicePartiallyPaid
}

func (i *Invoice) Allocatable() bool {
	for _, t := range NonAllocatableTypes {
		if i.InvoiceType == t {
			return false
		}
	}
	return i.IsOpen()
}

func (i *Invoice) refreshStatus() {
	i.Status = DeriveInvoiceStatus(i.Amount, i.PaidAmount, i.Status)
}

func (i *Invoice) AfterFind(tx *gorm.DB) error {
	i.refreshStatus()
	return nil
}

func (i *Invoice) BeforeSave(tx *gorm.DB) error {
	i.refreshStatus()
	return nil
}

// InvoiceNumberFor builds the number assigned once the row has an id.
func InvoiceNumberFor(invoiceDate time.Time, id uint) string {
	return fmt.Sprintf("INV-%s-%d", invoiceDate.Format("20060102"), id)
}
