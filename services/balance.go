package services

import (
	"context"
	"errors"
	"time"

	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CurrentBalance is what the renter owes on the lease right now. Terminated
// leases report only the final settlement invoice.
func (l *Ledger) CurrentBalance(ctx context.Context, leaseID uint) (decimal.Decimal, error) {
	return currentBalance(l.db.WithContext(ctx), leaseID)
}

func currentBalance(db *gorm.DB, leaseID uint) (decimal.Decimal, error) {
	const op = "CurrentBalance"

	var lease models.Lease
	if err := db.First(&lease, leaseID).Error; err != nil {
		return decimal.Zero, withLease(storageErr(op, err), leaseID)
	}

	if lease.Status == models.LeaseTerminated {
		var final models.Invoice
		err := db.Where("lease_id = ? AND is_final = ?", leaseID, true).Order("id desc").First(&final).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		if err != nil {
			return decimal.Zero, storageErr(op, err)
		}
		if !final.IsOpen() {
			return decimal.Zero, nil
		}
		return final.Balance(), nil
	}

	balance, _, err := outstandingOf(db, leaseID)
	if err != nil {
		return decimal.Zero, storageErr(op, err)
	}
	return balance, nil
}

type LeaseStatement struct {
	Lease         *models.Lease    `json:"lease"`
	Invoices      []models.Invoice `json:"invoices"`
	Payments      []models.Payment `json:"payments"`
	TotalInvoiced decimal.Decimal  `json:"totalInvoiced"`
	TotalPaid     decimal.Decimal  `json:"totalPaid"`
	Credit        decimal.Decimal  `json:"credit"`
	Balance       decimal.Decimal  `json:"balance"`
}

// LeaseStatement lists every invoice and payment on a lease with totals.
func (l *Ledger) LeaseStatement(ctx context.Context, leaseID uint) (*LeaseStatement, error) {
	const op = "LeaseStatement"
	db := l.db.WithContext(ctx)

	var lease models.Lease
	if err := db.Preload("Renter").Preload("Unit").First(&lease, leaseID).Error; err != nil {
		return nil, withLease(storageErr(op, err), leaseID)
	}

	var invoices []models.Invoice
	if err := db.Where("lease_id = ?", leaseID).Order("invoice_date asc, id asc").Find(&invoices).Error; err != nil {
		return nil, storageErr(op, err)
	}
	payments, err := l.ListPayments(ctx, PaymentFilter{LeaseID: &leaseID})
	if err != nil {
		return nil, err
	}

	balance, err := currentBalance(db, leaseID)
	if err != nil {
		return nil, err
	}

	st := &LeaseStatement{Lease: &lease, Invoices: invoices, Payments: payments, Balance: balance}
	var invoiced, paid, credit []decimal.Decimal
	for _, inv := range invoices {
		if inv.Status == models.InvoiceCancelled {
			continue
		}
		invoiced = append(invoiced, inv.Amount)
	}
	for _, p := range payments {
		paid = append(paid, p.Amount)
		if p.IsCredit() {
			credit = append(credit, p.Amount)
		}
	}
	st.TotalInvoiced = utils.SumDecimal(invoiced...)
	st.TotalPaid = utils.SumDecimal(paid...)
	st.Credit = utils.SumDecimal(credit...)
	return st, nil
}

type PaymentFilter struct {
	LeaseID   *uint
	InvoiceID *uint
}

// ListPayments returns payments oldest first. A lease filter includes both
// invoice payments on the lease's invoices and lease level credit rows.
func (l *Ledger) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, error) {
	q := l.db.WithContext(ctx).Model(&models.Payment{})
	if f.LeaseID != nil {
		sub := l.db.Model(&models.Invoice{}).Select("id").Where("lease_id = ?", *f.LeaseID)
		q = q.Where("lease_id = ? OR invoice_id IN (?)", *f.LeaseID, sub)
	}
	if f.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *f.InvoiceID)
	}
	var payments []models.Payment
	if err := q.Order("payment_date asc, id asc").Find(&payments).Error; err != nil {
		return nil, storageErr("ListPayments", err)
	}
	return payments, nil
}

// GetInvoice loads one invoice with its payments.
func (l *Ledger) GetInvoice(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := l.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&invoice, invoiceID).Error
	if err != nil {
		var le *LedgerError
		if errors.As(storageErr("GetInvoice", err), &le) {
			le.InvoiceID = invoiceID
			return nil, le
		}
		return nil, err
	}
	return &invoice, nil
}

type InvoiceFilter struct {
	LeaseID *uint
	Status  string
	Type    string
	Limit   int
	Offset  int
}

// ListInvoices returns invoices newest first.
func (l *Ledger) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, int64, error) {
	q := l.db.WithContext(ctx).Model(&models.Invoice{})
	if f.LeaseID != nil {
		q = q.Where("lease_id = ?", *f.LeaseID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("invoice_type = ?", f.Type)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, storageErr("ListInvoices", err)
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	var invoices []models.Invoice
	err := q.Order("invoice_date desc, id desc").Limit(f.Limit).Offset(f.Offset).Find(&invoices).Error
	if err != nil {
		return nil, 0, storageErr("ListInvoices", err)
	}
	return invoices, total, nil
}

type Overview struct {
	ActiveLeases       int64           `json:"activeLeases"`
	VacantUnits        int64           `json:"vacantUnits"`
	TotalOutstanding   decimal.Decimal `json:"totalOutstanding"`
	CollectedThisMonth decimal.Decimal `json:"collectedThisMonth"`
	OverdueInvoices    int64           `json:"overdueInvoices"`
}

// Overview aggregates balances across active leases for the dashboard.
func (l *Ledger) Overview(ctx context.Context) (*Overview, error) {
	const op = "Overview"
	db := l.db.WithContext(ctx)
	today := l.today()
	ov := &Overview{}

	var leaseIDs []uint
	if err := db.Model(&models.Lease{}).Where("status = ?", models.LeaseActive).Pluck("id", &leaseIDs).Error; err != nil {
		return nil, storageErr(op, err)
	}
	ov.ActiveLeases = int64(len(leaseIDs))

	balances := make([]decimal.Decimal, 0, len(leaseIDs))
	for _, id := range leaseIDs {
		b, err := currentBalance(db, id)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	ov.TotalOutstanding = utils.SumDecimal(balances...)

	if err := db.Model(&models.Unit{}).Where("status = ?", models.UnitVacant).Count(&ov.VacantUnits).Error; err != nil {
		return nil, storageErr(op, err)
	}

	var payments []models.Payment
	if err := db.Where("payment_date >= ?", utils.FirstOfMonth(today)).Find(&payments).Error; err != nil {
		return nil, storageErr(op, err)
	}
	collected := make([]decimal.Decimal, len(payments))
	for i := range payments {
		collected[i] = payments[i].Amount
	}
	ov.CollectedThisMonth = utils.SumDecimal(collected...)

	overdue, err := overdueInvoices(db, today)
	if err != nil {
		return nil, storageErr(op, err)
	}
	ov.OverdueInvoices = int64(len(overdue))
	return ov, nil
}

// overdueInvoices returns open allocatable invoices on active leases whose
// due date has passed.
func overdueInvoices(db *gorm.DB, today time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := db.
		Joins("JOIN leases ON leases.id = invoices.lease_id").
		Where("leases.status = ?", models.LeaseActive).
		Where("invoices.status IN ? AND invoices.invoice_type NOT IN ? AND invoices.due_date < ?",
			models.OpenStatuses, models.NonAllocatableTypes, today).
		Order("invoices.due_date asc, invoices.id asc").
		Find(&invoices).Error
	return invoices, err
}

func withLease(err error, leaseID uint) error {
	var le *LedgerError
	if errors.As(err, &le) && le.LeaseID == 0 {
		le.LeaseID = leaseID
	}
	return err
}

// OutstandingInvoices returns the lease's open allocatable invoices, oldest
// first, with their total balance.
func (l *Ledger) OutstandingInvoices(ctx context.Context, leaseID uint) ([]models.Invoice, decimal.Decimal, error) {
	total, invoices, err := outstandingOf(l.db.WithContext(ctx), leaseID)
	if err != nil {
		return nil, decimal.Zero, storageErr("OutstandingInvoices", err)
	}
	return invoices, total, nil
}
