package services

import (
	"context"
	"fmt"
	"time"

	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Allocation is the share of a bulk payment applied to one invoice.
type Allocation struct {
	InvoiceID       uint                 `json:"invoiceId"`
	InvoiceNumber   string               `json:"invoiceNumber"`
	AllocatedAmount decimal.Decimal      `json:"allocatedAmount"`
	BalanceBefore   decimal.Decimal      `json:"balanceBefore"`
	BalanceAfter    decimal.Decimal      `json:"balanceAfter"`
	Status          models.InvoiceStatus `json:"status"`
}

type PaymentInput struct {
	InvoiceID   *uint
	LeaseID     *uint
	Amount      decimal.Decimal
	Method      models.PaymentMethod
	PaymentDate *time.Time
	Reference   *string
	Notes       *string
}

type BulkPaymentInput struct {
	LeaseID     uint
	Amount      decimal.Decimal
	Method      models.PaymentMethod
	PaymentDate *time.Time
	Reference   *string
	Notes       *string
}

// BulkResult describes one waterfall allocation. Unapplied is the part of
// the amount no eligible invoice could take; it is stored as Credit.
type BulkResult struct {
	BatchID        uuid.UUID        `json:"batchId"`
	Payments       []models.Payment `json:"payments"`
	Credit         *models.Payment  `json:"credit,omitempty"`
	Allocations    []Allocation     `json:"allocations"`
	TotalAllocated decimal.Decimal  `json:"totalAllocated"`
	Unapplied      decimal.Decimal  `json:"unapplied"`
	Outstanding    []models.Invoice `json:"outstandingInvoices"`
	Balance        decimal.Decimal  `json:"balance"`
}

type PaymentResult struct {
	Payment *models.Payment `json:"payment,omitempty"`
	Invoice *models.Invoice `json:"invoice,omitempty"`
	Bulk    *BulkResult     `json:"bulk,omitempty"`
}

// ApplyToInvoice adds amount to an invoice's paid amount.
func (l *Ledger) ApplyToInvoice(ctx context.Context, invoiceID uint, amount decimal.Decimal) (*models.Invoice, error) {
	const op = "ApplyToInvoice"

	leaseID, err := l.leaseOfInvoice(ctx, op, invoiceID)
	if err != nil {
		return nil, err
	}
	unlock := l.locks.Lock(leaseID)
	defer unlock()

	var invoice *models.Invoice
	err = l.inTx(ctx, func(tx *gorm.DB) error {
		lease, err := lockLease(tx, op, leaseID)
		if err != nil {
			return err
		}
		invoice, err = l.applyToInvoiceTx(ctx, tx, lease, invoiceID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.afterCommit(ctx, l.documentJob(invoice))
	return invoice, nil
}

// RecordPayment stores a payment and allocates it. An invoice payment goes
// to that invoice; a lease payment runs the bulk waterfall.
func (l *Ledger) RecordPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	const op = "RecordPayment"

	if (in.InvoiceID == nil) == (in.LeaseID == nil) {
		return nil, &LedgerError{Op: op, Err: ErrInvalidInput, Details: models.ErrPaymentTarget.Error()}
	}
	if in.LeaseID != nil {
		bulk, err := l.ApplyBulk(ctx, BulkPaymentInput{
			LeaseID:     *in.LeaseID,
			Amount:      in.Amount,
			Method:      in.Method,
			PaymentDate: in.PaymentDate,
			Reference:   in.Reference,
			Notes:       in.Notes,
		})
		if err != nil {
			return nil, err
		}
		return &PaymentResult{Bulk: bulk}, nil
	}

	invoiceID := *in.InvoiceID
	method, err := paymentMethod(op, in.Method)
	if err != nil {
		return nil, err
	}
	leaseID, err := l.leaseOfInvoice(ctx, op, invoiceID)
	if err != nil {
		return nil, err
	}
	unlock := l.locks.Lock(leaseID)
	defer unlock()

	var (
		payment *models.Payment
		invoice *models.Invoice
		renter  *models.Renter
	)
	err = l.inTx(ctx, func(tx *gorm.DB) error {
		lease, err := lockLease(tx, op, leaseID)
		if err != nil {
			return err
		}
		invoice, err = l.applyToInvoiceTx(ctx, tx, lease, invoiceID, in.Amount)
		if err != nil {
			return err
		}
		payment = &models.Payment{
			InvoiceID:            &invoice.ID,
			PaymentDate:          l.paymentDate(in.PaymentDate),
			Method:               method,
			Amount:               utils.Round2(in.Amount),
			TransactionReference: in.Reference,
			Notes:                in.Notes,
			CreatedBy:            utils.ActorFromContext(ctx),
		}
		if err := tx.Create(payment).Error; err != nil {
			return storageErr(op, err)
		}
		renter = &models.Renter{}
		return tx.First(renter, lease.RenterID).Error
	})
	if err != nil {
		return nil, storageErr(op, err)
	}

	l.log.Info().
		Uint("invoice_id", invoice.ID).
		Str("amount", payment.Amount.StringFixed(2)).
		Str("status", string(invoice.Status)).
		Msg("payment recorded")
	l.afterCommit(ctx,
		l.documentJob(invoice),
		l.notifyJob(models.KindPaymentReceived, renter, invoice.LeaseID, invoice, payment.Amount),
	)
	return &PaymentResult{Payment: payment, Invoice: invoice}, nil
}

// ApplyBulk allocates amount across the lease's open invoices, oldest
// first, inside one transaction under the lease lock.
func (l *Ledger) ApplyBulk(ctx context.Context, in BulkPaymentInput) (*BulkResult, error) {
	const op = "ApplyBulk"

	amount := utils.Round2(in.Amount)
	if !amount.IsPositive() {
		return nil, &LedgerError{Op: op, Err: ErrInvalidAmount, LeaseID: in.LeaseID, Amount: decPtr(amount),
			Details: "amount must be greater than zero"}
	}
	method, err := paymentMethod(op, in.Method)
	if err != nil {
		return nil, err
	}

	unlock := l.locks.Lock(in.LeaseID)
	defer unlock()

	result := &BulkResult{BatchID: uuid.New(), TotalAllocated: decimal.Zero}
	var (
		touched []models.Invoice
		renter  models.Renter
	)
	err = l.inTx(ctx, func(tx *gorm.DB) error {
		lease, err := lockLease(tx, op, in.LeaseID)
		if err != nil {
			return err
		}
		if lease.Status != models.LeaseActive {
			details := fmt.Sprintf("lease is %s", lease.Status)
			if lease.Status == models.LeaseTerminated {
				details = "lease is terminated; pay the final invoice"
			}
			return &LedgerError{Op: op, Err: ErrInvalidState, LeaseID: lease.ID, Amount: decPtr(amount), Details: details}
		}
		if err := tx.First(&renter, lease.RenterID).Error; err != nil {
			return storageErr(op, err)
		}

		invoices, err := openInvoices(tx, lease.ID)
		if err != nil {
			return storageErr(op, err)
		}

		actor := utils.ActorFromContext(ctx)
		paidOn := l.paymentDate(in.PaymentDate)
		remaining := amount
		for i := range invoices {
			if !remaining.IsPositive() {
				break
			}
			before := invoices[i].Balance()
			if !before.IsPositive() {
				continue
			}
			share := utils.MinDecimal(remaining, before)

			updated, err := l.applyToInvoiceTx(ctx, tx, lease, invoices[i].ID, share)
			if err != nil {
				return err
			}
			child := models.Payment{
				InvoiceID:            &updated.ID,
				PaymentDate:          paidOn,
				Method:               method,
				Amount:               share,
				TransactionReference: in.Reference,
				Notes:                in.Notes,
				BatchID:              &result.BatchID,
				CreatedBy:            actor,
			}
			if err := tx.Create(&child).Error; err != nil {
				return storageErr(op, err)
			}

			remaining = utils.Round2(remaining.Sub(share))
			result.Payments = append(result.Payments, child)
			result.Allocations = append(result.Allocations, Allocation{
				InvoiceID:       updated.ID,
				InvoiceNumber:   derefString(updated.InvoiceNumber),
				AllocatedAmount: share,
				BalanceBefore:   before,
				BalanceAfter:    updated.Balance(),
				Status:          updated.Status,
			})
			result.TotalAllocated = result.TotalAllocated.Add(share)
			touched = append(touched, *updated)
		}

		result.Unapplied = remaining
		if remaining.IsPositive() {
			credit := &models.Payment{
				LeaseID:              &lease.ID,
				PaymentDate:          paidOn,
				Method:               method,
				Amount:               remaining,
				TransactionReference: in.Reference,
				Notes:                in.Notes,
				BatchID:              &result.BatchID,
				CreatedBy:            actor,
			}
			if err := tx.Create(credit).Error; err != nil {
				return storageErr(op, err)
			}
			result.Credit = credit
		}

		result.Balance, result.Outstanding, err = outstandingOf(tx, lease.ID)
		if err != nil {
			return storageErr(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.TotalAllocated = utils.Round2(result.TotalAllocated)

	l.log.Info().
		Uint("lease_id", in.LeaseID).
		Str("batch_id", result.BatchID.String()).
		Str("amount", amount.StringFixed(2)).
		Str("allocated", result.TotalAllocated.StringFixed(2)).
		Str("unapplied", result.Unapplied.StringFixed(2)).
		Msg("bulk payment allocated")

	jobs := make([]Job, 0, len(touched)+1)
	for i := range touched {
		jobs = append(jobs, l.documentJob(&touched[i]))
	}
	jobs = append(jobs, l.notifyJob(models.KindPaymentReceived, &renter, in.LeaseID, nil, amount))
	l.afterCommit(ctx, jobs...)
	return result, nil
}

// applyToInvoiceTx is the single writer of paid_amount. The caller holds
// the lease lock.
func (l *Ledger) applyToInvoiceTx(ctx context.Context, tx *gorm.DB, lease *models.Lease, invoiceID uint, amount decimal.Decimal) (*models.Invoice, error) {
	const op = "ApplyToInvoice"

	amount = utils.Round2(amount)
	if !amount.IsPositive() {
		return nil, &LedgerError{Op: op, Err: ErrInvalidAmount, InvoiceID: invoiceID, Amount: decPtr(amount),
			Details: "amount must be greater than zero"}
	}

	var invoice models.Invoice
	if err := tx.Where("id = ? AND lease_id = ?", invoiceID, lease.ID).First(&invoice).Error; err != nil {
		if le, ok := storageErr(op, err).(*LedgerError); ok {
			le.InvoiceID = invoiceID
			return nil, le
		}
		return nil, err
	}
	if invoice.Status == models.InvoiceCancelled {
		return nil, &LedgerError{Op: op, Err: ErrInvalidState, InvoiceID: invoice.ID, LeaseID: lease.ID,
			Details: "invoice is cancelled"}
	}

	balance := invoice.Balance()
	if amount.GreaterThan(balance) {
		return nil, &LedgerError{Op: op, Err: ErrOverpayment, InvoiceID: invoice.ID, LeaseID: lease.ID,
			Amount: decPtr(amount), Balance: decPtr(balance)}
	}

	invoice.PaidAmount = utils.Round2(invoice.PaidAmount.Add(amount))
	invoice.Status = models.DeriveInvoiceStatus(invoice.Amount, invoice.PaidAmount, invoice.Status)
	invoice.UpdatedBy = utils.ActorFromContext(ctx)
	if err := tx.Model(&invoice).Select("paid_amount", "status", "updated_by", "updated_at").Updates(&invoice).Error; err != nil {
		return nil, storageErr(op, err)
	}

	if invoice.InvoiceType == models.InvoiceSecurityDeposit &&
		invoice.Status == models.InvoicePaid &&
		lease.DepositStatus == models.DepositPending {
		if err := l.transitionDeposit(ctx, tx, lease, models.DepositEventPaid); err != nil {
			return nil, err
		}
	}
	return &invoice, nil
}

// transitionDeposit applies and persists a deposit status change.
func (l *Ledger) transitionDeposit(ctx context.Context, tx *gorm.DB, lease *models.Lease, event models.DepositEvent) error {
	if err := lease.TransitionDeposit(event); err != nil {
		return &LedgerError{Op: "TransitionDeposit", Err: ErrInvalidState, LeaseID: lease.ID, Details: err.Error()}
	}
	lease.UpdatedBy = utils.ActorFromContext(ctx)
	if err := tx.Model(lease).Select("deposit_status", "updated_by", "updated_at").Updates(lease).Error; err != nil {
		return storageErr("TransitionDeposit", err)
	}
	l.log.Info().Uint("lease_id", lease.ID).Str("deposit_status", string(lease.DepositStatus)).Msg("deposit status changed")
	return nil
}

func (l *Ledger) leaseOfInvoice(ctx context.Context, op string, invoiceID uint) (uint, error) {
	var invoice models.Invoice
	if err := l.db.WithContext(ctx).Select("id", "lease_id").First(&invoice, invoiceID).Error; err != nil {
		if le, ok := storageErr(op, err).(*LedgerError); ok {
			le.InvoiceID = invoiceID
			return 0, le
		}
		return 0, err
	}
	return invoice.LeaseID, nil
}

func (l *Ledger) paymentDate(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return l.today()
	}
	return utils.DateOnly(*d)
}

func paymentMethod(op string, m models.PaymentMethod) (models.PaymentMethod, error) {
	if m == "" {
		return models.MethodCash, nil
	}
	if !models.ValidPaymentMethod(string(m)) {
		return "", &LedgerError{Op: op, Err: ErrInvalidInput, Details: fmt.Sprintf("unknown payment method %q", m)}
	}
	return m, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
