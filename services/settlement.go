package services

import (
	"context"
	"fmt"

	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settlement directions, carried in the final invoice description only.
const (
	SettlementCharge = "charge"
	SettlementRefund = "refund"
	SettlementExact  = "exact"
)

type SettlementResult struct {
	Lease        *models.Lease    `json:"lease"`
	Outstanding  decimal.Decimal  `json:"outstanding"`
	PaidDeposit  decimal.Decimal  `json:"paidDeposit"`
	Due          decimal.Decimal  `json:"due"`
	Refund       decimal.Decimal  `json:"refund"`
	Direction    string           `json:"direction"`
	FinalInvoice *models.Invoice  `json:"finalInvoice,omitempty"`
	Invoices     []models.Invoice `json:"invoices"`
}

// Terminate ends an active lease and nets the paid deposit against what is
// still owed, issuing at most one final adjustment invoice.
func (l *Ledger) Terminate(ctx context.Context, leaseID uint) (*SettlementResult, error) {
	const op = "Terminate"

	unlock := l.locks.Lock(leaseID)
	defer unlock()

	result := &SettlementResult{Invoices: []models.Invoice{}}
	err := l.inTx(ctx, func(tx *gorm.DB) error {
		lease, err := lockLease(tx, op, leaseID)
		if err != nil {
			return err
		}
		if lease.Status != models.LeaseActive {
			return &LedgerError{Op: op, Err: ErrInvalidState, LeaseID: leaseID,
				Details: fmt.Sprintf("lease status is %s, expected active", lease.Status)}
		}
		var finals int64
		if err := tx.Model(&models.Invoice{}).Where("lease_id = ? AND is_final = ?", leaseID, true).
			Count(&finals).Error; err != nil {
			return storageErr(op, err)
		}
		if finals > 0 {
			return &LedgerError{Op: op, Err: ErrInvalidState, LeaseID: leaseID,
				Details: "lease already has a final settlement invoice"}
		}

		today := l.today()
		actor := utils.ActorFromContext(ctx)
		lease.Status = models.LeaseTerminated
		lease.TerminationDate = &today
		lease.UpdatedBy = actor
		if err := tx.Model(lease).Select("status", "termination_date", "updated_by", "updated_at").Updates(lease).Error; err != nil {
			return storageErr(op, err)
		}
		if err := tx.Model(&models.Unit{}).Where("id = ?", lease.UnitID).
			Update("status", models.UnitVacant).Error; err != nil {
			return storageErr(op, err)
		}
		var otherActive int64
		if err := tx.Model(&models.Lease{}).
			Where("renter_id = ? AND status = ? AND id <> ?", lease.RenterID, models.LeaseActive, lease.ID).
			Count(&otherActive).Error; err != nil {
			return storageErr(op, err)
		}
		if otherActive == 0 {
			if err := tx.Model(&models.Renter{}).Where("id = ?", lease.RenterID).
				Update("status", models.RenterFormer).Error; err != nil {
				return storageErr(op, err)
			}
		}

		outstanding, _, err := outstandingOf(tx, lease.ID)
		if err != nil {
			return storageErr(op, err)
		}
		paidDeposit, err := paidDepositOf(tx, lease.ID)
		if err != nil {
			return storageErr(op, err)
		}
		due := utils.NonNegative(outstanding.Sub(paidDeposit))

		result.Outstanding = outstanding
		result.PaidDeposit = paidDeposit
		result.Due = due
		result.Refund = decimal.Zero

		var final *InvoiceInput
		event := models.DepositEventAdjusted
		switch {
		case due.IsPositive():
			result.Direction = SettlementCharge
			final = &InvoiceInput{
				Amount:      due,
				Description: "Final settlement after applying security deposit for " + describeLease(lease.ID),
			}
		case paidDeposit.GreaterThan(outstanding):
			result.Direction = SettlementRefund
			result.Refund = utils.Round2(paidDeposit.Sub(outstanding))
			event = models.DepositEventRefunded
			final = &InvoiceInput{
				Amount:      result.Refund,
				Description: "Refund of security deposit for " + describeLease(lease.ID),
			}
		default:
			result.Direction = SettlementExact
		}

		if final != nil {
			final.LeaseID = lease.ID
			final.Type = models.InvoiceAdjustment
			final.InvoiceDate = &today
			final.DueDate = &today
			final.isFinal = true
			inv, err := l.createInvoiceTx(ctx, tx, *final)
			if err != nil {
				return err
			}
			result.FinalInvoice = inv
			result.Invoices = append(result.Invoices, *inv)
		}

		if err := l.transitionDeposit(ctx, tx, lease, event); err != nil {
			return err
		}
		result.Lease = lease
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Uint("lease_id", leaseID).
		Str("direction", result.Direction).
		Str("outstanding", result.Outstanding.StringFixed(2)).
		Str("paid_deposit", result.PaidDeposit.StringFixed(2)).
		Msg("lease terminated")
	if result.FinalInvoice != nil {
		l.afterCommit(ctx, l.invoiceIssuedJobs(result.FinalInvoice)...)
	}
	return result, nil
}

// paidDepositOf sums paid amounts over the lease's security deposit invoices.
func paidDepositOf(tx *gorm.DB, leaseID uint) (decimal.Decimal, error) {
	var deposits []models.Invoice
	if err := tx.Where("lease_id = ? AND invoice_type = ?", leaseID, models.InvoiceSecurityDeposit).
		Find(&deposits).Error; err != nil {
		return decimal.Zero, err
	}
	paid := make([]decimal.Decimal, len(deposits))
	for i := range deposits {
		paid[i] = deposits[i].PaidAmount
	}
	return utils.SumDecimal(paid...), nil
}
