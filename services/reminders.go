package services

import (
	"context"

	"rentledger-backend/models"

	"github.com/shopspring/decimal"
)

const TaskSendOverdueNotices = "send_overdue_notices"

type NoticeRunResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SendOverdueNotices notifies renters about invoices past their due date.
// An invoice gets at most one overdue notice per day.
func (l *Ledger) SendOverdueNotices(ctx context.Context) (*NoticeRunResult, error) {
	const op = "SendOverdueNotices"

	started := l.now()
	today := l.today()
	db := l.db.WithContext(ctx)

	invoices, err := overdueInvoices(db, today)
	if err != nil {
		return nil, storageErr(op, err)
	}

	result := &NoticeRunResult{}
	renters := map[uint]*models.Renter{}
	for i := range invoices {
		inv := &invoices[i]

		var already int64
		if err := db.Model(&models.NotificationLog{}).
			Where("kind = ? AND invoice_id = ? AND created_at >= ?", models.KindOverdueNotice, inv.ID, today).
			Count(&already).Error; err != nil {
			return nil, storageErr(op, err)
		}
		if already > 0 {
			result.Skipped++
			continue
		}

		renter, err := l.renterOfLease(ctx, inv.LeaseID, renters)
		if err != nil {
			l.log.Error().Err(err).Uint("invoice_id", inv.ID).Msg("overdue notice skipped")
			result.Failed++
			continue
		}
		if len(channelsFor(renter)) == 0 {
			result.Skipped++
			continue
		}
		if err := l.notifyRenter(ctx, models.KindOverdueNotice, renter, inv.LeaseID, inv, decimal.Zero); err != nil {
			result.Failed++
			continue
		}
		result.Sent++
	}

	if _, err := l.writeTaskLog(ctx, TaskSendOverdueNotices, started, result.Sent, result.Skipped, result.Failed, result); err != nil {
		l.log.Error().Err(err).Msg("task log write failed")
	}
	l.log.Info().Int("sent", result.Sent).Int("skipped", result.Skipped).Int("failed", result.Failed).Msg("overdue notices processed")
	return result, nil
}

func (l *Ledger) renterOfLease(ctx context.Context, leaseID uint, cache map[uint]*models.Renter) (*models.Renter, error) {
	if r, ok := cache[leaseID]; ok {
		return r, nil
	}
	var lease models.Lease
	if err := l.db.WithContext(ctx).Preload("Renter").First(&lease, leaseID).Error; err != nil {
		return nil, err
	}
	cache[leaseID] = lease.Renter
	return lease.Renter, nil
}
