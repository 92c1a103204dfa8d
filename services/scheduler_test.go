package services

import (
	"testing"

	"rentledger-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRegister(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(f.ledger)

	require.NoError(t, s.Register(ScheduleSpec{MonthlyRent: "0 1 1 * *", OverdueNotices: "0 9 * * *"}))
	assert.Len(t, s.cron.Entries(), 2)

	assert.Error(t, s.Register(ScheduleSpec{MonthlyRent: "every month"}))
}

func TestSchedulerRunsMonthlyRentForCurrentMonth(t *testing.T) {
	f := newFixture(t)
	f.newLease(t, "1000", "0")

	s := NewScheduler(f.ledger)
	s.runMonthlyRent()

	var runs []models.TaskLog
	require.NoError(t, f.db.Find(&runs).Error)
	require.NotEmpty(t, runs)
	// activation already issued January rent
	assert.Equal(t, models.TaskSkipped, runs[len(runs)-1].Status)

	var rent int64
	f.db.Model(&models.Invoice{}).Where("invoice_type = ?", models.InvoiceRent).Count(&rent)
	assert.Equal(t, int64(1), rent)
}
