package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"rentledger-backend/config"
	"rentledger-backend/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDB("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name), false)
	require.NoError(t, err)
	require.NoError(t, config.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fakeDocs struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (f *fakeDocs) Generate(_ context.Context, invoice *models.Invoice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invoice.ID)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("invoices/%s.pdf", *invoice.InvoiceNumber), nil
}

func (f *fakeDocs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n Notification) (*models.NotificationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	entry := &models.NotificationLog{Kind: n.Kind, Channel: n.Channel, Recipient: n.Recipient, Status: models.DeliverySent}
	if f.err != nil {
		entry.Status = models.DeliveryFailed
		return entry, f.err
	}
	return entry, nil
}

func (f *fakeNotifier) kinds() []models.NotificationKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.NotificationKind, len(f.sent))
	for i, n := range f.sent {
		out[i] = n.Kind
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	ledger   *Ledger
	docs     *fakeDocs
	notifier *fakeNotifier
	now      time.Time
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       setupTestDB(t),
		docs:     &fakeDocs{},
		notifier: &fakeNotifier{},
		now:      time.Date(2025, time.January, 20, 9, 30, 0, 0, time.UTC),
	}
	f.ledger = NewLedger(f.db, LedgerOptions{
		Documents:  f.docs,
		Notifier:   f.notifier,
		RentDueDay: 10,
		Currency:   "BDT",
		SiteURL:    "https://rent.example.com",
		Now:        func() time.Time { return f.now },
	})
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func day(month time.Month, d int) *time.Time {
	t := time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// newLease creates a renter, a unit and an active lease starting on the
// first of January 2025.
func (f *fixture) newLease(t *testing.T, rent, deposit string) *LeaseResult {
	t.Helper()
	f.seq++
	renter := models.Renter{
		FullName:               fmt.Sprintf("Renter %d", f.seq),
		Email:                  fmt.Sprintf("renter%d@example.com", f.seq),
		PhoneNumber:            fmt.Sprintf("+8801700%06d", f.seq),
		NotificationPreference: models.PreferBoth,
		Status:                 models.RenterProspective,
	}
	require.NoError(t, f.db.Create(&renter).Error)
	unit := models.Unit{Name: fmt.Sprintf("Unit %d", f.seq), Status: models.UnitVacant}
	require.NoError(t, f.db.Create(&unit).Error)

	res, err := f.ledger.CreateLease(context.Background(), LeaseInput{
		RenterID:        renter.ID,
		UnitID:          unit.ID,
		StartDate:       *day(time.January, 1),
		RentAmount:      dec(rent),
		SecurityDeposit: dec(deposit),
		Activate:        true,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) newInvoice(t *testing.T, leaseID uint, typ models.InvoiceType, amount string, date *time.Time) *models.Invoice {
	t.Helper()
	inv, err := f.ledger.CreateInvoice(context.Background(), InvoiceInput{
		LeaseID:     leaseID,
		Type:        typ,
		Amount:      dec(amount),
		InvoiceDate: date,
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) reload(t *testing.T, id uint) models.Invoice {
	t.Helper()
	var inv models.Invoice
	require.NoError(t, f.db.First(&inv, id).Error)
	return inv
}

func (f *fixture) lease(t *testing.T, id uint) models.Lease {
	t.Helper()
	var lease models.Lease
	require.NoError(t, f.db.First(&lease, id).Error)
	return lease
}

func invoiceOfType(invoices []models.Invoice, typ models.InvoiceType) *models.Invoice {
	for i := range invoices {
		if invoices[i].InvoiceType == typ {
			return &invoices[i]
		}
	}
	return nil
}

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, errors.Is(err, kind), "want %v, got %v", kind, err)
}
