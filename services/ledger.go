package services

import (
	"context"
	"fmt"
	"time"

	"rentledger-backend/logger"
	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultRentDueDay = 10

type LedgerOptions struct {
	Documents DocumentGenerator
	Notifier  NotificationDispatcher
	// Queue defers post-commit work. Nil runs it inline after commit.
	Queue      Enqueuer
	RentDueDay int
	Currency   string
	SiteURL    string
	Now        func() time.Time
}

// Ledger owns every write to invoice balances, invoice status, deposit
// status and lease status.
type Ledger struct {
	db         *gorm.DB
	docs       DocumentGenerator
	notifier   NotificationDispatcher
	queue      Enqueuer
	rentDueDay int
	currency   string
	siteURL    string
	now        func() time.Time
	locks      *leaseLocks
	log        zerolog.Logger
}

func NewLedger(db *gorm.DB, opts LedgerOptions) *Ledger {
	l := &Ledger{
		db:         db,
		docs:       opts.Documents,
		notifier:   opts.Notifier,
		queue:      opts.Queue,
		rentDueDay: opts.RentDueDay,
		currency:   opts.Currency,
		siteURL:    opts.SiteURL,
		now:        opts.Now,
		locks:      newLeaseLocks(),
		log:        logger.WithComponent("ledger"),
	}
	if l.rentDueDay < 1 || l.rentDueDay > 28 {
		l.rentDueDay = defaultRentDueDay
	}
	if l.currency == "" {
		l.currency = "BDT"
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

func (l *Ledger) today() time.Time {
	return utils.DateOnly(l.now())
}

// CurrentMonth is the first day of the ledger's current month.
func (l *Ledger) CurrentMonth() time.Time {
	return utils.FirstOfMonth(l.today())
}

// inTx runs fn in a transaction and commits only if fn returns nil.
func (l *Ledger) inTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := l.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// lockLease reads the lease row with FOR UPDATE. sqlite ignores the clause;
// the in-process lease mutex covers it there.
func lockLease(tx *gorm.DB, op string, leaseID uint) (*models.Lease, error) {
	var lease models.Lease
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&lease, leaseID).Error
	if err != nil {
		if le, ok := storageErr(op, err).(*LedgerError); ok {
			le.LeaseID = leaseID
			return nil, le
		}
		return nil, err
	}
	return &lease, nil
}

// afterCommit hands post-commit work to the queue, or runs it inline.
// Failures are logged only; the committed ledger state stands.
func (l *Ledger) afterCommit(ctx context.Context, jobs ...Job) {
	for _, job := range jobs {
		if l.queue != nil && l.queue.Enqueue(job) {
			continue
		}
		if err := job.Run(context.WithoutCancel(ctx)); err != nil {
			l.log.Error().Err(err).Str("job", job.Name).Msg("post-commit job failed")
		}
	}
}

// openInvoices returns the lease's allocatable invoices in allocation order.
func openInvoices(tx *gorm.DB, leaseID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := tx.
		Where("lease_id = ? AND status IN ? AND invoice_type NOT IN ?", leaseID, models.OpenStatuses, models.NonAllocatableTypes).
		Order("invoice_date asc, id asc").
		Find(&invoices).Error
	return invoices, err
}

// outstandingOf sums the balances of the lease's allocatable open invoices.
func outstandingOf(tx *gorm.DB, leaseID uint) (decimal.Decimal, []models.Invoice, error) {
	invoices, err := openInvoices(tx, leaseID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	balances := make([]decimal.Decimal, len(invoices))
	for i := range invoices {
		balances[i] = invoices[i].Balance()
	}
	return utils.SumDecimal(balances...), invoices, nil
}

func describeLease(id uint) string {
	return fmt.Sprintf("Lease %d", id)
}
