package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const TaskGenerateMonthlyRent = "generate_monthly_rent"

type InvoiceInput struct {
	LeaseID     uint
	Type        models.InvoiceType
	Amount      decimal.Decimal
	InvoiceDate *time.Time // defaults to today
	DueDate     *time.Time // defaults to invoice date + 7 days
	Month       *time.Time // rent only; defaults to the invoice date's month
	Description string
	Draft       bool

	isFinal bool
}

// CreateInvoice persists a new invoice with nothing paid and assigns its
// number. Document generation and notification run after commit.
func (l *Ledger) CreateInvoice(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	const op = "CreateInvoice"

	unlock := l.locks.Lock(in.LeaseID)
	defer unlock()

	var invoice *models.Invoice
	err := l.inTx(ctx, func(tx *gorm.DB) error {
		lease, err := lockLease(tx, op, in.LeaseID)
		if err != nil {
			return err
		}
		switch lease.Status {
		case models.LeaseTerminated, models.LeaseCompleted, models.LeaseCancelled:
			return &LedgerError{Op: op, Err: ErrInvalidState, LeaseID: lease.ID,
				Details: fmt.Sprintf("lease is %s", lease.Status)}
		}
		invoice, err = l.createInvoiceTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	if invoice.Status == models.InvoiceDraft {
		l.afterCommit(ctx, l.documentJob(invoice))
		return invoice, nil
	}
	l.afterCommit(ctx, l.invoiceIssuedJobs(invoice)...)
	return invoice, nil
}

// IssueInvoice moves a draft invoice to unpaid, making it part of the
// balance and the bulk waterfall, and notifies the renter.
func (l *Ledger) IssueInvoice(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	const op = "IssueInvoice"

	leaseID, err := l.leaseOfInvoice(ctx, op, invoiceID)
	if err != nil {
		return nil, err
	}
	unlock := l.locks.Lock(leaseID)
	defer unlock()

	var invoice models.Invoice
	err = l.inTx(ctx, func(tx *gorm.DB) error {
		lease, err := lockLease(tx, op, leaseID)
		if err != nil {
			return err
		}
		switch lease.Status {
		case models.LeaseTerminated, models.LeaseCompleted, models.LeaseCancelled:
			return &LedgerError{Op: op, Err: ErrInvalidState, LeaseID: lease.ID, InvoiceID: invoiceID,
				Details: fmt.Sprintf("lease is %s", lease.Status)}
		}
		if err := tx.First(&invoice, invoiceID).Error; err != nil {
			return storageErr(op, err)
		}
		if invoice.Status != models.InvoiceDraft {
			return &LedgerError{Op: op, Err: ErrInvalidState, LeaseID: lease.ID, InvoiceID: invoice.ID,
				Details: fmt.Sprintf("invoice is %s, expected draft", invoice.Status)}
		}

		invoice.Status = models.InvoiceUnpaid
		invoice.UpdatedBy = utils.ActorFromContext(ctx)
		return storageErr(op, tx.Model(&invoice).Select("status", "updated_by", "updated_at").Updates(&invoice).Error)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().Uint("invoice_id", invoice.ID).Uint("lease_id", leaseID).Msg("invoice issued")
	l.afterCommit(ctx, l.invoiceIssuedJobs(&invoice)...)
	return &invoice, nil
}

// createInvoiceTx validates and inserts an invoice inside tx, then patches
// the invoice number once the id is known.
func (l *Ledger) createInvoiceTx(ctx context.Context, tx *gorm.DB, in InvoiceInput) (*models.Invoice, error) {
	const op = "CreateInvoice"

	amount := utils.Round2(in.Amount)
	if !amount.IsPositive() {
		return nil, &LedgerError{Op: op, Err: ErrInvalidAmount, LeaseID: in.LeaseID, Amount: decPtr(amount),
			Details: "amount must be greater than zero"}
	}
	if !models.ValidInvoiceType(string(in.Type)) {
		return nil, &LedgerError{Op: op, Err: ErrInvalidInput, LeaseID: in.LeaseID,
			Details: fmt.Sprintf("unknown invoice type %q", in.Type)}
	}

	invoiceDate := l.today()
	if in.InvoiceDate != nil {
		invoiceDate = utils.DateOnly(*in.InvoiceDate)
	}
	dueDate := invoiceDate.AddDate(0, 0, 7)
	if in.DueDate != nil {
		dueDate = utils.DateOnly(*in.DueDate)
	}

	var month *time.Time
	if in.Month != nil {
		m := utils.FirstOfMonth(utils.DateOnly(*in.Month))
		month = &m
	}
	if in.Type == models.InvoiceRent {
		if month == nil {
			m := utils.FirstOfMonth(invoiceDate)
			month = &m
		}
		exists, err := rentInvoiceExists(tx, in.LeaseID, *month)
		if err != nil {
			return nil, storageErr(op, err)
		}
		if exists {
			return nil, duplicateRentErr(op, in.LeaseID, *month)
		}
	}

	status := models.InvoiceUnpaid
	if in.Draft {
		status = models.InvoiceDraft
	}
	actor := utils.ActorFromContext(ctx)
	invoice := &models.Invoice{
		LeaseID:      in.LeaseID,
		InvoiceType:  in.Type,
		InvoiceDate:  invoiceDate,
		DueDate:      dueDate,
		InvoiceMonth: month,
		Amount:       amount,
		PaidAmount:   decimal.Zero,
		Status:       status,
		IsFinal:      in.isFinal,
		Description:  in.Description,
		CreatedBy:    actor,
		UpdatedBy:    actor,
	}
	if err := tx.Create(invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && month != nil {
			return nil, duplicateRentErr(op, in.LeaseID, *month)
		}
		return nil, storageErr(op, err)
	}

	number := models.InvoiceNumberFor(invoice.InvoiceDate, invoice.ID)
	if err := tx.Model(invoice).UpdateColumn("invoice_number", number).Error; err != nil {
		return nil, storageErr(op, err)
	}
	invoice.InvoiceNumber = &number

	l.log.Info().
		Uint("lease_id", invoice.LeaseID).
		Uint("invoice_id", invoice.ID).
		Str("type", string(invoice.InvoiceType)).
		Str("amount", invoice.Amount.StringFixed(2)).
		Msg("invoice created")
	return invoice, nil
}

func rentInvoiceExists(tx *gorm.DB, leaseID uint, month time.Time) (bool, error) {
	var count int64
	err := tx.Model(&models.Invoice{}).
		Where("lease_id = ? AND invoice_type = ? AND invoice_month = ?", leaseID, models.InvoiceRent, month).
		Count(&count).Error
	return count > 0, err
}

func duplicateRentErr(op string, leaseID uint, month time.Time) error {
	return &LedgerError{Op: op, Err: ErrDuplicateInvoice, LeaseID: leaseID,
		Details: fmt.Sprintf("rent invoice for %s already exists", month.Format("2006-01"))}
}

type LeaseInput struct {
	RenterID        uint
	UnitID          uint
	StartDate       time.Time
	EndDate         *time.Time
	RentAmount      decimal.Decimal
	SecurityDeposit decimal.Decimal
	Activate        bool
}

type LeaseResult struct {
	Lease    *models.Lease    `json:"lease"`
	Invoices []models.Invoice `json:"invoices"`
}

// CreateLease stores a draft lease and optionally activates it.
func (l *Ledger) CreateLease(ctx context.Context, in LeaseInput) (*LeaseResult, error) {
	const op = "CreateLease"

	rent := utils.Round2(in.RentAmount)
	deposit := utils.Round2(in.SecurityDeposit)
	if rent.IsNegative() || deposit.IsNegative() {
		return nil, &LedgerError{Op: op, Err: ErrInvalidAmount, Details: "rent and deposit must not be negative"}
	}
	if in.StartDate.IsZero() {
		return nil, &LedgerError{Op: op, Err: ErrInvalidInput, Details: "start date is required"}
	}
	start := utils.DateOnly(in.StartDate)
	var end *time.Time
	if in.EndDate != nil {
		e := utils.DateOnly(*in.EndDate)
		if e.Before(start) {
			return nil, &LedgerError{Op: op, Err: ErrInvalidInput, Details: "end date is before start date"}
		}
		end = &e
	}

	if err := l.db.WithContext(ctx).First(&models.Renter{}, in.RenterID).Error; err != nil {
		return nil, withDetails(storageErr(op, err), "renter not found")
	}
	if err := l.db.WithContext(ctx).First(&models.Unit{}, in.UnitID).Error; err != nil {
		return nil, withDetails(storageErr(op, err), "unit not found")
	}

	actor := utils.ActorFromContext(ctx)
	lease := &models.Lease{
		RenterID:        in.RenterID,
		UnitID:          in.UnitID,
		StartDate:       start,
		EndDate:         end,
		RentAmount:      rent,
		SecurityDeposit: deposit,
		DepositStatus:   models.DepositPending,
		Status:          models.LeaseDraft,
		CreatedBy:       actor,
		UpdatedBy:       actor,
	}
	if err := l.db.WithContext(ctx).Create(lease).Error; err != nil {
		return nil, storageErr(op, err)
	}

	if !in.Activate {
		return &LeaseResult{Lease: lease}, nil
	}
	return l.ActivateLease(ctx, lease.ID)
}

// ActivateLease moves a draft lease to active, occupies the unit and issues
// the deposit invoice and the first month's rent invoice.
func (l *Ledger) ActivateLease(ctx context.Context, leaseID uint) (*LeaseResult, error) {
	const op = "ActivateLease"

	unlock := l.locks.Lock(leaseID)
	defer unlock()

	var (
		lease  *models.Lease
		issued []models.Invoice
	)
	err := l.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		lease, err = lockLease(tx, op, leaseID)
		if err != nil {
			return err
		}
		if lease.Status != models.LeaseDraft {
			return &LedgerError{Op: op, Err: ErrInvalidState, LeaseID: leaseID,
				Details: fmt.Sprintf("lease is %s, expected draft", lease.Status)}
		}

		var unit models.Unit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&unit, lease.UnitID).Error; err != nil {
			return withDetails(storageErr(op, err), "unit not found")
		}
		var active int64
		if err := tx.Model(&models.Lease{}).
			Where("unit_id = ? AND status = ? AND id <> ?", lease.UnitID, models.LeaseActive, lease.ID).
			Count(&active).Error; err != nil {
			return storageErr(op, err)
		}
		if active > 0 {
			return &LedgerError{Op: op, Err: ErrInvalidState, LeaseID: leaseID,
				Details: fmt.Sprintf("unit %d already has an active lease", lease.UnitID)}
		}

		actor := utils.ActorFromContext(ctx)
		lease.Status = models.LeaseActive
		lease.UpdatedBy = actor
		if err := tx.Model(lease).Select("status", "updated_by", "updated_at").Updates(lease).Error; err != nil {
			return storageErr(op, err)
		}
		if err := tx.Model(&unit).Update("status", models.UnitOccupied).Error; err != nil {
			return storageErr(op, err)
		}
		if err := tx.Model(&models.Renter{}).Where("id = ?", lease.RenterID).
			Update("status", models.RenterActive).Error; err != nil {
			return storageErr(op, err)
		}

		today := l.today()
		dueThisMonth := utils.DayInMonth(today, l.rentDueDay)
		if lease.SecurityDeposit.IsPositive() {
			inv, err := l.createInvoiceTx(ctx, tx, InvoiceInput{
				LeaseID:     lease.ID,
				Type:        models.InvoiceSecurityDeposit,
				Amount:      lease.SecurityDeposit,
				InvoiceDate: &today,
				DueDate:     &dueThisMonth,
				Description: "Security deposit for " + describeLease(lease.ID),
			})
			if err != nil {
				return err
			}
			issued = append(issued, *inv)
		}

		startMonth := utils.FirstOfMonth(lease.StartDate)
		if lease.RentAmount.IsPositive() {
			exists, err := rentInvoiceExists(tx, lease.ID, startMonth)
			if err != nil {
				return storageErr(op, err)
			}
			if !exists {
				due := utils.DayInMonth(startMonth, l.rentDueDay)
				inv, err := l.createInvoiceTx(ctx, tx, InvoiceInput{
					LeaseID:     lease.ID,
					Type:        models.InvoiceRent,
					Amount:      lease.RentAmount,
					InvoiceDate: &today,
					DueDate:     &due,
					Month:       &startMonth,
					Description: "Rent for " + utils.MonthLabel(startMonth),
				})
				if err != nil {
					return err
				}
				issued = append(issued, *inv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info().Uint("lease_id", lease.ID).Int("invoices", len(issued)).Msg("lease activated")
	for i := range issued {
		l.afterCommit(ctx, l.invoiceIssuedJobs(&issued[i])...)
	}
	return &LeaseResult{Lease: lease, Invoices: issued}, nil
}

// RentRunOutcome is the result for one lease in a rent generation run.
type RentRunOutcome struct {
	LeaseID   uint   `json:"leaseId"`
	InvoiceID uint   `json:"invoiceId,omitempty"`
	Result    string `json:"result"` // created, skipped, failed
	Message   string `json:"message,omitempty"`
}

type RentRunResult struct {
	Month    time.Time        `json:"month"`
	Created  int              `json:"created"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Outcomes []RentRunOutcome `json:"outcomes"`
	TaskLog  *models.TaskLog  `json:"taskLog,omitempty"`
}

// GenerateMonthlyRent issues the month's rent invoice for every active lease.
// Repeated runs for the same month create nothing new.
func (l *Ledger) GenerateMonthlyRent(ctx context.Context, month time.Time) (*RentRunResult, error) {
	const op = "GenerateMonthlyRent"

	started := l.now()
	month = utils.FirstOfMonth(utils.DateOnly(month))
	monthEnd := month.AddDate(0, 1, -1)

	var leases []models.Lease
	if err := l.db.WithContext(ctx).Where("status = ?", models.LeaseActive).Order("id asc").Find(&leases).Error; err != nil {
		return nil, storageErr(op, err)
	}

	result := &RentRunResult{Month: month}
	var issued []*models.Invoice
	for _, lease := range leases {
		outcome := RentRunOutcome{LeaseID: lease.ID}
		switch {
		case !lease.RentAmount.IsPositive():
			outcome.Result, outcome.Message = "skipped", "no rent amount"
		case lease.StartDate.After(monthEnd):
			outcome.Result, outcome.Message = "skipped", "lease starts after month"
		case lease.EndDate != nil && lease.EndDate.Before(month):
			outcome.Result, outcome.Message = "skipped", "lease ended before month"
		default:
			inv, err := l.createRentInvoice(ctx, lease, month)
			switch {
			case errors.Is(err, ErrDuplicateInvoice):
				outcome.Result, outcome.Message = "skipped", "already invoiced"
			case err != nil:
				outcome.Result, outcome.Message = "failed", err.Error()
				l.log.Error().Err(err).Uint("lease_id", lease.ID).Msg("rent invoice failed")
			default:
				outcome.Result, outcome.InvoiceID = "created", inv.ID
				issued = append(issued, inv)
			}
		}
		switch outcome.Result {
		case "created":
			result.Created++
		case "skipped":
			result.Skipped++
		default:
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	for _, inv := range issued {
		l.afterCommit(ctx, l.invoiceIssuedJobs(inv)...)
	}

	taskLog, err := l.writeTaskLog(ctx, TaskGenerateMonthlyRent, started, result.Created, result.Skipped, result.Failed, result)
	if err != nil {
		l.log.Error().Err(err).Msg("task log write failed")
	}
	result.TaskLog = taskLog

	l.log.Info().
		Str("month", month.Format("2006-01")).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("monthly rent generated")
	return result, nil
}

func (l *Ledger) createRentInvoice(ctx context.Context, lease models.Lease, month time.Time) (*models.Invoice, error) {
	unlock := l.locks.Lock(lease.ID)
	defer unlock()

	var invoice *models.Invoice
	err := l.inTx(ctx, func(tx *gorm.DB) error {
		current, err := lockLease(tx, "GenerateMonthlyRent", lease.ID)
		if err != nil {
			return err
		}
		if !current.IsActive() {
			return &LedgerError{Op: "GenerateMonthlyRent", Err: ErrInvalidState, LeaseID: lease.ID,
				Details: fmt.Sprintf("lease is %s", current.Status)}
		}
		due := utils.DayInMonth(month, l.rentDueDay)
		today := l.today()
		invoice, err = l.createInvoiceTx(ctx, tx, InvoiceInput{
			LeaseID:     lease.ID,
			Type:        models.InvoiceRent,
			Amount:      current.RentAmount,
			InvoiceDate: &today,
			DueDate:     &due,
			Month:       &month,
			Description: "Monthly rent for " + utils.MonthLabel(month),
		})
		return err
	})
	return invoice, err
}

func (l *Ledger) writeTaskLog(ctx context.Context, name string, started time.Time, created, skipped, failed int, details interface{}) (*models.TaskLog, error) {
	status := models.TaskSuccess
	switch {
	case failed > 0:
		status = models.TaskFailed
	case created == 0:
		status = models.TaskSkipped
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	entry := &models.TaskLog{
		TaskName:  name,
		Status:    status,
		Message:   fmt.Sprintf("Created: %d, Skipped: %d, Failed: %d", created, skipped, failed),
		Details:   raw,
		StartedAt: started,
		EndedAt:   l.now(),
	}
	if err := l.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// withDetails sets Details on a LedgerError.
func withDetails(err error, details string) error {
	var le *LedgerError
	if errors.As(err, &le) && le.Details == "" {
		le.Details = details
	}
	return err
}
