package services

import (
	"context"
	"testing"

	"rentledger-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settle activates a lease, pays its deposit in full and terminates it.
func settle(t *testing.T, f *fixture, rent, deposit string) (*LeaseResult, *SettlementResult) {
	t.Helper()
	res := f.newLease(t, rent, deposit)
	dep := invoiceOfType(res.Invoices, models.InvoiceSecurityDeposit)
	require.NotNil(t, dep)
	_, err := f.ledger.RecordPayment(context.Background(), PaymentInput{InvoiceID: &dep.ID, Amount: dec(deposit)})
	require.NoError(t, err)
	require.Equal(t, models.DepositPaid, f.lease(t, res.Lease.ID).DepositStatus)

	out, err := f.ledger.Terminate(context.Background(), res.Lease.ID)
	require.NoError(t, err)
	return res, out
}

func TestTerminateCharge(t *testing.T) {
	f := newFixture(t)
	res, out := settle(t, f, "7000", "5000")

	assert.Equal(t, SettlementCharge, out.Direction)
	requireDec(t, "7000", out.Outstanding)
	requireDec(t, "5000", out.PaidDeposit)
	requireDec(t, "2000", out.Due)
	require.NotNil(t, out.FinalInvoice)
	require.Len(t, out.Invoices, 1)
	assert.True(t, out.FinalInvoice.IsFinal)
	assert.Equal(t, models.InvoiceAdjustment, out.FinalInvoice.InvoiceType)
	requireDec(t, "2000", out.FinalInvoice.Amount)
	assert.Contains(t, out.FinalInvoice.Description, "Final settlement")

	lease := f.lease(t, res.Lease.ID)
	assert.Equal(t, models.LeaseTerminated, lease.Status)
	assert.Equal(t, models.DepositAdjusted, lease.DepositStatus)
	require.NotNil(t, lease.TerminationDate)
	assert.Equal(t, "2025-01-20", lease.TerminationDate.Format("2006-01-02"))

	var unit models.Unit
	require.NoError(t, f.db.First(&unit, lease.UnitID).Error)
	assert.Equal(t, models.UnitVacant, unit.Status)
	var renter models.Renter
	require.NoError(t, f.db.First(&renter, lease.RenterID).Error)
	assert.Equal(t, models.RenterFormer, renter.Status)

	balance, err := f.ledger.CurrentBalance(context.Background(), lease.ID)
	require.NoError(t, err)
	requireDec(t, "2000", balance)

	_, err = f.ledger.RecordPayment(context.Background(), PaymentInput{InvoiceID: &out.FinalInvoice.ID, Amount: dec("2000")})
	require.NoError(t, err)
	balance, err = f.ledger.CurrentBalance(context.Background(), lease.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestTerminateRefund(t *testing.T) {
	f := newFixture(t)
	res, out := settle(t, f, "1000", "5000")

	assert.Equal(t, SettlementRefund, out.Direction)
	requireDec(t, "4000", out.Refund)
	require.NotNil(t, out.FinalInvoice)
	requireDec(t, "4000", out.FinalInvoice.Amount)
	assert.True(t, out.FinalInvoice.IsFinal)
	assert.Contains(t, out.FinalInvoice.Description, "Refund")
	assert.Equal(t, models.DepositRefunded, f.lease(t, res.Lease.ID).DepositStatus)

	var finals int64
	require.NoError(t, f.db.Model(&models.Invoice{}).Where("lease_id = ? AND is_final = ?", res.Lease.ID, true).Count(&finals).Error)
	assert.EqualValues(t, 1, finals)
}

func TestTerminateExact(t *testing.T) {
	f := newFixture(t)
	res, out := settle(t, f, "3000", "3000")

	assert.Equal(t, SettlementExact, out.Direction)
	assert.Nil(t, out.FinalInvoice)
	assert.Empty(t, out.Invoices)
	assert.Equal(t, models.DepositAdjusted, f.lease(t, res.Lease.ID).DepositStatus)

	balance, err := f.ledger.CurrentBalance(context.Background(), res.Lease.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestTerminateWithoutPaidDeposit(t *testing.T) {
	f := newFixture(t)
	res := f.newLease(t, "1000", "0")

	out, err := f.ledger.Terminate(context.Background(), res.Lease.ID)
	require.NoError(t, err)
	assert.Equal(t, SettlementCharge, out.Direction)
	requireDec(t, "1000", out.FinalInvoice.Amount)
	assert.Equal(t, models.DepositAdjusted, f.lease(t, res.Lease.ID).DepositStatus)
}

func TestTerminateRejectsInactiveLease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, out := settle(t, f, "1000", "1000")

	_, err := f.ledger.Terminate(ctx, out.Lease.ID)
	requireKind(t, err, ErrInvalidState)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Details, "terminated")

	var renter models.Renter
	require.NoError(t, f.db.First(&renter).Error)
	draft, err := f.ledger.CreateLease(ctx, LeaseInput{
		RenterID: renter.ID, UnitID: out.Lease.UnitID, StartDate: *day(2, 1), RentAmount: dec("100"),
	})
	require.NoError(t, err)
	_, err = f.ledger.Terminate(ctx, draft.Lease.ID)
	requireKind(t, err, ErrInvalidState)

	_, err = f.ledger.Terminate(ctx, 4242)
	requireKind(t, err, ErrNotFound)
}

func TestTerminateKeepsRenterActiveWithOtherLease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.newLease(t, "500", "0")

	unit := models.Unit{Name: "Annex", Status: models.UnitVacant}
	require.NoError(t, f.db.Create(&unit).Error)
	_, err := f.ledger.CreateLease(ctx, LeaseInput{
		RenterID: first.Lease.RenterID, UnitID: unit.ID, StartDate: *day(1, 1),
		RentAmount: dec("300"), Activate: true,
	})
	require.NoError(t, err)

	_, err = f.ledger.Terminate(ctx, first.Lease.ID)
	require.NoError(t, err)

	var renter models.Renter
	require.NoError(t, f.db.First(&renter, first.Lease.RenterID).Error)
	assert.Equal(t, models.RenterActive, renter.Status)
}

func TestCreateInvoiceRejectedAfterTermination(t *testing.T) {
	f := newFixture(t)
	_, out := settle(t, f, "1000", "1000")

	_, err := f.ledger.CreateInvoice(context.Background(), InvoiceInput{
		LeaseID: out.Lease.ID, Type: models.InvoiceOther, Amount: dec("10"),
	})
	requireKind(t, err, ErrInvalidState)
}

func TestBulkPaymentRejectedAfterTermination(t *testing.T) {
	f := newFixture(t)
	res, out := settle(t, f, "7000", "5000")
	ctx := context.Background()

	before, err := f.ledger.CurrentBalance(ctx, res.Lease.ID)
	require.NoError(t, err)
	requireDec(t, "2000", before)

	_, err = f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: res.Lease.ID, Amount: dec("2000")})
	requireKind(t, err, ErrInvalidState)
	_, err = f.ledger.RecordPayment(ctx, PaymentInput{LeaseID: &res.Lease.ID, Amount: dec("2000")})
	requireKind(t, err, ErrInvalidState)

	var rentPaid []models.Invoice
	require.NoError(t, f.db.Where("lease_id = ? AND invoice_type = ? AND paid_amount > 0", res.Lease.ID, models.InvoiceRent).
		Find(&rentPaid).Error)
	assert.Empty(t, rentPaid)

	paid, err := f.ledger.RecordPayment(ctx, PaymentInput{InvoiceID: &out.FinalInvoice.ID, Amount: dec("2000")})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, paid.Invoice.Status)

	after, err := f.ledger.CurrentBalance(ctx, res.Lease.ID)
	require.NoError(t, err)
	requireDec(t, "0", after)
}

func TestBulkPaymentRejectedOnDraftLease(t *testing.T) {
	f := newFixture(t)
	res := f.newLease(t, "1000", "0")
	draft, err := f.ledger.CreateLease(context.Background(), LeaseInput{
		RenterID: res.Lease.RenterID, UnitID: res.Lease.UnitID, StartDate: *day(3, 1), RentAmount: dec("900"),
	})
	require.NoError(t, err)

	_, err = f.ledger.ApplyBulk(context.Background(), BulkPaymentInput{LeaseID: draft.Lease.ID, Amount: dec("100")})
	requireKind(t, err, ErrInvalidState)
}
