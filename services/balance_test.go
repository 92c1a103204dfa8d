package services

import (
	"context"
	"testing"
	"time"

	"rentledger-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseStatement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.newLease(t, "1000", "2000")
	lease := res.Lease
	f.newInvoice(t, lease.ID, models.InvoiceOther, "250", day(time.January, 12))

	deposit := invoiceOfType(res.Invoices, models.InvoiceSecurityDeposit)
	_, err := f.ledger.RecordPayment(ctx, PaymentInput{InvoiceID: &deposit.ID, Amount: dec("2000")})
	require.NoError(t, err)
	_, err = f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: lease.ID, Amount: dec("1300")})
	require.NoError(t, err)

	st, err := f.ledger.LeaseStatement(ctx, lease.ID)
	require.NoError(t, err)
	require.NotNil(t, st.Lease.Renter)
	require.NotNil(t, st.Lease.Unit)
	assert.Len(t, st.Invoices, 3)
	assert.Len(t, st.Payments, 4)
	requireDec(t, "3250", st.TotalInvoiced)
	requireDec(t, "3300", st.TotalPaid)
	requireDec(t, "50", st.Credit)
	assert.True(t, st.Balance.IsZero())
}

func TestListPaymentsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newLease(t, "500", "0").Lease
	b := f.newLease(t, "700", "0").Lease

	_, err := f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: a.ID, Amount: dec("600")})
	require.NoError(t, err)
	res, err := f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: b.ID, Amount: dec("100")})
	require.NoError(t, err)

	forA, err := f.ledger.ListPayments(ctx, PaymentFilter{LeaseID: &a.ID})
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.NotNil(t, forA[0].InvoiceID)
	assert.True(t, forA[1].IsCredit())

	invoiceID := res.Allocations[0].InvoiceID
	forInvoice, err := f.ledger.ListPayments(ctx, PaymentFilter{InvoiceID: &invoiceID})
	require.NoError(t, err)
	require.Len(t, forInvoice, 1)
	requireDec(t, "100", forInvoice[0].Amount)
}

func TestGetInvoiceWithPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lease := f.newLease(t, "0", "0").Lease
	inv := f.newInvoice(t, lease.ID, models.InvoiceOther, "90", nil)
	_, err := f.ledger.RecordPayment(ctx, PaymentInput{InvoiceID: &inv.ID, Amount: dec("30")})
	require.NoError(t, err)
	_, err = f.ledger.RecordPayment(ctx, PaymentInput{InvoiceID: &inv.ID, Amount: dec("30")})
	require.NoError(t, err)

	got, err := f.ledger.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Payments, 2)
	requireDec(t, "30", got.Balance())

	_, err = f.ledger.GetInvoice(ctx, 12345)
	requireKind(t, err, ErrNotFound)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.EqualValues(t, 12345, le.InvoiceID)
}

func TestListInvoicesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lease := f.newLease(t, "1000", "500").Lease
	f.newInvoice(t, lease.ID, models.InvoiceOther, "10", nil)

	all, total, err := f.ledger.ListInvoices(ctx, InvoiceFilter{LeaseID: &lease.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	rent, total, err := f.ledger.ListInvoices(ctx, InvoiceFilter{Type: string(models.InvoiceRent)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.InvoiceRent, rent[0].InvoiceType)
}

func TestOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newLease(t, "1000", "0").Lease
	f.newLease(t, "2000", "0")
	require.NoError(t, f.db.Create(&models.Unit{Name: "Spare", Status: models.UnitVacant}).Error)

	_, err := f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: a.ID, Amount: dec("400")})
	require.NoError(t, err)

	ov, err := f.ledger.Overview(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, ov.ActiveLeases)
	assert.EqualValues(t, 1, ov.VacantUnits)
	requireDec(t, "2600", ov.TotalOutstanding)
	requireDec(t, "400", ov.CollectedThisMonth)
	assert.EqualValues(t, 2, ov.OverdueInvoices)
}

func TestOutstandingInvoices(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "1000", "5000").Lease
	f.newInvoice(t, lease.ID, models.InvoiceOther, "20", day(time.January, 2))

	invoices, total, err := f.ledger.OutstandingInvoices(context.Background(), lease.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, models.InvoiceOther, invoices[0].InvoiceType)
	requireDec(t, "1020", total)
}
