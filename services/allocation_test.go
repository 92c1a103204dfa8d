package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBulkWaterfall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lease := f.newLease(t, "0", "0").Lease

	a := f.newInvoice(t, lease.ID, models.InvoiceOther, "100", day(time.January, 5))
	b := f.newInvoice(t, lease.ID, models.InvoiceOther, "50", day(time.January, 10))

	first, err := f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: lease.ID, Amount: dec("120")})
	require.NoError(t, err)
	require.Len(t, first.Allocations, 2)
	assert.Equal(t, a.ID, first.Allocations[0].InvoiceID)
	requireDec(t, "100", first.Allocations[0].AllocatedAmount)
	requireDec(t, "20", first.Allocations[1].AllocatedAmount)
	requireDec(t, "0", first.Unapplied)
	assert.Nil(t, first.Credit)

	gotA, gotB := f.reload(t, a.ID), f.reload(t, b.ID)
	assert.Equal(t, models.InvoicePaid, gotA.Status)
	requireDec(t, "20", gotB.PaidAmount)
	assert.Equal(t, models.InvoicePartiallyPaid, gotB.Status)

	second, err := f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: lease.ID, Amount: dec("300")})
	require.NoError(t, err)
	require.Len(t, second.Allocations, 1)
	requireDec(t, "30", second.TotalAllocated)
	requireDec(t, "270", second.Unapplied)
	require.NotNil(t, second.Credit)
	requireDec(t, "270", second.Credit.Amount)
	assert.True(t, second.Credit.IsCredit())

	gotB = f.reload(t, b.ID)
	assert.Equal(t, models.InvoicePaid, gotB.Status)
	requireDec(t, "50", gotB.PaidAmount)
	requireDec(t, "0", second.Balance)
	assert.Empty(t, second.Outstanding)
}

func TestApplyBulkBothInvoicesFromScratch(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "0", "0").Lease
	f.newInvoice(t, lease.ID, models.InvoiceOther, "100", day(time.January, 5))
	f.newInvoice(t, lease.ID, models.InvoiceOther, "50", day(time.January, 10))

	res, err := f.ledger.ApplyBulk(context.Background(), BulkPaymentInput{LeaseID: lease.ID, Amount: dec("300")})
	require.NoError(t, err)
	requireDec(t, "150", res.TotalAllocated)
	requireDec(t, "150", res.Unapplied)
	require.Len(t, res.Payments, 2)
	for _, p := range res.Payments {
		require.NotNil(t, p.BatchID)
		assert.Equal(t, res.BatchID, *p.BatchID)
	}
	require.NotNil(t, res.Credit)
	assert.Equal(t, res.BatchID, *res.Credit.BatchID)
}

func TestApplyBulkSkipsDepositAndAdjustment(t *testing.T) {
	f := newFixture(t)
	res := f.newLease(t, "1000", "500")
	lease := res.Lease
	adj := f.newInvoice(t, lease.ID, models.InvoiceAdjustment, "200", day(time.January, 2))

	bulk, err := f.ledger.ApplyBulk(context.Background(), BulkPaymentInput{LeaseID: lease.ID, Amount: dec("1000")})
	require.NoError(t, err)
	require.Len(t, bulk.Allocations, 1)

	rent := invoiceOfType(res.Invoices, models.InvoiceRent)
	require.NotNil(t, rent)
	assert.Equal(t, rent.ID, bulk.Allocations[0].InvoiceID)

	deposit := invoiceOfType(res.Invoices, models.InvoiceSecurityDeposit)
	require.NotNil(t, deposit)
	requireDec(t, "0", f.reload(t, deposit.ID).PaidAmount)
	requireDec(t, "0", f.reload(t, adj.ID).PaidAmount)
}

func TestBalanceAfterBulk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lease := f.newLease(t, "1000", "0").Lease
	f.newInvoice(t, lease.ID, models.InvoiceOther, "250.50", day(time.January, 15))

	before, err := f.ledger.CurrentBalance(ctx, lease.ID)
	require.NoError(t, err)
	requireDec(t, "1250.50", before)

	res, err := f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: lease.ID, Amount: dec("1100.25")})
	require.NoError(t, err)

	after, err := f.ledger.CurrentBalance(ctx, lease.ID)
	require.NoError(t, err)
	requireDec(t, before.Sub(res.TotalAllocated).String(), after)
	requireDec(t, "150.25", after)
	requireDec(t, "150.25", res.Balance)
}

func TestApplyBulkRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "1000", "0").Lease

	for _, amount := range []string{"0", "-5", "0.004"} {
		_, err := f.ledger.ApplyBulk(context.Background(), BulkPaymentInput{LeaseID: lease.ID, Amount: dec(amount)})
		requireKind(t, err, ErrInvalidAmount)
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApplyBulkUnknownLease(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ApplyBulk(context.Background(), BulkPaymentInput{LeaseID: 999, Amount: dec("10")})
	requireKind(t, err, ErrNotFound)
}

func TestApplyToInvoiceOverpayment(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "0", "0").Lease
	inv := f.newInvoice(t, lease.ID, models.InvoiceOther, "100", nil)

	_, err := f.ledger.ApplyToInvoice(context.Background(), inv.ID, dec("150"))
	requireKind(t, err, ErrOverpayment)

	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, inv.ID, le.InvoiceID)
	require.NotNil(t, le.Balance)
	requireDec(t, "100", *le.Balance)

	got := f.reload(t, inv.ID)
	requireDec(t, "0", got.PaidAmount)
	assert.Equal(t, models.InvoiceUnpaid, got.Status)
}

func TestApplyToInvoicePartialThenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lease := f.newLease(t, "0", "0").Lease
	inv := f.newInvoice(t, lease.ID, models.InvoiceOther, "100", nil)

	got, err := f.ledger.ApplyToInvoice(ctx, inv.ID, dec("40"))
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePartiallyPaid, got.Status)

	got, err = f.ledger.ApplyToInvoice(ctx, inv.ID, dec("60"))
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, got.Status)
	requireDec(t, "100", f.reload(t, inv.ID).PaidAmount)

	_, err = f.ledger.ApplyToInvoice(ctx, inv.ID, dec("0.01"))
	requireKind(t, err, ErrOverpayment)
}

func TestApplyToCancelledInvoice(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "0", "0").Lease
	inv := f.newInvoice(t, lease.ID, models.InvoiceOther, "100", nil)
	require.NoError(t, f.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).
		UpdateColumn("status", models.InvoiceCancelled).Error)

	_, err := f.ledger.ApplyToInvoice(context.Background(), inv.ID, dec("10"))
	requireKind(t, err, ErrInvalidState)
}

func TestDepositPaymentMarksDepositPaid(t *testing.T) {
	f := newFixture(t)
	ctx := utils.WithActor(context.Background(), "staff-7")
	res := f.newLease(t, "1000", "3000")
	deposit := invoiceOfType(res.Invoices, models.InvoiceSecurityDeposit)
	require.NotNil(t, deposit)

	_, err := f.ledger.RecordPayment(ctx, PaymentInput{InvoiceID: &deposit.ID, Amount: dec("1000")})
	require.NoError(t, err)
	assert.Equal(t, models.DepositPending, f.lease(t, res.Lease.ID).DepositStatus)

	pay, err := f.ledger.RecordPayment(ctx, PaymentInput{InvoiceID: &deposit.ID, Amount: dec("2000"), Method: models.MethodBank})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, pay.Invoice.Status)
	assert.Equal(t, models.MethodBank, pay.Payment.Method)
	assert.Equal(t, "staff-7", pay.Payment.CreatedBy)

	lease := f.lease(t, res.Lease.ID)
	assert.Equal(t, models.DepositPaid, lease.DepositStatus)
	assert.Equal(t, "staff-7", lease.UpdatedBy)
}

func TestRecordPaymentRequiresOneTarget(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "1000", "0").Lease
	invoiceID := uint(1)

	_, err := f.ledger.RecordPayment(context.Background(), PaymentInput{Amount: dec("10")})
	requireKind(t, err, ErrInvalidInput)

	_, err = f.ledger.RecordPayment(context.Background(), PaymentInput{
		InvoiceID: &invoiceID, LeaseID: &lease.ID, Amount: dec("10"),
	})
	requireKind(t, err, ErrInvalidInput)
}

func TestRecordPaymentForLeaseRunsWaterfall(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "1000", "0").Lease

	res, err := f.ledger.RecordPayment(context.Background(), PaymentInput{LeaseID: &lease.ID, Amount: dec("600")})
	require.NoError(t, err)
	require.NotNil(t, res.Bulk)
	requireDec(t, "600", res.Bulk.TotalAllocated)
	requireDec(t, "400", res.Bulk.Balance)
}

func TestRecordPaymentRejectsUnknownMethod(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "1000", "0").Lease

	_, err := f.ledger.ApplyBulk(context.Background(), BulkPaymentInput{
		LeaseID: lease.ID, Amount: dec("10"), Method: models.PaymentMethod("cheque"),
	})
	requireKind(t, err, ErrInvalidInput)
}

func TestConcurrentBulkPaymentsDoNotDoubleAllocate(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, "150", "0").Lease

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*BulkResult
	)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := f.ledger.ApplyBulk(context.Background(), BulkPaymentInput{LeaseID: lease.ID, Amount: dec("100")})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, results, 2)
	allocated := results[0].TotalAllocated.Add(results[1].TotalAllocated)
	unapplied := results[0].Unapplied.Add(results[1].Unapplied)
	requireDec(t, "150", allocated)
	requireDec(t, "50", unapplied)

	var invoices []models.Invoice
	require.NoError(t, f.db.Where("lease_id = ?", lease.ID).Find(&invoices).Error)
	require.Len(t, invoices, 1)
	requireDec(t, "150", invoices[0].PaidAmount)
	assert.Equal(t, models.InvoicePaid, invoices[0].Status)

	balance, err := f.ledger.CurrentBalance(context.Background(), lease.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestPaidAmountNeverExceedsAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lease := f.newLease(t, "333.33", "0").Lease
	f.newInvoice(t, lease.ID, models.InvoiceOther, "66.67", day(time.January, 3))

	for _, amount := range []string{"0.01", "100", "33.33", "250", "17.5"} {
		_, err := f.ledger.ApplyBulk(ctx, BulkPaymentInput{LeaseID: lease.ID, Amount: dec(amount)})
		require.NoError(t, err)
	}

	var invoices []models.Invoice
	require.NoError(t, f.db.Where("lease_id = ?", lease.ID).Find(&invoices).Error)
	for _, inv := range invoices {
		assert.False(t, inv.PaidAmount.IsNegative())
		assert.True(t, inv.PaidAmount.LessThanOrEqual(inv.Amount), "invoice %d overpaid", inv.ID)
		assert.Equal(t, models.DeriveInvoiceStatus(inv.Amount, inv.PaidAmount, models.InvoiceUnpaid), inv.Status)
	}
	assert.True(t, decimal.Zero.Equal(utils.SumDecimal(invoices[0].Balance(), invoices[1].Balance())))
}
