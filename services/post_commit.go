package services

import (
	"context"
	"fmt"

	"rentledger-backend/models"

	"github.com/shopspring/decimal"
)

// invoiceIssuedJobs renders the document first so the notification can
// link to it.
func (l *Ledger) invoiceIssuedJobs(invoice *models.Invoice) []Job {
	inv := *invoice
	return []Job{{
		Name: fmt.Sprintf("invoice_issued:%d", inv.ID),
		Run: func(ctx context.Context) error {
			if err := l.generateDocument(ctx, &inv); err != nil {
				l.log.Error().Err(err).Uint("invoice_id", inv.ID).Msg("document generation failed")
			}
			var lease models.Lease
			if err := l.db.WithContext(ctx).Preload("Renter").First(&lease, inv.LeaseID).Error; err != nil {
				return fmt.Errorf("load lease %d: %w", inv.LeaseID, err)
			}
			return l.notifyRenter(ctx, models.KindInvoiceCreated, lease.Renter, lease.ID, &inv, decimal.Zero)
		},
	}}
}

func (l *Ledger) documentJob(invoice *models.Invoice) Job {
	inv := *invoice
	return Job{
		Name: fmt.Sprintf("document:%d", inv.ID),
		Run: func(ctx context.Context) error {
			return l.generateDocument(ctx, &inv)
		},
	}
}

func (l *Ledger) notifyJob(kind models.NotificationKind, renter *models.Renter, leaseID uint, invoice *models.Invoice, amount decimal.Decimal) Job {
	var inv *models.Invoice
	if invoice != nil {
		c := *invoice
		inv = &c
	}
	return Job{
		Name: fmt.Sprintf("notify:%s:%d", kind, renter.ID),
		Run: func(ctx context.Context) error {
			return l.notifyRenter(ctx, kind, renter, leaseID, inv, amount)
		},
	}
}

// generateDocument renders the invoice and stores the document reference.
// Only pdf_path is written, so ledger fields are untouched.
func (l *Ledger) generateDocument(ctx context.Context, invoice *models.Invoice) error {
	if l.docs == nil {
		return nil
	}
	var fresh models.Invoice
	if err := l.db.WithContext(ctx).First(&fresh, invoice.ID).Error; err != nil {
		return fmt.Errorf("reload invoice %d: %w", invoice.ID, err)
	}
	ref, err := l.docs.Generate(ctx, &fresh)
	if err != nil {
		return fmt.Errorf("generate document for invoice %d: %w", invoice.ID, err)
	}
	if err := l.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", invoice.ID).
		UpdateColumn("pdf_path", ref).Error; err != nil {
		return fmt.Errorf("store document reference for invoice %d: %w", invoice.ID, err)
	}
	invoice.PDFPath = ref
	return nil
}
