package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rentledger-backend/logger"
	"rentledger-backend/models"
	"rentledger-backend/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// PDFGenerator renders invoices to PDF files under Dir and returns the path
// relative to Dir.
type PDFGenerator struct {
	db       *gorm.DB
	Dir      string
	Currency string
	Landlord string
	log      zerolog.Logger
}

func NewPDFGenerator(db *gorm.DB, dir, currency string) *PDFGenerator {
	return &PDFGenerator{
		db:       db,
		Dir:      dir,
		Currency: currency,
		Landlord: "Rent Ledger",
		log:      logger.WithComponent("documents"),
	}
}

func (g *PDFGenerator) Generate(ctx context.Context, invoice *models.Invoice) (string, error) {
	var lease models.Lease
	if err := g.db.WithContext(ctx).Preload("Renter").Preload("Unit").First(&lease, invoice.LeaseID).Error; err != nil {
		return "", fmt.Errorf("load lease %d: %w", invoice.LeaseID, err)
	}

	rel := filepath.Join("invoices", fmt.Sprintf("%s.pdf", g.fileName(invoice)))
	abs := filepath.Join(g.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}

	pdf := g.render(invoice, &lease)
	if err := pdf.OutputFileAndClose(abs); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	g.log.Debug().Uint("invoice_id", invoice.ID).Str("path", abs).Msg("invoice document written")
	return filepath.ToSlash(rel), nil
}

func (g *PDFGenerator) fileName(invoice *models.Invoice) string {
	if invoice.InvoiceNumber != nil {
		return *invoice.InvoiceNumber
	}
	return fmt.Sprintf("invoice-%d", invoice.ID)
}

func (g *PDFGenerator) render(invoice *models.Invoice, lease *models.Lease) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+g.fileName(invoice), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, g.Landlord, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, "Invoice "+g.fileName(invoice), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Invoice date", invoice.InvoiceDate.Format("02 Jan 2006")},
		{"Due date", invoice.DueDate.Format("02 Jan 2006")},
		{"Type", string(invoice.InvoiceType)},
		{"Status", string(invoice.Status)},
	}
	if invoice.InvoiceMonth != nil {
		rows = append(rows, [2]string{"Billing month", utils.MonthLabel(*invoice.InvoiceMonth)})
	}
	if lease.Renter != nil {
		rows = append(rows, [2]string{"Renter", lease.Renter.FullName})
	}
	if lease.Unit != nil {
		rows = append(rows, [2]string{"Unit", lease.Unit.Name})
	}
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 7, r[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, r[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(120, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 8, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(120, 8, invoice.Description, "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, utils.FormatMoney(invoice.Amount, g.Currency), "1", 1, "R", false, 0, "")

	totals := [][2]string{
		{"Paid", utils.FormatMoney(invoice.PaidAmount, g.Currency)},
		{"Balance due", utils.FormatMoney(invoice.Balance(), g.Currency)},
	}
	for _, t := range totals {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(120, 8, t[0], "1", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 8, t[1], "1", 1, "R", false, 0, "")
	}
	return pdf
}
