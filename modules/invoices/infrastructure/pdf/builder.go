// Package pdf renders invoices with go-pdf/fpdf.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/rai/storefront-payments/modules/invoices/domain"
	"github.com/rai/storefront-payments/modules/shared/events/contracts"
)

// Item table column widths in mm; they add up to the printable width of A4
// with 10mm margins.
const (
	colName  = 95.0
	colQty   = 20.0
	colUnit  = 35.0
	colTotal = 40.0
	rowH     = 7.0
)

// Builder renders receipts to PDF. It does no I/O; callers store the bytes.
type Builder struct {
	issuer domain.Issuer
}

func NewBuilder(issuer domain.Issuer) *Builder {
	return &Builder{issuer: issuer}
}

// Render lays out the receipt and draws it. The output is byte-identical
// for identical receipts.
func (b *Builder) Render(r contracts.OrderReceipt) ([]byte, error) {
	inv, err := domain.Layout(r, b.issuer)
	if err != nil {
		return nil, err
	}
	return Draw(inv)
}

// Draw renders a laid-out invoice.
func Draw(inv domain.Invoice) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(inv.IssuedAt)
	pdf.SetModificationDate(inv.IssuedAt)
	pdf.SetCreator("storefront-payments", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Invoice "+inv.Number), false)
	pdf.SetAuthor(tr(inv.Issuer.Name), false)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 5, tr(inv.Footer), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// Issuer
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(inv.Issuer.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range inv.Issuer.AddressLines {
		pdf.CellFormat(0, 4.5, tr(l), "", 1, "L", false, 0, "")
	}
	if inv.Issuer.Email != "" {
		pdf.CellFormat(0, 4.5, tr(inv.Issuer.Email), "", 1, "L", false, 0, "")
	}
	if inv.Issuer.TaxID != "" {
		pdf.CellFormat(0, 4.5, tr("GSTIN: "+inv.Issuer.TaxID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Order details
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 7, "INVOICE "+tr(inv.Number), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 4.5, tr("Order: "+inv.OrderID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 4.5, tr("Date: "+inv.Date), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 4.5, tr("Payment method: "+inv.Method), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 4.5, tr("Payment reference: "+inv.PaymentID), "", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Bill to
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range inv.BillTo {
		pdf.CellFormat(0, 4.5, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Items
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(colName, rowH, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colQty, rowH, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colUnit, rowH, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colTotal, rowH, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range inv.Rows {
		pdf.CellFormat(colName, rowH, tr(row.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, rowH, row.Quantity, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colUnit, rowH, row.UnitPrice, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, rowH, row.LineTotal, "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colName+colQty+colUnit, rowH+1, "Grand total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(colTotal, rowH+1, inv.GrandTotal, "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
