package contracts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rai/storefront-payments/modules/shared/types"
)

// OrderReceipt is the read-only view of a paid order that invoicing and
// notifications render. It carries snapshots only; nothing in it is looked
// up again after the order was placed.
type OrderReceipt struct {
	OrderID    string
	IntentID   string
	PaymentID  string
	PlacedAt   time.Time
	Customer   ReceiptCustomer
	Lines      []ReceiptLine
	Total      types.Money
	InvoiceURL string // empty while the invoice is pending
}

type ReceiptCustomer struct {
	Name         string
	Email        string
	Phone        string
	AddressLines []string
}

type ReceiptLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// LinesTotal sums the unrounded line totals.
func (r OrderReceipt) LinesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range r.Lines {
		sum = sum.Add(l.LineTotal)
	}
	return sum
}
