package domain

import "github.com/shopspring/decimal"

// LineItem is a purchased product with its name and price snapshotted at
// purchase time, so later catalog edits cannot alter historical orders.
type LineItem struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal // major units of the order currency
	Quantity    int
}

// Subtotal returns unit price × quantity, unrounded.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
