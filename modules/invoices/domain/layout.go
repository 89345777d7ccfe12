// Package domain lays out invoices independently of any rendering library.
package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rai/storefront-payments/modules/shared/events/contracts"
	"github.com/rai/storefront-payments/modules/shared/types"
)

var (
	ErrNoLines       = errors.New("invoice has no line items")
	ErrTotalMismatch = errors.New("invoice grand total does not match line totals")
	ErrNotConfigured = errors.New("invoice storage is not configured")
)

// MaxNameRunes is the widest product name the item table shows before
// truncating with an ellipsis.
const MaxNameRunes = 40

const ellipsis = "..."

// PaymentMethod is printed in the header. Every order is captured through
// the hosted checkout, so the gateway is the only method.
const PaymentMethod = "Online (gateway)"

// Issuer is the seller block printed in the invoice header.
type Issuer struct {
	Name         string
	AddressLines []string
	Email        string
	TaxID        string
}

// Invoice is the fully formatted content of one invoice. Every string is
// final; renderers only place them.
type Invoice struct {
	Number     string
	OrderID    string
	PaymentID  string
	Method     string
	Date       string
	IssuedAt   time.Time
	Issuer     Issuer
	BillTo     []string
	Rows       []Row
	GrandTotal string
	Footer     string
}

// Row is one line of the fixed-column item table.
type Row struct {
	Name      string
	Quantity  string
	UnitPrice string
	LineTotal string
}

// Layout builds the invoice for a receipt. The grand total is the sum of
// the line totals rounded to the currency subunit and must equal the
// order's stored total.
func Layout(r contracts.OrderReceipt, issuer Issuer) (Invoice, error) {
	if len(r.Lines) == 0 {
		return Invoice{}, ErrNoLines
	}

	currency := r.Total.Currency()
	exp := types.CurrencyExponent(currency)

	sum, err := types.MoneyFromDecimal(r.LinesTotal(), currency)
	if err != nil {
		return Invoice{}, fmt.Errorf("summing line totals: %w", err)
	}
	if !sum.Equals(r.Total) {
		return Invoice{}, fmt.Errorf("%w: lines %s, order %s", ErrTotalMismatch, sum.Format(), r.Total.Format())
	}

	rows := make([]Row, len(r.Lines))
	for i, l := range r.Lines {
		rows[i] = Row{
			Name:      Truncate(l.Name, MaxNameRunes),
			Quantity:  strconv.Itoa(l.Quantity),
			UnitPrice: amount(l.UnitPrice, exp),
			LineTotal: amount(l.LineTotal, exp),
		}
	}

	billTo := append([]string{r.Customer.Name}, r.Customer.AddressLines...)
	if r.Customer.Email != "" {
		billTo = append(billTo, r.Customer.Email)
	}
	if r.Customer.Phone != "" {
		billTo = append(billTo, r.Customer.Phone)
	}

	placed := r.PlacedAt.UTC()
	return Invoice{
		Number:     "INV-" + shortID(r.OrderID),
		OrderID:    r.OrderID,
		PaymentID:  r.PaymentID,
		Method:     PaymentMethod,
		Date:       placed.Format("02 Jan 2006"),
		IssuedAt:   placed,
		Issuer:     issuer,
		BillTo:     billTo,
		Rows:       rows,
		GrandTotal: sum.Format(),
		Footer:     "Thank you for shopping with " + issuer.Name + ".",
	}, nil
}

// Truncate shortens s to at most max runes, ending in an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

func amount(d decimal.Decimal, exp int32) string {
	return d.StringFixed(exp)
}

func shortID(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}
