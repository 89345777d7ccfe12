// Package pricing recomputes order totals from trusted catalog data.
// Client-supplied prices or amounts are never read.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/shared/types"
)

// ErrPricing is the parent of every pricing failure.
var ErrPricing = errors.New("pricing error")

var (
	ErrEmptyOrder      = fmt.Errorf("%w: order has no items", domain.ErrInvalidRequest)
	ErrProductNotFound = fmt.Errorf("%w: product not found", ErrPricing)
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be a positive integer", ErrPricing)
	ErrInvalidPrice    = fmt.Errorf("%w: catalog price is not a valid amount", ErrPricing)
	ErrInvalidTotal    = fmt.Errorf("%w: order total must be positive", ErrPricing)
)

// Product is the catalog's view of a product as pricing needs it.
type Product struct {
	ID    string
	Name  string
	Price string // decimal string in major units
}

// Catalog resolves product ids. Ids missing from the result are unknown.
type Catalog interface {
	Products(ctx context.Context, ids []string) (map[string]Product, error)
}

// ProductRef is a product id that accepts both JSON numbers and strings.
type ProductRef string

func (r *ProductRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = ProductRef(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("product id must be an integer: %w", err)
	}
	*r = ProductRef(n.String())
	return nil
}

// RequestedItem is one entry of a client's order. A nil Quantity means 1.
type RequestedItem struct {
	ProductID ProductRef `json:"productId"`
	Quantity  *int       `json:"quantity,omitempty"`
}

// Verifier computes authoritative totals.
type Verifier struct {
	catalog Catalog
}

func NewVerifier(catalog Catalog) *Verifier {
	return &Verifier{catalog: catalog}
}

// ComputeTotal resolves every item against the catalog and returns the total
// rounded half-up to the currency's smallest subunit, with line items
// carrying name and price snapshots. Any unresolved product fails the whole
// request. This is the only place order amounts are rounded.
func (v *Verifier) ComputeTotal(ctx context.Context, items []RequestedItem, currency string) (types.Money, []domain.LineItem, error) {
	if len(items) == 0 {
		return types.Money{}, nil, ErrEmptyOrder
	}

	ids := make([]string, 0, len(items))
	quantities := make([]int, len(items))
	for i, item := range items {
		if item.ProductID == "" {
			return types.Money{}, nil, fmt.Errorf("%w: item %d has no product id", domain.ErrInvalidRequest, i)
		}
		q := 1
		if item.Quantity != nil {
			q = *item.Quantity
		}
		if q <= 0 {
			return types.Money{}, nil, fmt.Errorf("%w: item %d quantity %d", ErrInvalidQuantity, i, q)
		}
		quantities[i] = q
		ids = append(ids, string(item.ProductID))
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	products, err := v.catalog.Products(ctx, ids)
	if err != nil {
		return types.Money{}, nil, fmt.Errorf("looking up catalog: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return types.Money{}, nil, fmt.Errorf("%w: %s", ErrProductNotFound, strings.Join(missing, ", "))
	}

	sum := decimal.Zero
	lines := make([]domain.LineItem, len(items))
	for i, item := range items {
		p := products[string(item.ProductID)]
		price, err := parsePrice(p.Price)
		if err != nil {
			return types.Money{}, nil, fmt.Errorf("%w: product %s: %v", ErrInvalidPrice, p.ID, err)
		}
		lines[i] = domain.LineItem{
			ProductID:   string(item.ProductID),
			ProductName: p.Name,
			UnitPrice:   price,
			Quantity:    quantities[i],
		}
		sum = sum.Add(lines[i].Subtotal())
	}

	total, err := types.MoneyFromDecimal(sum, currency)
	if err != nil {
		if errors.Is(err, types.ErrInvalidCurrency) {
			return types.Money{}, nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		return types.Money{}, nil, fmt.Errorf("%w: %w", ErrInvalidTotal, err)
	}
	if !total.IsPositive() {
		return types.Money{}, nil, fmt.Errorf("%w: got %s", ErrInvalidTotal, total.Format())
	}
	return total, lines, nil
}

// parsePrice accepts a finite, non-negative decimal. NaN and Inf are
// rejected by the decimal parser itself.
func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, errors.New("empty price")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative price %s", s)
	}
	return d, nil
}
