package types_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rai/storefront-payments/modules/shared/types"
)

func TestMoneyFromDecimal_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{"two decimals exact", "1000.00", "INR", 100000},
		{"half rounds up", "10.005", "USD", 1001},
		{"below half rounds down", "10.004", "USD", 1000},
		{"zero decimal currency", "1500.5", "JPY", 1501},
		{"three decimal currency", "1.2345", "KWD", 1235},
		{"lower case currency", "1.10", "inr", 110},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.MoneyFromDecimal(decimal.RequireFromString(tt.amount), tt.currency)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Amount() != tt.want {
				t.Errorf("MoneyFromDecimal(%s, %s) = %d, want %d", tt.amount, tt.currency, got.Amount(), tt.want)
			}
		})
	}
}

func TestNewMoney_InvalidCurrency(t *testing.T) {
	for _, c := range []string{"", "IN", "INRR", "1NR"} {
		if _, err := types.NewMoney(100, c); err != types.ErrInvalidCurrency {
			t.Errorf("NewMoney(100, %q) error = %v, want ErrInvalidCurrency", c, err)
		}
	}
}

func TestMoney_Format(t *testing.T) {
	m := types.MustNewMoney(100000, "INR")
	if got := m.Format(); got != "1000.00 INR" {
		t.Errorf("Format() = %q, want %q", got, "1000.00 INR")
	}

	yen := types.MustNewMoney(1500, "JPY")
	if got := yen.Format(); got != "1500 JPY" {
		t.Errorf("Format() = %q, want %q", got, "1500 JPY")
	}
}

func TestMoney_AddRejectsCurrencyMismatch(t *testing.T) {
	a := types.MustNewMoney(100, "INR")
	b := types.MustNewMoney(100, "USD")
	if _, err := a.Add(b); err == nil {
		t.Error("expected error adding different currencies")
	}
}
