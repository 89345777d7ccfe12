package types

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO 4217 code")
	ErrAmountOverflow  = errors.New("amount exceeds representable range")
)

// Money represents a monetary value with currency.
// Immutable value object - all operations return new instances.
type Money struct {
	amount   int64  // Amount in smallest currency unit (cents, paise)
	currency string // ISO 4217 currency code
}

func NewMoney(amount int64, currency string) (Money, error) {
	currency, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNewMoney creates Money, panicking if the currency is invalid.
// Use only for trusted input (e.g., from database).
func MustNewMoney(amount int64, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromDecimal converts an amount in major units to Money, rounding
// half-up to the currency's smallest subunit.
func MoneyFromDecimal(d decimal.Decimal, currency string) (Money, error) {
	currency, err := NormalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	subunits := d.Shift(CurrencyExponent(currency)).Round(0)
	if subunits.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || subunits.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return Money{}, ErrAmountOverflow
	}
	return Money{amount: subunits.IntPart(), currency: currency}, nil
}

func (m Money) Amount() int64    { return m.amount }
func (m Money) Currency() string { return m.currency }
func (m Money) IsZero() bool     { return m.amount == 0 }
func (m Money) IsPositive() bool { return m.amount > 0 }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -CurrencyExponent(m.currency))
}

func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

func (m Money) Equals(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// Format renders the amount in major units with the currency's precision, e.g. "1000.00 INR".
func (m Money) Format() string {
	return FormatAmount(m.Decimal(), m.currency)
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.amount, m.currency)
}

// FormatAmount renders a major-unit amount with the precision of currency.
func FormatAmount(d decimal.Decimal, currency string) string {
	return d.StringFixed(CurrencyExponent(currency)) + " " + currency
}

// NormalizeCurrency upper-cases and validates an ISO 4217 code.
func NormalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return currency, nil
}

// Currencies whose smallest unit is not 1/100 of the major unit.
var currencyExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// CurrencyExponent returns the number of decimal places of the currency's subunit.
func CurrencyExponent(currency string) int32 {
	if exp, ok := currencyExponents[currency]; ok {
		return exp
	}
	return 2
}
