// Package money provides the fixed-point arithmetic primitives used by the
// settlement engine: monetary amounts (3 fractional digits), tax ratios
// (5 fractional digits, constrained to [0,1)) and call minutes (2 fractional
// digits). All arithmetic goes through shopspring/decimal; binary floating
// point never enters the engine.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces is the scale of a monetary amount.
	MoneyPlaces int32 = 3
	// TaxPlaces is the scale of a tax ratio.
	TaxPlaces int32 = 5
	// MinutePlaces is the scale of a minutes value.
	MinutePlaces int32 = 2
)

// Money is a fixed-point monetary amount. Inputs are quantized to three
// fractional digits; intermediate results of chained arithmetic keep full
// decimal precision until RoundToUnit.
type Money struct {
	d decimal.Decimal
}

// ParseMoney parses a decimal string into a Money value.
// More than three fractional digits is an error.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	if d.Exponent() < -MoneyPlaces {
		return Money{}, fmt.Errorf("parse money %q: more than %d decimal places", s, MoneyPlaces)
	}
	return Money{d: d}, nil
}

// MustMoney parses a decimal string and panics on error. For constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromDecimal wraps a raw decimal as a Money value without quantizing.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// MulMinutes returns the amount for the given minutes at this per-minute price.
func (m Money) MulMinutes(mins Minutes) Money {
	return Money{d: m.d.Mul(mins.d)}
}

// MulCount returns the amount for n units at this unit price.
func (m Money) MulCount(n int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(n))}
}

// WithTaxes returns m * (1 + t).
func (m Money) WithTaxes(t Tax) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(1).Add(t.d))}
}

// RoundToUnit rounds to the nearest whole monetary unit, half away from zero
// (half-up): 10.5 rounds to 11, -10.5 to -11. This is the engine's single
// rounding point; everything upstream keeps full precision.
func (m Money) RoundToUnit() Money {
	return Money{d: m.d.Round(0)}
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Equal reports whether two amounts are numerically equal.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// String renders the amount with three fractional digits.
func (m Money) String() string { return m.d.StringFixed(MoneyPlaces) }

// MarshalJSON renders the amount as a JSON string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("unmarshal money: %w", err)
	}
	if d.Exponent() < -MoneyPlaces {
		return fmt.Errorf("unmarshal money %s: more than %d decimal places", d, MoneyPlaces)
	}
	m.d = d
	return nil
}

// Value implements driver.Valuer, storing the exact decimal string.
func (m Money) Value() (driver.Value, error) { return m.d.String(), nil }

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	m.d = d
	return nil
}
