package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Minutes is a call-minutes value with two fractional digits.
type Minutes struct {
	d decimal.Decimal
}

// ParseMinutes parses a decimal string into a Minutes value.
func ParseMinutes(s string) (Minutes, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Minutes{}, fmt.Errorf("parse minutes %q: %w", s, err)
	}
	if d.Exponent() < -MinutePlaces {
		return Minutes{}, fmt.Errorf("parse minutes %q: more than %d decimal places", s, MinutePlaces)
	}
	return Minutes{d: d}, nil
}

// MustMinutes parses a decimal string and panics on error. For constants and tests.
func MustMinutes(s string) Minutes {
	m, err := ParseMinutes(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MinutesFromInt converts a whole number of minutes.
func MinutesFromInt(n int64) Minutes {
	return Minutes{d: decimal.NewFromInt(n)}
}

// MinutesFromDecimal wraps a raw decimal as a Minutes value.
func MinutesFromDecimal(d decimal.Decimal) Minutes {
	return Minutes{d: d}
}

// Add returns m + o.
func (m Minutes) Add(o Minutes) Minutes { return Minutes{d: m.d.Add(o.d)} }

// Sub returns m - o.
func (m Minutes) Sub(o Minutes) Minutes { return Minutes{d: m.d.Sub(o.d)} }

// MulCount returns m * n.
func (m Minutes) MulCount(n int64) Minutes {
	return Minutes{d: m.d.Mul(decimal.NewFromInt(n))}
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Minutes) Cmp(o Minutes) int { return m.d.Cmp(o.d) }

// IsZero reports whether the value is zero.
func (m Minutes) IsZero() bool { return m.d.IsZero() }

// IsPositive reports whether the value is above zero.
func (m Minutes) IsPositive() bool { return m.d.IsPositive() }

// Equal reports whether two values are numerically equal.
func (m Minutes) Equal(o Minutes) bool { return m.d.Equal(o.d) }

// Decimal returns the underlying decimal value.
func (m Minutes) Decimal() decimal.Decimal { return m.d }

// String renders the value with two fractional digits.
func (m Minutes) String() string { return m.d.StringFixed(MinutePlaces) }

// MarshalJSON renders the value as a JSON string.
func (m Minutes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or number.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("unmarshal minutes: %w", err)
	}
	if d.Exponent() < -MinutePlaces {
		return fmt.Errorf("unmarshal minutes %s: more than %d decimal places", d, MinutePlaces)
	}
	m.d = d
	return nil
}

// Value implements driver.Valuer.
func (m Minutes) Value() (driver.Value, error) { return m.d.String(), nil }

// Scan implements sql.Scanner.
func (m *Minutes) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan minutes: %w", err)
	}
	m.d = d
	return nil
}
