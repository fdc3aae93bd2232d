package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Tax is a tax ratio with five fractional digits. Individual components are
// constrained to [0, 1); a bill's aggregate tax is the plain sum of its
// components and may exceed that interval.
type Tax struct {
	d decimal.Decimal
}

// ParseTax parses a decimal string into a Tax, enforcing the [0, 1) interval.
func ParseTax(s string) (Tax, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Tax{}, fmt.Errorf("parse tax %q: %w", s, err)
	}
	return taxFromDecimal(d)
}

// MustTax parses a decimal string and panics on error. For constants and tests.
func MustTax(s string) Tax {
	t, err := ParseTax(s)
	if err != nil {
		panic(err)
	}
	return t
}

func taxFromDecimal(d decimal.Decimal) (Tax, error) {
	if d.Exponent() < -TaxPlaces {
		return Tax{}, fmt.Errorf("tax %s: more than %d decimal places", d, TaxPlaces)
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Tax{}, fmt.Errorf("tax %s: must be in the interval [0, 1)", d)
	}
	return Tax{d: d}, nil
}

// Add returns the sum of two tax ratios. Sums are not re-validated against
// [0, 1); only individual components carry that constraint.
func (t Tax) Add(o Tax) Tax { return Tax{d: t.d.Add(o.d)} }

// IsZero reports whether the ratio is zero.
func (t Tax) IsZero() bool { return t.d.IsZero() }

// Equal reports whether two ratios are numerically equal.
func (t Tax) Equal(o Tax) bool { return t.d.Equal(o.d) }

// Decimal returns the underlying decimal value.
func (t Tax) Decimal() decimal.Decimal { return t.d }

// String renders the ratio with five fractional digits.
func (t Tax) String() string { return t.d.StringFixed(TaxPlaces) }

// MarshalJSON renders the ratio as a JSON string.
func (t Tax) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or number and validates the interval.
func (t *Tax) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("unmarshal tax: %w", err)
	}
	parsed, err := taxFromDecimal(d)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer.
func (t Tax) Value() (driver.Value, error) { return t.d.String(), nil }

// Scan implements sql.Scanner. Stored aggregates may exceed [0, 1), so the
// component constraint is not re-applied here.
func (t *Tax) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan tax: %w", err)
	}
	t.d = d
	return nil
}
