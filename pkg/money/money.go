// Package money provides fixed-point currency arithmetic with two
// fractional digits. All derived amounts are rounded half-up exactly
// once; callers recompute from source quantities instead of chaining
// rounded intermediates.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits persisted for currency columns.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Money is a fixed-point decimal amount.
type Money struct {
	d decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{}
}

// FromInt builds a Money from a whole currency amount.
func FromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// FromDecimal wraps an arbitrary decimal, rounding it to the currency scale.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(Scale)}
}

// Parse reads a decimal string such as "1500000.00".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money{d: d.Round(Scale)}, nil
}

// MustParse is Parse for constants in tests and seeds.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// MulInt multiplies by a whole quantity (line amount = qty x unit price).
func (m Money) MulInt(n int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(n))}
}

// PercentOf computes m x rate / 100, rounded half-up to the currency scale.
// This is the single rounding point for every percentage-derived field.
func (m Money) PercentOf(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate).Div(hundred).Round(Scale)}
}

// Min returns the smaller of the two amounts.
func (m Money) Min(o Money) Money {
	if m.d.GreaterThan(o.d) {
		return o
	}
	return m
}

// ClampNonNegative floors the amount at zero.
func (m Money) ClampNonNegative() Money {
	if m.d.IsNegative() {
		return Zero()
	}
	return m
}

func (m Money) Cmp(o Money) int        { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool     { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool  { return m.d.LessThan(o.d) }
func (m Money) IsZero() bool           { return m.d.IsZero() }
func (m Money) IsNegative() bool       { return m.d.IsNegative() }
func (m Money) IsPositive() bool       { return m.d.IsPositive() }
func (m Money) Decimal() decimal.Decimal { return m.d }

// String renders with the fixed currency scale, e.g. "1700000.00".
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// Value implements driver.Valuer; amounts travel as fixed-scale strings so
// the database never sees binary floating point.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	m.d = d.Round(Scale)
	return nil
}

// GormDataType maps Money to a fixed-point column.
func (Money) GormDataType() string {
	return "decimal(14,2)"
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		m.d = decimal.Decimal{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
