/*
Package entitlement implements the vacation entitlement and allocation engine.

PURPOSE:
  This package contains the accounting core for paid-leave entitlements:
  how many days an employee is owed for a calendar year, which bucket a
  leave request draws from (prior-year carryover vs. current-year
  allocation), and how unused days roll forward at year end.

KEY CONCEPTS IN THIS FILE (days.go):
  - Days: A day quantity backed by decimal.Decimal

DESIGN PRINCIPLES:
  1. Precision: decimal arithmetic everywhere - balances are legal
     entitlements and must never drift through float rounding
  2. Degradation over panic: pure calculations clamp to zero instead of
     erroring on numeric edge cases, so callers always get a usable split
  3. Auditability: every balance-affecting mutation records a signed delta
     with before/after snapshots (see store.go)

SEE ALSO:
  - allocation.go: FIFO split of a request across buckets
  - proration.go: partial-year allowance calculation
  - lifecycle.go: leave request state machine and balance mutation
  - rollover.go: year-end carryover crediting
*/
package entitlement

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Day quantity with decimal precision
// =============================================================================

// Days is a quantity of vacation days. It may be fractional (half days are
// the common case, but the proration rounding increment is configurable).
type Days struct {
	Value decimal.Decimal
}

func NewDays(v float64) Days {
	return Days{Value: decimal.NewFromFloat(v)}
}

func DaysFromInt(n int) Days {
	return Days{Value: decimal.NewFromInt(int64(n))}
}

func ZeroDays() Days {
	return Days{Value: decimal.Zero}
}

// ParseDays parses a decimal string. Malformed input degrades to zero;
// stored balances must never become unreadable because of one bad row.
func ParseDays(s string) Days {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroDays()
	}
	return Days{Value: d}
}

func (d Days) Add(o Days) Days             { return Days{Value: d.Value.Add(o.Value)} }
func (d Days) Sub(o Days) Days             { return Days{Value: d.Value.Sub(o.Value)} }
func (d Days) Mul(s decimal.Decimal) Days  { return Days{Value: d.Value.Mul(s)} }
func (d Days) Neg() Days                   { return Days{Value: d.Value.Neg()} }
func (d Days) IsZero() bool                { return d.Value.IsZero() }
func (d Days) IsNegative() bool            { return d.Value.IsNegative() }
func (d Days) IsPositive() bool            { return d.Value.IsPositive() }
func (d Days) Equal(o Days) bool           { return d.Value.Equal(o.Value) }
func (d Days) GreaterThan(o Days) bool     { return d.Value.GreaterThan(o.Value) }
func (d Days) LessThan(o Days) bool        { return d.Value.LessThan(o.Value) }

// MulFrac scales d by num/den using exact decimal division.
// A zero denominator degrades to zero days.
func (d Days) MulFrac(num, den int) Days {
	if den == 0 {
		return ZeroDays()
	}
	return Days{Value: d.Value.Mul(decimal.NewFromInt(int64(num))).Div(decimal.NewFromInt(int64(den)))}
}

// RoundToIncrement rounds d to the nearest multiple of inc.
// A non-positive increment leaves d untouched.
func (d Days) RoundToIncrement(inc Days) Days {
	if !inc.IsPositive() {
		return d
	}
	return Days{Value: d.Value.Div(inc.Value).Round(0).Mul(inc.Value)}
}

func (d Days) Min(o Days) Days {
	if d.LessThan(o) {
		return d
	}
	return o
}

func (d Days) Max(o Days) Days {
	if d.GreaterThan(o) {
		return d
	}
	return o
}

// FloorZero clamps negative quantities to zero.
func (d Days) FloorZero() Days {
	if d.IsNegative() {
		return ZeroDays()
	}
	return d
}

func (d Days) Float64() float64 {
	f, _ := d.Value.Float64()
	return f
}

func (d Days) String() string { return d.Value.String() }
