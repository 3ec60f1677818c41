package entitlement

import (
	"fmt"
	"time"
)

// =============================================================================
// POLICY - Company-wide vacation settings
// =============================================================================

// Policy holds the company-wide vacation settings. A single policy applies
// to every employee; per-employee variation lives on the employee record
// (annual allowance, hire/termination dates).
type Policy struct {
	// ProrationEnabled turns partial-year proration on. When off every
	// employee gets the full annual allowance regardless of hire date.
	ProrationEnabled bool

	// ProrationRoundingIncrement is the granularity prorated allowances are
	// rounded to. Zero means the default of half a day.
	ProrationRoundingIncrement Days

	// CarryoverEnabled turns the annual rollover on.
	CarryoverEnabled bool

	// CarryoverMaxDays caps the days carried into a new year.
	// Nil means unlimited.
	CarryoverMaxDays *Days

	// CarryoverExpiryMonthDay is an optional "MM-DD" after which carried
	// days would lapse. Recorded for reporting; the scalar balance model
	// cannot expire a slice of it, so the engine does not enforce this.
	CarryoverExpiryMonthDay string

	// LastRolloverYear is the most recent year a rollover has been
	// executed INTO. Guards against accidental double rollover.
	LastRolloverYear *int
}

// DefaultPolicy returns the settings used until an admin changes them.
func DefaultPolicy() Policy {
	return Policy{
		ProrationEnabled:           true,
		ProrationRoundingIncrement: NewDays(0.5),
		CarryoverEnabled:           true,
	}
}

// defaultRoundingIncrement is applied when the configured increment is unset.
var defaultRoundingIncrement = NewDays(0.5)

// roundingIncrement returns the effective proration rounding step.
func (p Policy) roundingIncrement() Days {
	if p.ProrationRoundingIncrement.IsPositive() {
		return p.ProrationRoundingIncrement
	}
	return defaultRoundingIncrement
}

// Validate checks the policy for settings the engine cannot work with.
func (p Policy) Validate() error {
	if p.ProrationRoundingIncrement.IsNegative() {
		return &PolicyMisconfiguredError{
			Setting: "proration_rounding_increment",
			Message: "must not be negative",
		}
	}
	if p.CarryoverMaxDays != nil && p.CarryoverMaxDays.IsNegative() {
		return &PolicyMisconfiguredError{
			Setting: "carryover_max_days",
			Message: "must not be negative",
		}
	}
	if p.CarryoverExpiryMonthDay != "" {
		if _, err := time.Parse("01-02", p.CarryoverExpiryMonthDay); err != nil {
			return &PolicyMisconfiguredError{
				Setting: "carryover_expiry_month_day",
				Message: fmt.Sprintf("%q is not a valid MM-DD value", p.CarryoverExpiryMonthDay),
			}
		}
	}
	return nil
}

// RolledOver reports whether the given closing year has already been
// rolled over.
func (p Policy) RolledOver(year int) bool {
	return p.LastRolloverYear != nil && *p.LastRolloverYear >= year
}
