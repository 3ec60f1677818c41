package entitlement

// =============================================================================
// PRORATION - Partial-year allowance calculation
// =============================================================================

// ProrateAllowance computes the vacation allowance an employee earns for a
// calendar year, scaled to the fraction of the year they are employed.
//
//	allowance = annual * employedDays / daysInYear
//
// Day counts are inclusive on both ends: hired Jan 1 and employed through
// Dec 31 yields the full annual allowance. The result is rounded to the
// policy's increment (half days by default) and clamped to [0, annual].
// When proration is disabled the full annual allowance applies regardless
// of hire and termination dates.
func ProrateAllowance(emp Employee, year int, policy Policy) Days {
	annual := emp.AnnualVacationDays.FloorZero()
	if !policy.ProrationEnabled {
		return annual
	}

	from, to, ok := emp.EmploymentWindow(year)
	if !ok {
		return ZeroDays()
	}

	employed := InclusiveDays(from, to)
	total := DaysInYear(year)
	if employed >= total {
		return annual
	}

	allowance := annual.MulFrac(employed, total).RoundToIncrement(policy.roundingIncrement())

	// Rounding can overshoot the annual allowance near year end.
	return allowance.FloorZero().Min(annual)
}
