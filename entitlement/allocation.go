package entitlement

// =============================================================================
// ALLOCATION RESOLUTION - Carryover-first (FIFO) splitting
// =============================================================================

// ResolveAllocation splits a requested number of days between the carryover
// bucket and the current-year bucket, always draining carryover first since
// carried days are the older entitlement.
//
// The split is total-preserving: carryover + currentYear == total for any
// inputs. A negative available balance contributes nothing; a negative total
// resolves to the zero allocation.
func ResolveAllocation(total, carryoverAvailable Days) Allocation {
	total = total.FloorZero()
	carryoverAvailable = carryoverAvailable.FloorZero()

	fromCarryover := total.Min(carryoverAvailable)
	return Allocation{
		CarryoverDays:   fromCarryover,
		CurrentYearDays: total.Sub(fromCarryover),
	}
}
