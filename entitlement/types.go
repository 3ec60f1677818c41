package entitlement

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RequestID string
type AbsenceID string

// =============================================================================
// EMPLOYEE - Entitlement-relevant slice of the employee record
// =============================================================================

// Employee is the engine's view of an employee record. The wider HR record
// (store assignment, role, contact data) is owned by the employee-record
// collaborator; this engine only reads the employment window and the
// entitlement fields, and only the engine mutates CarryoverDays.
type Employee struct {
	ID    EmployeeID
	Name  string
	Email string

	// Nominal full-year entitlement (policy default, e.g. 30).
	AnnualVacationDays Days

	// Running balance of prior-year days not yet consumed.
	// Invariant: never negative. Mutated only by the lifecycle manager
	// and the rollover executor, always via atomic increments.
	CarryoverDays Days

	// Employment window used for proration.
	HireDate        Date
	TerminationDate *Date

	// Inactive employees are excluded from rollover.
	Inactive bool

	CreatedAt time.Time
}

// EmploymentWindow intersects the employment span with a calendar year.
// Returns ok=false when the employee was not employed during the year.
func (e Employee) EmploymentWindow(year int) (from, to Date, ok bool) {
	yr := CalendarYear(year)
	from = MaxDate(e.HireDate, yr.Start)
	to = yr.End
	if e.TerminationDate != nil {
		to = MinDate(*e.TerminationDate, yr.End)
	}
	if from.After(to) {
		return Date{}, Date{}, false
	}
	return from, to, true
}

// =============================================================================
// ALLOCATION - FIFO split of a request across entitlement buckets
// =============================================================================

// Allocation records which bucket a request's days were drawn from. It is
// denormalized onto the request because it is the only persisted record of
// the split, and therefore the only way to reverse a mutation correctly.
//
// Invariant: CarryoverDays + CurrentYearDays == the request's total days,
// and both parts are non-negative.
type Allocation struct {
	CarryoverDays   Days
	CurrentYearDays Days
}

func (a Allocation) Total() Days {
	return a.CarryoverDays.Add(a.CurrentYearDays)
}

// ConsistentWith reports whether the split sums to the given total with
// non-negative parts.
func (a Allocation) ConsistentWith(total Days) bool {
	if a.CarryoverDays.IsNegative() || a.CurrentYearDays.IsNegative() {
		return false
	}
	return a.Total().Equal(total)
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type RequestType string

const (
	TypeVacation RequestType = "vacation"
	TypeOther    RequestType = "other"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
	StatusRevoked   RequestStatus = "revoked"
)

// LeaveRequest is a request for paid leave. Vacation-type requests carry an
// Allocation computed at creation; carryover is debited immediately, even
// while pending, so concurrent pending requests cannot over-allocate.
type LeaveRequest struct {
	ID         RequestID
	EmployeeID EmployeeID
	Type       RequestType

	StartDate Date
	EndDate   Date
	Days      Days

	Status RequestStatus

	// The year the request is imputed to for entitlement accounting.
	// Zero means "derive from StartDate" (legacy records).
	VacationYear int

	// Nil for non-vacation requests and for legacy records created before
	// allocations were tracked.
	Allocation *Allocation

	Reason       string
	StatusReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImputedYear returns the entitlement year this request counts against.
func (r *LeaveRequest) ImputedYear() int {
	if r.VacationYear != 0 {
		return r.VacationYear
	}
	return r.StartDate.Year()
}

// Editable reports whether day-count and date edits are permitted.
func (r *LeaveRequest) Editable() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

// ReservedCarryover returns the carryover currently held by this request.
func (r *LeaveRequest) ReservedCarryover() Days {
	if r.Allocation == nil {
		return ZeroDays()
	}
	return r.Allocation.CarryoverDays
}

// =============================================================================
// ABSENCE - Competes for the entitlement pool only at rollover time
// =============================================================================

// Absence is a non-vacation leave record. Deducting absences reduce the
// unused total available for rollover but are never themselves allocated
// against carryover.
type Absence struct {
	ID         AbsenceID
	EmployeeID EmployeeID

	StartDate Date
	EndDate   Date

	DeductFromVacation bool

	// Explicit day count overriding the calendar overlap. When set, the
	// whole amount is imputed to the start-date year.
	OverrideDays *Days

	Reason    string
	CreatedAt time.Time
}

// DeductedDays returns the vacation days this absence removes from the
// given year's unused entitlement.
func (a Absence) DeductedDays(year int) Days {
	if !a.DeductFromVacation {
		return ZeroDays()
	}
	if a.OverrideDays != nil {
		if a.StartDate.Year() != year {
			return ZeroDays()
		}
		return a.OverrideDays.FloorZero()
	}
	overlap := CalendarYear(year).OverlapDays(a.StartDate, a.EndDate)
	return DaysFromInt(overlap)
}
