package entitlement

import (
	"context"
	"time"
)

// =============================================================================
// STORAGE CONTRACTS
// =============================================================================

// BalanceChange is the before/after snapshot of an atomic balance adjustment.
type BalanceChange struct {
	EmployeeID EmployeeID
	Delta      Days
	Before     Days
	After      Days
}

// CarryoverDelta is one adjustment inside a bulk balance update.
type CarryoverDelta struct {
	EmployeeID EmployeeID
	Delta      Days
}

// EmployeeStore persists employee records and their carryover balances.
//
// AdjustCarryover applies balance += delta as a single atomic operation;
// implementations must never read-modify-write the balance in Go code, or
// concurrent adjustments lose updates.
type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	// GetEmployee returns (nil, nil) for an unknown ID.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	AdjustCarryover(ctx context.Context, id EmployeeID, delta Days) (BalanceChange, error)
	// BulkAdjustCarryover applies every delta or none of them.
	BulkAdjustCarryover(ctx context.Context, deltas []CarryoverDelta) ([]BalanceChange, error)
}

// RequestStore persists leave requests.
type RequestStore interface {
	SaveRequest(ctx context.Context, req LeaveRequest) error
	// GetRequest returns (nil, nil) for an unknown ID.
	GetRequest(ctx context.Context, id RequestID) (*LeaveRequest, error)
	ListRequestsByEmployee(ctx context.Context, id EmployeeID) ([]LeaveRequest, error)
}

// AbsenceStore persists non-request absences (sick leave, parental leave).
type AbsenceStore interface {
	SaveAbsence(ctx context.Context, abs Absence) error
	ListAbsencesByEmployee(ctx context.Context, id EmployeeID) ([]Absence, error)
}

// SettingsStore persists the single company-wide policy.
type SettingsStore interface {
	GetPolicy(ctx context.Context) (Policy, error)
	SavePolicy(ctx context.Context, policy Policy) error
}

// =============================================================================
// AUDIT LOG - Append-only record of every balance-affecting event
// =============================================================================

// AuditAction categorizes an audit entry.
type AuditAction string

const (
	ActionRequestCreated     AuditAction = "request_created"
	ActionRequestEdited      AuditAction = "request_edited"
	ActionRequestApproved    AuditAction = "request_approved"
	ActionRequestRejected    AuditAction = "request_rejected"
	ActionRequestCancelled   AuditAction = "request_cancelled"
	ActionRequestRevoked     AuditAction = "request_revoked"
	ActionRolloverCredit     AuditAction = "rollover_credit"
	ActionAllocationRepaired AuditAction = "allocation_repaired"
	ActionPolicyChanged      AuditAction = "policy_changed"
)

// AuditEntry is one immutable line in the audit log. Delta is the signed
// change applied to the employee's carryover balance (zero for entries that
// only record an event); Before/After snapshot the balance around it so the
// log can be replayed to verify stored balances.
type AuditEntry struct {
	ID         string
	EmployeeID EmployeeID
	RequestID  RequestID // empty when not request-related
	Action     AuditAction
	Delta      Days
	Before     Days
	After      Days
	Year       int // vacation year the event belongs to, 0 when n/a
	Actor      string
	Note       string
	CreatedAt  time.Time
}

// AuditFilter narrows an audit query. Zero values match everything.
type AuditFilter struct {
	EmployeeID EmployeeID
	Action     AuditAction
	Year       int
}

// AuditLog is an append-only event store. Entries are never updated
// or deleted.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	// AppendAuditBatch appends every entry or none of them.
	AppendAuditBatch(ctx context.Context, entries []AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// Store is the full persistence surface the engine runs against.
type Store interface {
	EmployeeStore
	RequestStore
	AbsenceStore
	SettingsStore
	AuditLog
}
