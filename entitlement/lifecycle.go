/*
lifecycle.go - Leave request lifecycle management

FLOW:
  create  -> pending      (carryover reserved immediately)
  pending -> approved     (no balance change, reservation stands)
  pending -> rejected     (reservation released)
  approved -> cancelled   (reservation released)
  approved -> revoked     (reservation released, admin action)

Vacation requests debit the employee's carryover balance at creation time,
not at approval. Reserving while pending means two overlapping pending
requests can never promise the same carried day twice. Editing a request
releases the old reservation, re-resolves the allocation against the
restored balance, then reserves again.

Every balance movement lands in the audit log with a before/after snapshot.
*/
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestService manages the leave request lifecycle and absence records.
type RequestService struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

// NewRequestService creates a RequestService backed by the given store.
func NewRequestService(store Store, log *logrus.Logger) *RequestService {
	return &RequestService{store: store, log: log, now: time.Now}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateRequestInput carries the fields for a new leave request.
type CreateRequestInput struct {
	EmployeeID   EmployeeID
	Type         RequestType
	StartDate    Date
	EndDate      Date
	Days         Days
	VacationYear int
	Reason       string
	Actor        string
}

func (in CreateRequestInput) validate() error {
	if in.EmployeeID == "" {
		return &ValidationError{Field: "employee_id", Message: "is required"}
	}
	if in.Type != TypeVacation && in.Type != TypeOther {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown request type %q", in.Type)}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return &ValidationError{Field: "start_date", Message: "start and end dates are required"}
	}
	if in.EndDate.Before(in.StartDate) {
		return &ValidationError{Field: "end_date", Message: "must not be before start date"}
	}
	if !in.Days.IsPositive() {
		return &ValidationError{Field: "days", Message: "must be positive"}
	}
	return nil
}

// CreateRequest validates the input, reserves carryover for vacation-type
// requests and persists the new pending request.
func (s *RequestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*LeaveRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	emp, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("loading employee: %w", err)
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(in.EmployeeID)}
	}

	now := s.now()
	req := LeaveRequest{
		ID:           RequestID(uuid.New().String()),
		EmployeeID:   in.EmployeeID,
		Type:         in.Type,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Days:         in.Days,
		Status:       StatusPending,
		VacationYear: in.VacationYear,
		Reason:       in.Reason,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var change BalanceChange
	if in.Type == TypeVacation {
		// Resolve against the live balance, then debit atomically. The debit
		// is issued even for a zero-carryover split so the audit entry gets
		// a consistent balance snapshot.
		alloc := ResolveAllocation(in.Days, emp.CarryoverDays)
		change, err = s.store.AdjustCarryover(ctx, in.EmployeeID, alloc.CarryoverDays.Neg())
		if err != nil {
			return nil, fmt.Errorf("reserving carryover: %w", err)
		}
		req.Allocation = &alloc
	} else {
		// No reservation, but the audit entry still needs a real balance
		// snapshot; a bogus Before would poison the verification replay.
		change, err = s.store.AdjustCarryover(ctx, in.EmployeeID, ZeroDays())
		if err != nil {
			return nil, fmt.Errorf("reading balance: %w", err)
		}
	}

	if err := s.store.SaveRequest(ctx, req); err != nil {
		s.compensate(ctx, req.EmployeeID, req.ReservedCarryover(), "create rollback")
		return nil, fmt.Errorf("saving request: %w", err)
	}

	s.audit(ctx, AuditEntry{
		EmployeeID: req.EmployeeID,
		RequestID:  req.ID,
		Action:     ActionRequestCreated,
		Delta:      req.ReservedCarryover().Neg(),
		Before:     change.Before,
		After:      change.After,
		Year:       req.ImputedYear(),
		Actor:      in.Actor,
		Note:       fmt.Sprintf("%s request for %s days", req.Type, req.Days),
	})

	s.log.WithFields(logrus.Fields{
		"request_id":  req.ID,
		"employee_id": req.EmployeeID,
		"days":        req.Days.String(),
	}).Info("Leave request created")
	return &req, nil
}

// =============================================================================
// EDIT
// =============================================================================

// EditRequestInput carries the editable fields of a request. Nil fields
// keep their current value.
type EditRequestInput struct {
	StartDate *Date
	EndDate   *Date
	Days      *Days
	Reason    *string
	Actor     string
}

// EditRequest updates the dates and day count of a pending or approved
// request. The old carryover reservation is released first, then the new
// day count is resolved against the restored balance and reserved.
func (s *RequestService) EditRequest(ctx context.Context, id RequestID, in EditRequestInput) (*LeaveRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading request: %w", err)
	}
	if req == nil {
		return nil, &NotFoundError{Kind: "request", ID: string(id)}
	}
	if !req.Editable() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("%s requests cannot be edited", req.Status)}
	}

	if in.StartDate != nil {
		req.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		req.EndDate = *in.EndDate
	}
	if in.Reason != nil {
		req.Reason = *in.Reason
	}
	newDays := req.Days
	if in.Days != nil {
		newDays = *in.Days
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, &ValidationError{Field: "end_date", Message: "must not be before start date"}
	}
	if !newDays.IsPositive() {
		return nil, &ValidationError{Field: "days", Message: "must be positive"}
	}

	oldCarry := req.ReservedCarryover()
	var first, last BalanceChange

	if req.Type == TypeVacation {
		// Release, re-resolve, re-reserve. Doing it in this order lets a
		// shrinking request hand its carried days straight back to the pool
		// the growing split draws from.
		first, err = s.store.AdjustCarryover(ctx, req.EmployeeID, oldCarry)
		if err != nil {
			return nil, fmt.Errorf("releasing carryover: %w", err)
		}
		alloc := ResolveAllocation(newDays, first.After)
		last, err = s.store.AdjustCarryover(ctx, req.EmployeeID, alloc.CarryoverDays.Neg())
		if err != nil {
			s.compensate(ctx, req.EmployeeID, oldCarry.Neg(), "edit rollback")
			return nil, fmt.Errorf("reserving carryover: %w", err)
		}
		req.Allocation = &alloc
	} else {
		first, err = s.store.AdjustCarryover(ctx, req.EmployeeID, ZeroDays())
		if err != nil {
			return nil, fmt.Errorf("reading balance: %w", err)
		}
		last = first
	}

	req.Days = newDays
	req.UpdatedAt = s.now()
	if err := s.store.SaveRequest(ctx, *req); err != nil {
		s.compensate(ctx, req.EmployeeID, req.ReservedCarryover().Sub(oldCarry), "edit rollback")
		return nil, fmt.Errorf("saving request: %w", err)
	}

	s.audit(ctx, AuditEntry{
		EmployeeID: req.EmployeeID,
		RequestID:  req.ID,
		Action:     ActionRequestEdited,
		Delta:      oldCarry.Sub(req.ReservedCarryover()),
		Before:     first.Before,
		After:      last.After,
		Year:       req.ImputedYear(),
		Actor:      in.Actor,
		Note:       fmt.Sprintf("edited to %s days", req.Days),
	})

	s.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"days":       req.Days.String(),
	}).Info("Leave request edited")
	return req, nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// allowedTransitions maps each status to the statuses it may move to.
var allowedTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCancelled, StatusRevoked},
}

func transitionAllowed(from, to RequestStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var statusActions = map[RequestStatus]AuditAction{
	StatusApproved:  ActionRequestApproved,
	StatusRejected:  ActionRequestRejected,
	StatusCancelled: ActionRequestCancelled,
	StatusRevoked:   ActionRequestRevoked,
}

// SetStatusInput carries a status transition.
type SetStatusInput struct {
	Status RequestStatus
	Reason string
	Actor  string
}

// SetStatus moves a request through its lifecycle. Terminal transitions
// (rejected, cancelled, revoked) release the carryover reservation; approval
// changes the status only since the reservation was taken at creation.
func (s *RequestService) SetStatus(ctx context.Context, id RequestID, in SetStatusInput) (*LeaveRequest, error) {
	action, ok := statusActions[in.Status]
	if !ok {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown target status %q", in.Status)}
	}

	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading request: %w", err)
	}
	if req == nil {
		return nil, &NotFoundError{Kind: "request", ID: string(id)}
	}
	if !transitionAllowed(req.Status, in.Status) {
		return nil, &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", req.Status, in.Status),
		}
	}

	released := ZeroDays()
	var change BalanceChange
	if in.Status != StatusApproved {
		released = req.ReservedCarryover()
		change, err = s.store.AdjustCarryover(ctx, req.EmployeeID, released)
		if err != nil {
			return nil, fmt.Errorf("releasing carryover: %w", err)
		}
		if req.Allocation != nil {
			req.Allocation = &Allocation{}
		}
	}

	req.Status = in.Status
	req.StatusReason = in.Reason
	req.UpdatedAt = s.now()
	if err := s.store.SaveRequest(ctx, *req); err != nil {
		s.compensate(ctx, req.EmployeeID, released.Neg(), "status rollback")
		return nil, fmt.Errorf("saving request: %w", err)
	}

	s.audit(ctx, AuditEntry{
		EmployeeID: req.EmployeeID,
		RequestID:  req.ID,
		Action:     action,
		Delta:      released,
		Before:     change.Before,
		After:      change.After,
		Year:       req.ImputedYear(),
		Actor:      in.Actor,
		Note:       in.Reason,
	})

	s.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"status":     req.Status,
	}).Info("Leave request status changed")
	return req, nil
}

// GetRequest returns a request by ID.
func (s *RequestService) GetRequest(ctx context.Context, id RequestID) (*LeaveRequest, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &NotFoundError{Kind: "request", ID: string(id)}
	}
	return req, nil
}

// ListRequests returns all requests for an employee.
func (s *RequestService) ListRequests(ctx context.Context, id EmployeeID) ([]LeaveRequest, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(id)}
	}
	return s.store.ListRequestsByEmployee(ctx, id)
}

// =============================================================================
// ABSENCES
// =============================================================================

// RecordAbsenceInput carries the fields for a new absence record.
type RecordAbsenceInput struct {
	EmployeeID         EmployeeID
	StartDate          Date
	EndDate            Date
	DeductFromVacation bool
	OverrideDays       *Days
	Reason             string
}

// RecordAbsence stores a non-request absence. Absences never touch the
// carryover balance directly; deducting ones reduce the unused entitlement
// at rollover time.
func (s *RequestService) RecordAbsence(ctx context.Context, in RecordAbsenceInput) (*Absence, error) {
	if in.EmployeeID == "" {
		return nil, &ValidationError{Field: "employee_id", Message: "is required"}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, &ValidationError{Field: "start_date", Message: "start and end dates are required"}
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, &ValidationError{Field: "end_date", Message: "must not be before start date"}
	}
	if in.OverrideDays != nil && in.OverrideDays.IsNegative() {
		return nil, &ValidationError{Field: "override_days", Message: "must not be negative"}
	}

	emp, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(in.EmployeeID)}
	}

	abs := Absence{
		ID:                 AbsenceID(uuid.New().String()),
		EmployeeID:         in.EmployeeID,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		DeductFromVacation: in.DeductFromVacation,
		OverrideDays:       in.OverrideDays,
		Reason:             in.Reason,
		CreatedAt:          s.now(),
	}
	if err := s.store.SaveAbsence(ctx, abs); err != nil {
		return nil, fmt.Errorf("saving absence: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"absence_id":  abs.ID,
		"employee_id": abs.EmployeeID,
		"deduct":      abs.DeductFromVacation,
	}).Info("Absence recorded")
	return &abs, nil
}

// ListAbsences returns all absences for an employee.
func (s *RequestService) ListAbsences(ctx context.Context, id EmployeeID) ([]Absence, error) {
	return s.store.ListAbsencesByEmployee(ctx, id)
}

// =============================================================================
// INTERNALS
// =============================================================================

// compensate applies a balance correction after a failed write. A failure
// here leaves the balance off by delta; the reconciler repairs it.
func (s *RequestService) compensate(ctx context.Context, id EmployeeID, delta Days, op string) {
	if delta.IsZero() {
		return
	}
	if _, err := s.store.AdjustCarryover(ctx, id, delta); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"employee_id": id,
			"delta":       delta.String(),
			"operation":   op,
		}).Error("Compensating balance adjustment failed, balance needs reconciliation")
	}
}

// audit appends an entry, logging instead of failing the operation when the
// append itself fails. The balance change is already committed at this
// point; losing the audit line is recoverable, unwinding the change is not.
func (s *RequestService) audit(ctx context.Context, entry AuditEntry) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = s.now()
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.WithError(err).WithField("action", entry.Action).Error("Failed to append audit entry")
	}
}
