package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// EMPLOYEE MANAGEMENT
// =============================================================================

// EmployeeService manages employee records and balance reporting.
type EmployeeService struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

// NewEmployeeService creates an EmployeeService backed by the given store.
func NewEmployeeService(store Store, log *logrus.Logger) *EmployeeService {
	return &EmployeeService{store: store, log: log, now: time.Now}
}

// CreateEmployeeInput carries the fields for a new employee.
type CreateEmployeeInput struct {
	ID                 EmployeeID
	Name               string
	Email              string
	AnnualVacationDays Days
	CarryoverDays      Days
	HireDate           Date
	TerminationDate    *Date
}

// CreateEmployee validates and persists a new employee record. An opening
// carryover balance may be supplied for migrations from a previous system.
func (s *EmployeeService) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if in.AnnualVacationDays.IsNegative() {
		return nil, &ValidationError{Field: "annual_vacation_days", Message: "must not be negative"}
	}
	if in.CarryoverDays.IsNegative() {
		return nil, &ValidationError{Field: "carryover_days", Message: "must not be negative"}
	}
	if in.HireDate.IsZero() {
		return nil, &ValidationError{Field: "hire_date", Message: "is required"}
	}
	if in.TerminationDate != nil && in.TerminationDate.Before(in.HireDate) {
		return nil, &ValidationError{Field: "termination_date", Message: "must not be before hire date"}
	}

	id := in.ID
	if id == "" {
		id = EmployeeID(uuid.New().String())
	} else {
		existing, err := s.store.GetEmployee(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &ValidationError{Field: "id", Message: fmt.Sprintf("employee %s already exists", id)}
		}
	}

	emp := Employee{
		ID:                 id,
		Name:               in.Name,
		Email:              in.Email,
		AnnualVacationDays: in.AnnualVacationDays,
		CarryoverDays:      in.CarryoverDays,
		HireDate:           in.HireDate,
		TerminationDate:    in.TerminationDate,
		CreatedAt:          s.now(),
	}
	if err := s.store.SaveEmployee(ctx, emp); err != nil {
		return nil, fmt.Errorf("saving employee: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"employee_id": emp.ID,
		"name":        emp.Name,
	}).Info("Employee created")
	return &emp, nil
}

// GetEmployee returns an employee by ID.
func (s *EmployeeService) GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &NotFoundError{Kind: "employee", ID: string(id)}
	}
	return emp, nil
}

// ListEmployees returns all employees.
func (s *EmployeeService) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.store.ListEmployees(ctx)
}

// =============================================================================
// BALANCE REPORTING
// =============================================================================

// BalanceSummary is the entitlement picture for one employee and year.
type BalanceSummary struct {
	EmployeeID EmployeeID
	Year       int

	// CarryoverAvailable is the live carryover balance, net of every
	// reservation held by pending and approved requests.
	CarryoverAvailable Days

	// AnnualAllowance is the (possibly prorated) allowance for the year.
	AnnualAllowance Days

	// UsedCurrentYear sums the current-year bucket of pending and approved
	// vacation requests imputed to the year.
	UsedCurrentYear Days

	// AbsenceDeductions sums deducting absences for the year.
	AbsenceDeductions Days

	// RemainingCurrentYear = AnnualAllowance - UsedCurrentYear - AbsenceDeductions,
	// floored at zero.
	RemainingCurrentYear Days
}

// Balance computes the entitlement summary for an employee and year.
func (s *EmployeeService) Balance(ctx context.Context, id EmployeeID, year int) (*BalanceSummary, error) {
	emp, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	policy, err := s.store.GetPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	requests, err := s.store.ListRequestsByEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading requests: %w", err)
	}
	absences, err := s.store.ListAbsencesByEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading absences: %w", err)
	}

	summary := BalanceSummary{
		EmployeeID:         id,
		Year:               year,
		CarryoverAvailable: emp.CarryoverDays,
		AnnualAllowance:    ProrateAllowance(*emp, year, policy),
	}
	for i := range requests {
		req := &requests[i]
		if req.Type != TypeVacation || req.ImputedYear() != year {
			continue
		}
		if req.Status != StatusPending && req.Status != StatusApproved {
			continue
		}
		if req.Allocation != nil {
			summary.UsedCurrentYear = summary.UsedCurrentYear.Add(req.Allocation.CurrentYearDays)
		} else {
			summary.UsedCurrentYear = summary.UsedCurrentYear.Add(req.Days)
		}
	}
	for _, abs := range absences {
		summary.AbsenceDeductions = summary.AbsenceDeductions.Add(abs.DeductedDays(year))
	}
	summary.RemainingCurrentYear = summary.AnnualAllowance.
		Sub(summary.UsedCurrentYear).
		Sub(summary.AbsenceDeductions).
		FloorZero()
	return &summary, nil
}

// AuditTrail returns the audit entries for an employee, optionally filtered
// by action and vacation year.
func (s *EmployeeService) AuditTrail(ctx context.Context, id EmployeeID, filter AuditFilter) ([]AuditEntry, error) {
	if _, err := s.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	filter.EmployeeID = id
	return s.store.QueryAudit(ctx, filter)
}
