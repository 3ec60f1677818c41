/*
rollover.go - Annual rollover execution

Once a year every employee's unused entitlement rolls into the carryover
balance:

  unused = prorated allowance
           - current-year days consumed by approved vacation requests
           - days deducted by absences

The unused amount, floored at zero and capped by policy, is credited to
the carryover balance in one bulk adjustment.

TWO GUARDS AGAINST DOUBLE CREDIT:
 1. The policy records the last rolled-over year; a repeat run is skipped
    unless forced.
 2. Every credit writes a per-employee rollover audit entry; even a forced
    or interrupted-and-resumed run skips employees whose entry for the
    year already exists.
*/
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RolloverExecutor runs the annual rollover.
type RolloverExecutor struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

// NewRolloverExecutor creates a RolloverExecutor backed by the given store.
func NewRolloverExecutor(store Store, log *logrus.Logger) *RolloverExecutor {
	return &RolloverExecutor{store: store, log: log, now: time.Now}
}

// RolloverInput controls one rollover run.
type RolloverInput struct {
	// TargetYear is the closing year whose unused entitlement becomes
	// carryover. Zero means the previous calendar year.
	TargetYear int

	// DryRun computes the full breakdown without writing anything.
	DryRun bool

	// Force overrides the last-rollover-year guard. The per-employee audit
	// guard still applies.
	Force bool

	Actor string
}

// EmployeeRollover is the per-employee breakdown of a rollover run.
type EmployeeRollover struct {
	EmployeeID EmployeeID
	Name       string

	Allowance Days // prorated allowance for the source year
	Consumed  Days // current-year days used by approved vacation requests
	Deducted  Days // absence deductions
	Unused    Days // allowance - consumed - deducted, floored at zero
	Credited  Days // unused after the carryover cap

	BalanceBefore Days
	BalanceAfter  Days

	// AlreadyCredited marks employees skipped by the audit guard.
	AlreadyCredited bool
}

// EmployeeRolloverError records a per-employee failure. One bad employee
// record never aborts the whole run.
type EmployeeRolloverError struct {
	EmployeeID EmployeeID
	Err        string
}

// RolloverResult summarizes one rollover run.
type RolloverResult struct {
	OK      bool
	Skipped bool
	Year    int
	DryRun  bool

	UpdatedEmployees int
	TotalAddedDays   Days

	Employees []EmployeeRollover
	Errors    []EmployeeRolloverError
}

// Execute closes in.TargetYear, crediting its unused entitlement.
func (e *RolloverExecutor) Execute(ctx context.Context, in RolloverInput) (*RolloverResult, error) {
	year := in.TargetYear
	if year == 0 {
		year = e.now().UTC().Year() - 1
	}

	policy, err := e.store.GetPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	result := &RolloverResult{Year: year, DryRun: in.DryRun}

	if !policy.CarryoverEnabled {
		e.log.WithField("year", year).Info("Rollover skipped, carryover disabled by policy")
		result.Skipped = true
		result.OK = true
		return result, nil
	}
	if policy.RolledOver(year) && !in.Force {
		e.log.WithField("year", year).Info("Rollover skipped, already executed")
		result.Skipped = true
		result.OK = true
		return result, nil
	}

	employees, err := e.store.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}

	// Employees already credited for this year, from the audit log. This is
	// what makes forced and resumed runs safe.
	credited, err := e.creditedEmployees(ctx, year)
	if err != nil {
		return nil, err
	}

	var deltas []CarryoverDelta
	var pending []EmployeeRollover
	for i := range employees {
		emp := &employees[i]
		if emp.Inactive {
			continue
		}
		breakdown, err := e.computeEmployee(ctx, emp, year, policy)
		if err != nil {
			e.log.WithError(err).WithField("employee_id", emp.ID).Error("Rollover computation failed for employee")
			result.Errors = append(result.Errors, EmployeeRolloverError{EmployeeID: emp.ID, Err: err.Error()})
			continue
		}
		if credited[emp.ID] {
			breakdown.AlreadyCredited = true
			result.Employees = append(result.Employees, *breakdown)
			continue
		}
		result.Employees = append(result.Employees, *breakdown)
		if !breakdown.Credited.IsPositive() {
			continue
		}
		deltas = append(deltas, CarryoverDelta{EmployeeID: emp.ID, Delta: breakdown.Credited})
		pending = append(pending, *breakdown)
	}

	if in.DryRun {
		for _, b := range pending {
			result.UpdatedEmployees++
			result.TotalAddedDays = result.TotalAddedDays.Add(b.Credited)
		}
		result.OK = len(result.Errors) == 0
		return result, nil
	}

	if len(deltas) > 0 {
		changes, err := e.store.BulkAdjustCarryover(ctx, deltas)
		if err != nil {
			return nil, fmt.Errorf("applying rollover credits: %w", err)
		}
		entries := make([]AuditEntry, 0, len(changes))
		now := e.now()
		for i, change := range changes {
			entries = append(entries, AuditEntry{
				ID:         uuid.New().String(),
				EmployeeID: change.EmployeeID,
				Action:     ActionRolloverCredit,
				Delta:      change.Delta,
				Before:     change.Before,
				After:      change.After,
				Year:       year,
				Actor:      in.Actor,
				Note:       fmt.Sprintf("unused %s from %d", pending[i].Unused, year),
				CreatedAt:  now,
			})
			result.UpdatedEmployees++
			result.TotalAddedDays = result.TotalAddedDays.Add(change.Delta)
			e.annotate(result, change)
		}
		if err := e.store.AppendAuditBatch(ctx, entries); err != nil {
			// Credits are committed; without the audit entries a forced rerun
			// could double-credit. Surface loudly.
			e.log.WithError(err).Error("Rollover credits applied but audit batch failed")
			return nil, fmt.Errorf("recording rollover audit: %w", err)
		}
	}

	// The marker goes last so an interrupted run re-executes and lets the
	// audit guard skip the employees already credited.
	policy.LastRolloverYear = &year
	if err := e.store.SavePolicy(ctx, policy); err != nil {
		return nil, fmt.Errorf("saving rollover marker: %w", err)
	}

	result.OK = len(result.Errors) == 0
	e.log.WithFields(logrus.Fields{
		"year":       year,
		"updated":    result.UpdatedEmployees,
		"total_days": result.TotalAddedDays.String(),
		"errors":     len(result.Errors),
	}).Info("Rollover executed")
	return result, nil
}

// computeEmployee builds the rollover breakdown for one employee.
func (e *RolloverExecutor) computeEmployee(ctx context.Context, emp *Employee, year int, policy Policy) (*EmployeeRollover, error) {
	requests, err := e.store.ListRequestsByEmployee(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("loading requests: %w", err)
	}
	absences, err := e.store.ListAbsencesByEmployee(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("loading absences: %w", err)
	}

	b := EmployeeRollover{
		EmployeeID:    emp.ID,
		Name:          emp.Name,
		Allowance:     ProrateAllowance(*emp, year, policy),
		BalanceBefore: emp.CarryoverDays,
		BalanceAfter:  emp.CarryoverDays,
	}

	for i := range requests {
		req := &requests[i]
		if req.Type != TypeVacation || req.Status != StatusApproved || req.ImputedYear() != year {
			continue
		}
		if req.Allocation != nil {
			b.Consumed = b.Consumed.Add(req.Allocation.CurrentYearDays)
		} else {
			// Legacy record without a split: count the full amount against
			// the year rather than overstate the unused entitlement.
			b.Consumed = b.Consumed.Add(req.Days)
		}
	}
	for _, abs := range absences {
		b.Deducted = b.Deducted.Add(abs.DeductedDays(year))
	}

	b.Unused = b.Allowance.Sub(b.Consumed).Sub(b.Deducted).FloorZero()
	b.Credited = b.Unused
	if policy.CarryoverMaxDays != nil {
		b.Credited = b.Credited.Min(policy.CarryoverMaxDays.FloorZero())
	}
	return &b, nil
}

// creditedEmployees returns the set of employees holding a rollover audit
// entry for the target year.
func (e *RolloverExecutor) creditedEmployees(ctx context.Context, year int) (map[EmployeeID]bool, error) {
	entries, err := e.store.QueryAudit(ctx, AuditFilter{Action: ActionRolloverCredit, Year: year})
	if err != nil {
		return nil, fmt.Errorf("querying rollover audit: %w", err)
	}
	credited := make(map[EmployeeID]bool, len(entries))
	for _, entry := range entries {
		credited[entry.EmployeeID] = true
	}
	return credited, nil
}

// annotate copies the applied balance change into the matching breakdown.
func (e *RolloverExecutor) annotate(result *RolloverResult, change BalanceChange) {
	for i := range result.Employees {
		if result.Employees[i].EmployeeID == change.EmployeeID {
			result.Employees[i].BalanceBefore = change.Before
			result.Employees[i].BalanceAfter = change.After
			return
		}
	}
}
