package entitlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhr/vacation-engine/entitlement"
	memstore "github.com/retailhr/vacation-engine/entitlement/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newRolloverFixture(t *testing.T) (*entitlement.RolloverExecutor, *entitlement.RequestService, *memstore.Memory) {
	t.Helper()
	store := memstore.NewMemory()
	log := testLogger()
	return entitlement.NewRolloverExecutor(store, log), entitlement.NewRequestService(store, log), store
}

func approvedVacation(t *testing.T, svc *entitlement.RequestService, employeeID string, days float64, year int) {
	t.Helper()
	ctx := context.Background()
	req, err := svc.CreateRequest(ctx, entitlement.CreateRequestInput{
		EmployeeID: entitlement.EmployeeID(employeeID),
		Type:       entitlement.TypeVacation,
		StartDate:  date(year, time.June, 2),
		EndDate:    date(year, time.June, 27),
		Days:       entitlement.NewDays(days),
		Actor:      "test",
	})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, req.ID, entitlement.SetStatusInput{Status: entitlement.StatusApproved, Actor: "mgr"})
	require.NoError(t, err)
}

func closeYear(t *testing.T, exec *entitlement.RolloverExecutor, year int) *entitlement.RolloverResult {
	t.Helper()
	result, err := exec.Execute(context.Background(), entitlement.RolloverInput{TargetYear: year, Actor: "admin"})
	require.NoError(t, err)
	return result
}

// =============================================================================
// ROLLOVER TESTS
// =============================================================================

func TestRollover_CreditsUnusedDays(t *testing.T) {
	// GIVEN: 30 annual days, proration disabled, 20 approved current-year
	//        days consumed in 2025, no deducting absences
	// WHEN: Closing 2025
	// THEN: 10 unused days land on the carryover balance

	exec, svc, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)

	policy := entitlement.DefaultPolicy()
	policy.ProrationEnabled = false
	require.NoError(t, store.SavePolicy(ctx, policy))

	approvedVacation(t, svc, "emp-1", 20, 2025)

	result := closeYear(t, exec, 2025)

	assert.True(t, result.OK)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.UpdatedEmployees)
	assert.True(t, result.TotalAddedDays.Equal(entitlement.NewDays(10)))
	assert.True(t, balanceOf(t, store, "emp-1").Equal(entitlement.NewDays(10)))
}

func TestRollover_SecondRunSkipped(t *testing.T) {
	exec, svc, store := newRolloverFixture(t)
	seedEmployee(t, store, "emp-1", 30, 0)
	approvedVacation(t, svc, "emp-1", 20, 2025)

	first := closeYear(t, exec, 2025)
	require.False(t, first.Skipped)

	second := closeYear(t, exec, 2025)
	assert.True(t, second.Skipped)
	assert.True(t, balanceOf(t, store, "emp-1").Equal(entitlement.NewDays(10)), "balance must not change on the repeat run")
}

func TestRollover_ForceStillGuardedPerEmployee(t *testing.T) {
	// GIVEN: The 2025 rollover already ran
	// WHEN: Forcing it again
	// THEN: The per-employee audit guard prevents a double credit

	exec, svc, store := newRolloverFixture(t)
	seedEmployee(t, store, "emp-1", 30, 0)
	approvedVacation(t, svc, "emp-1", 20, 2025)

	closeYear(t, exec, 2025)

	forced, err := exec.Execute(context.Background(), entitlement.RolloverInput{
		TargetYear: 2025,
		Force:      true,
		Actor:      "admin",
	})
	require.NoError(t, err)

	assert.False(t, forced.Skipped)
	assert.Equal(t, 0, forced.UpdatedEmployees)
	require.Len(t, forced.Employees, 1)
	assert.True(t, forced.Employees[0].AlreadyCredited)
	assert.True(t, balanceOf(t, store, "emp-1").Equal(entitlement.NewDays(10)))
}

func TestRollover_ForceCatchesNewEmployees(t *testing.T) {
	// A forced rerun credits employees the first pass missed while leaving
	// the already-credited ones alone.

	exec, svc, store := newRolloverFixture(t)
	seedEmployee(t, store, "emp-1", 30, 0)
	approvedVacation(t, svc, "emp-1", 20, 2025)
	closeYear(t, exec, 2025)

	seedEmployee(t, store, "emp-2", 30, 0)
	forced, err := exec.Execute(context.Background(), entitlement.RolloverInput{
		TargetYear: 2025,
		Force:      true,
		Actor:      "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, forced.UpdatedEmployees)
	assert.True(t, balanceOf(t, store, "emp-1").Equal(entitlement.NewDays(10)))
	assert.True(t, balanceOf(t, store, "emp-2").Equal(entitlement.NewDays(30)), "emp-2 used nothing, full allowance rolls")
}

func TestRollover_DryRunWritesNothing(t *testing.T) {
	exec, svc, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)
	approvedVacation(t, svc, "emp-1", 20, 2025)

	result, err := exec.Execute(ctx, entitlement.RolloverInput{TargetYear: 2025, DryRun: true, Actor: "admin"})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.UpdatedEmployees)
	assert.True(t, result.TotalAddedDays.Equal(entitlement.NewDays(10)))

	// Nothing persisted: balance, marker and audit log untouched.
	assert.True(t, balanceOf(t, store, "emp-1").IsZero())
	policy, err := store.GetPolicy(ctx)
	require.NoError(t, err)
	assert.Nil(t, policy.LastRolloverYear)
	entries, err := store.QueryAudit(ctx, entitlement.AuditFilter{Action: entitlement.ActionRolloverCredit})
	require.NoError(t, err)
	assert.Empty(t, entries)

	// The real run afterwards still works.
	applied := closeYear(t, exec, 2025)
	assert.Equal(t, 1, applied.UpdatedEmployees)
	assert.True(t, balanceOf(t, store, "emp-1").Equal(entitlement.NewDays(10)))
}

func TestRollover_AbsencesReduceUnused(t *testing.T) {
	// GIVEN: 30 annual days, no requests, a 4-day deducting absence and a
	//        3-day non-deducting one in 2025
	// THEN: 26 days roll over

	exec, svc, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)

	_, err := svc.RecordAbsence(ctx, entitlement.RecordAbsenceInput{
		EmployeeID:         "emp-1",
		StartDate:          date(2025, time.February, 2),
		EndDate:            date(2025, time.February, 5),
		DeductFromVacation: true,
	})
	require.NoError(t, err)
	_, err = svc.RecordAbsence(ctx, entitlement.RecordAbsenceInput{
		EmployeeID: "emp-1",
		StartDate:  date(2025, time.March, 10),
		EndDate:    date(2025, time.March, 12),
	})
	require.NoError(t, err)

	result := closeYear(t, exec, 2025)
	assert.True(t, result.TotalAddedDays.Equal(entitlement.NewDays(26)), "got %s", result.TotalAddedDays)
}

func TestRollover_OverrideDaysImputedToStartYear(t *testing.T) {
	// An absence spanning the year boundary with an explicit day count is
	// imputed wholly to its start year.

	exec, svc, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)

	override := entitlement.NewDays(6)
	_, err := svc.RecordAbsence(ctx, entitlement.RecordAbsenceInput{
		EmployeeID:         "emp-1",
		StartDate:          date(2025, time.December, 29),
		EndDate:            date(2026, time.January, 9),
		DeductFromVacation: true,
		OverrideDays:       &override,
	})
	require.NoError(t, err)

	result := closeYear(t, exec, 2025)
	assert.True(t, result.TotalAddedDays.Equal(entitlement.NewDays(24)), "got %s", result.TotalAddedDays)
}

func TestRollover_CapAppliesPerEmployee(t *testing.T) {
	exec, svc, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)
	approvedVacation(t, svc, "emp-1", 5, 2025)

	policy := entitlement.DefaultPolicy()
	cap := entitlement.NewDays(10)
	policy.CarryoverMaxDays = &cap
	require.NoError(t, store.SavePolicy(ctx, policy))

	result := closeYear(t, exec, 2025)

	require.Len(t, result.Employees, 1)
	assert.True(t, result.Employees[0].Unused.Equal(entitlement.NewDays(25)))
	assert.True(t, result.Employees[0].Credited.Equal(entitlement.NewDays(10)))
	assert.True(t, balanceOf(t, store, "emp-1").Equal(entitlement.NewDays(10)))
}

func TestRollover_CarryoverDisabledSkips(t *testing.T) {
	exec, _, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)

	policy := entitlement.DefaultPolicy()
	policy.CarryoverEnabled = false
	require.NoError(t, store.SavePolicy(ctx, policy))

	result := closeYear(t, exec, 2025)
	assert.True(t, result.Skipped)
	assert.True(t, balanceOf(t, store, "emp-1").IsZero())
}

func TestRollover_OverconsumptionFloorsAtZero(t *testing.T) {
	// Using more than the allowance never produces a negative credit.
	exec, svc, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 10, 0)

	policy := entitlement.DefaultPolicy()
	policy.ProrationEnabled = false
	require.NoError(t, store.SavePolicy(ctx, policy))

	approvedVacation(t, svc, "emp-1", 14, 2025)

	result := closeYear(t, exec, 2025)
	assert.Equal(t, 0, result.UpdatedEmployees)
	assert.True(t, balanceOf(t, store, "emp-1").IsZero())
}

func TestRollover_PendingRequestsDoNotConsume(t *testing.T) {
	// Only approved requests count against the year at rollover time.
	exec, svc, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)

	policy := entitlement.DefaultPolicy()
	policy.ProrationEnabled = false
	require.NoError(t, store.SavePolicy(ctx, policy))

	_, err := svc.CreateRequest(ctx, entitlement.CreateRequestInput{
		EmployeeID: "emp-1",
		Type:       entitlement.TypeVacation,
		StartDate:  date(2025, time.June, 2),
		EndDate:    date(2025, time.June, 13),
		Days:       entitlement.NewDays(10),
	})
	require.NoError(t, err)

	result := closeYear(t, exec, 2025)
	assert.True(t, result.TotalAddedDays.Equal(entitlement.NewDays(30)), "got %s", result.TotalAddedDays)
}

func TestRollover_InactiveEmployeesSkipped(t *testing.T) {
	exec, _, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	emp.Inactive = true
	require.NoError(t, store.SaveEmployee(ctx, *emp))

	result := closeYear(t, exec, 2025)
	assert.Equal(t, 0, result.UpdatedEmployees)
	assert.Empty(t, result.Employees)
	assert.True(t, balanceOf(t, store, "emp-1").IsZero())
}

// failingRequestStore breaks request listing for a single employee to
// exercise the partial-failure path.
type failingRequestStore struct {
	*memstore.Memory
	failFor entitlement.EmployeeID
}

func (s *failingRequestStore) ListRequestsByEmployee(ctx context.Context, id entitlement.EmployeeID) ([]entitlement.LeaveRequest, error) {
	if id == s.failFor {
		return nil, errors.New("request listing unavailable")
	}
	return s.Memory.ListRequestsByEmployee(ctx, id)
}

func TestRollover_EmployeeErrorDoesNotAbortRun(t *testing.T) {
	// GIVEN: Two active employees, one whose request history cannot be read
	// WHEN: Closing 2025
	// THEN: The run completes, the healthy employee is credited, and the
	//       failure is reported against the broken one

	mem := memstore.NewMemory()
	store := &failingRequestStore{Memory: mem, failFor: "emp-2"}
	exec := entitlement.NewRolloverExecutor(store, testLogger())
	ctx := context.Background()
	seedEmployee(t, mem, "emp-1", 30, 0)
	seedEmployee(t, mem, "emp-2", 30, 0)

	policy := entitlement.DefaultPolicy()
	policy.ProrationEnabled = false
	require.NoError(t, mem.SavePolicy(ctx, policy))

	result, err := exec.Execute(ctx, entitlement.RolloverInput{TargetYear: 2025, Actor: "admin"})
	require.NoError(t, err)

	assert.False(t, result.OK)
	assert.False(t, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, entitlement.EmployeeID("emp-2"), result.Errors[0].EmployeeID)
	assert.Contains(t, result.Errors[0].Err, "request listing unavailable")

	assert.Equal(t, 1, result.UpdatedEmployees)
	assert.True(t, balanceOf(t, mem, "emp-1").Equal(entitlement.NewDays(30)))
	assert.True(t, balanceOf(t, mem, "emp-2").IsZero())
}

func TestRollover_WritesPerEmployeeAuditEntries(t *testing.T) {
	exec, svc, store := newRolloverFixture(t)
	ctx := context.Background()
	seedEmployee(t, store, "emp-1", 30, 0)
	approvedVacation(t, svc, "emp-1", 20, 2025)

	closeYear(t, exec, 2025)

	entries, err := store.QueryAudit(ctx, entitlement.AuditFilter{
		EmployeeID: "emp-1",
		Action:     entitlement.ActionRolloverCredit,
		Year:       2025,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Delta.Equal(entitlement.NewDays(10)))
	assert.True(t, entries[0].After.Equal(entitlement.NewDays(10)))
}
