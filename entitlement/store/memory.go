// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/retailhr/vacation-engine/entitlement"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[entitlement.EmployeeID]entitlement.Employee
	requests  map[entitlement.RequestID]entitlement.LeaveRequest
	absences  map[entitlement.AbsenceID]entitlement.Absence
	policy    entitlement.Policy
	audit     []entitlement.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[entitlement.EmployeeID]entitlement.Employee),
		requests:  make(map[entitlement.RequestID]entitlement.LeaveRequest),
		absences:  make(map[entitlement.AbsenceID]entitlement.Absence),
		policy:    entitlement.DefaultPolicy(),
	}
}

// -----------------------------------------------------------------------------
// Employees
// -----------------------------------------------------------------------------

func (m *Memory) SaveEmployee(_ context.Context, emp entitlement.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id entitlement.EmployeeID) (*entitlement.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]entitlement.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]entitlement.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) AdjustCarryover(_ context.Context, id entitlement.EmployeeID, delta entitlement.Days) (entitlement.BalanceChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustLocked(id, delta)
}

// BulkAdjustCarryover applies every delta or none of them.
func (m *Memory) BulkAdjustCarryover(_ context.Context, deltas []entitlement.CarryoverDelta) ([]entitlement.BalanceChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all targets first so a missing employee fails the whole batch
	// before anything is written.
	for _, d := range deltas {
		if _, ok := m.employees[d.EmployeeID]; !ok {
			return nil, &entitlement.NotFoundError{Kind: "employee", ID: string(d.EmployeeID)}
		}
	}

	changes := make([]entitlement.BalanceChange, 0, len(deltas))
	for _, d := range deltas {
		change, err := m.adjustLocked(d.EmployeeID, d.Delta)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func (m *Memory) adjustLocked(id entitlement.EmployeeID, delta entitlement.Days) (entitlement.BalanceChange, error) {
	emp, ok := m.employees[id]
	if !ok {
		return entitlement.BalanceChange{}, &entitlement.NotFoundError{Kind: "employee", ID: string(id)}
	}
	before := emp.CarryoverDays
	emp.CarryoverDays = before.Add(delta)
	m.employees[id] = emp
	return entitlement.BalanceChange{
		EmployeeID: id,
		Delta:      delta,
		Before:     before,
		After:      emp.CarryoverDays,
	}, nil
}

// -----------------------------------------------------------------------------
// Requests
// -----------------------------------------------------------------------------

func (m *Memory) SaveRequest(_ context.Context, req entitlement.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Allocation != nil {
		alloc := *req.Allocation
		req.Allocation = &alloc
	}
	m.requests[req.ID] = req
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id entitlement.RequestID) (*entitlement.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	if req.Allocation != nil {
		alloc := *req.Allocation
		req.Allocation = &alloc
	}
	return &req, nil
}

func (m *Memory) ListRequestsByEmployee(_ context.Context, id entitlement.EmployeeID) ([]entitlement.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []entitlement.LeaveRequest
	for _, req := range m.requests {
		if req.EmployeeID != id {
			continue
		}
		if req.Allocation != nil {
			alloc := *req.Allocation
			req.Allocation = &alloc
		}
		result = append(result, req)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// -----------------------------------------------------------------------------
// Absences
// -----------------------------------------------------------------------------

func (m *Memory) SaveAbsence(_ context.Context, abs entitlement.Absence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.absences[abs.ID] = abs
	return nil
}

func (m *Memory) ListAbsencesByEmployee(_ context.Context, id entitlement.EmployeeID) ([]entitlement.Absence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []entitlement.Absence
	for _, abs := range m.absences {
		if abs.EmployeeID == id {
			result = append(result, abs)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// -----------------------------------------------------------------------------
// Policy
// -----------------------------------------------------------------------------

func (m *Memory) GetPolicy(_ context.Context) (entitlement.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy, nil
}

func (m *Memory) SavePolicy(_ context.Context, policy entitlement.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = policy
	return nil
}

// -----------------------------------------------------------------------------
// Audit log
// -----------------------------------------------------------------------------

// AppendAudit adds a single audit entry. Append-only.
func (m *Memory) AppendAudit(_ context.Context, entry entitlement.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

// AppendAuditBatch adds multiple audit entries atomically.
func (m *Memory) AppendAuditBatch(_ context.Context, entries []entitlement.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entries...)
	return nil
}

func (m *Memory) QueryAudit(_ context.Context, filter entitlement.AuditFilter) ([]entitlement.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []entitlement.AuditEntry
	for _, entry := range m.audit {
		if filter.EmployeeID != "" && entry.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.Year != 0 && entry.Year != filter.Year {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}
