/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the full entitlement.Store surface using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  entitlement.EmployeeStore: Employee records and carryover balances
  entitlement.RequestStore:  Leave requests with allocation splits
  entitlement.AbsenceStore:  Non-request absences
  entitlement.SettingsStore: Single-row company policy
  entitlement.AuditLog:      Append-only balance event log

ATOMIC BALANCE UPDATES:
  Carryover adjustments run as a single
      UPDATE employees SET vacation_carryover_days = vacation_carryover_days + ?
  so concurrent writers never lose updates. Day quantities are stored as
  REAL columns for exactly this reason; entitlement values are half-day
  granular so the float round-trip is exact.

APPEND-ONLY ENFORCEMENT:
  The audit_log table only ever sees INSERT statements. No UPDATE, no
  DELETE. Balance corrections appear as new entries.

KEY TABLES:
  employees:      Per-employee allowance, hire window and live carryover balance
  leave_requests: Requests with their carryover/current-year split
  absences:       Sick leave and similar, deducted at rollover
  settings:       Single-row (id=1) policy record
  audit_log:      Immutable log of every balance-affecting event

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/vacation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - entitlement/store.go: Interface definitions
  - entitlement/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/retailhr/vacation-engine/entitlement"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees with their live carryover balance.
	-- Day quantities are REAL so balance updates can run as a single
	-- in-place increment.
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		annual_vacation_days REAL NOT NULL DEFAULT 0,
		vacation_carryover_days REAL NOT NULL DEFAULT 0,
		hire_date TEXT NOT NULL,
		termination_date TEXT,
		inactive BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Leave requests with their denormalized allocation split.
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		vacation_year INTEGER NOT NULL DEFAULT 0,
		alloc_carryover_days REAL,
		alloc_current_year_days REAL,
		reason TEXT,
		status_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);

	-- Absences (sick leave etc.), settled against entitlement at rollover.
	CREATE TABLE IF NOT EXISTS absences (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		deduct_from_vacation BOOLEAN NOT NULL DEFAULT FALSE,
		override_days REAL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_absences_employee
		ON absences(employee_id);

	-- Company-wide policy, single row.
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		proration_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		proration_rounding_increment REAL NOT NULL DEFAULT 0.5,
		carryover_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		carryover_max_days REAL,
		carryover_expiry_month_day TEXT NOT NULL DEFAULT '',
		last_rollover_year INTEGER,
		updated_at TEXT NOT NULL
	);

	-- Audit log (append-only). Balance corrections show up as new rows.
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		request_id TEXT,
		action TEXT NOT NULL,
		delta REAL NOT NULL DEFAULT 0,
		balance_before REAL NOT NULL DEFAULT 0,
		balance_after REAL NOT NULL DEFAULT 0,
		year INTEGER NOT NULL DEFAULT 0,
		actor TEXT,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_employee
		ON audit_log(employee_id);
	CREATE INDEX IF NOT EXISTS idx_audit_action_year
		ON audit_log(action, year);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE (entitlement.EmployeeStore interface)
// =============================================================================

// SaveEmployee inserts or updates an employee record.
func (s *Store) SaveEmployee(ctx context.Context, emp entitlement.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees
		(id, name, email, annual_vacation_days, vacation_carryover_days,
		 hire_date, termination_date, inactive, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			annual_vacation_days = excluded.annual_vacation_days,
			vacation_carryover_days = excluded.vacation_carryover_days,
			hire_date = excluded.hire_date,
			termination_date = excluded.termination_date,
			inactive = excluded.inactive
	`

	var termination *string
	if emp.TerminationDate != nil {
		t := emp.TerminationDate.String()
		termination = &t
	}
	createdAt := emp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		string(emp.ID),
		emp.Name,
		emp.Email,
		emp.AnnualVacationDays.Float64(),
		emp.CarryoverDays.Float64(),
		emp.HireDate.String(),
		termination,
		emp.Inactive,
		createdAt.Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID. Returns (nil, nil) when absent.
func (s *Store) GetEmployee(ctx context.Context, id entitlement.EmployeeID) (*entitlement.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, annual_vacation_days, vacation_carryover_days,
		        hire_date, termination_date, inactive, created_at
		 FROM employees WHERE id = ?`,
		string(id),
	)
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]entitlement.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, annual_vacation_days, vacation_carryover_days,
		        hire_date, termination_date, inactive, created_at
		 FROM employees ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []entitlement.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

// AdjustCarryover applies balance += delta in a single UPDATE and returns
// the before/after snapshot read inside the same critical section.
func (s *Store) AdjustCarryover(ctx context.Context, id entitlement.EmployeeID, delta entitlement.Days) (entitlement.BalanceChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return entitlement.BalanceChange{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	change, err := adjustCarryoverTx(ctx, tx, id, delta)
	if err != nil {
		return entitlement.BalanceChange{}, err
	}
	return change, tx.Commit()
}

// BulkAdjustCarryover applies every delta in one database transaction.
func (s *Store) BulkAdjustCarryover(ctx context.Context, deltas []entitlement.CarryoverDelta) ([]entitlement.BalanceChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	changes := make([]entitlement.BalanceChange, 0, len(deltas))
	for _, d := range deltas {
		change, err := adjustCarryoverTx(ctx, tx, d.EmployeeID, d.Delta)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

func adjustCarryoverTx(ctx context.Context, tx *sql.Tx, id entitlement.EmployeeID, delta entitlement.Days) (entitlement.BalanceChange, error) {
	var before float64
	err := tx.QueryRowContext(ctx,
		"SELECT vacation_carryover_days FROM employees WHERE id = ?",
		string(id),
	).Scan(&before)
	if err == sql.ErrNoRows {
		return entitlement.BalanceChange{}, &entitlement.NotFoundError{Kind: "employee", ID: string(id)}
	}
	if err != nil {
		return entitlement.BalanceChange{}, err
	}

	// The increment is applied in SQL, never computed Go-side from the
	// value read above.
	_, err = tx.ExecContext(ctx,
		"UPDATE employees SET vacation_carryover_days = vacation_carryover_days + ? WHERE id = ?",
		delta.Float64(), string(id),
	)
	if err != nil {
		return entitlement.BalanceChange{}, fmt.Errorf("failed to adjust balance: %w", err)
	}

	var after float64
	if err := tx.QueryRowContext(ctx,
		"SELECT vacation_carryover_days FROM employees WHERE id = ?",
		string(id),
	).Scan(&after); err != nil {
		return entitlement.BalanceChange{}, err
	}

	return entitlement.BalanceChange{
		EmployeeID: id,
		Delta:      delta,
		Before:     entitlement.NewDays(before),
		After:      entitlement.NewDays(after),
	}, nil
}

// =============================================================================
// REQUEST STORE (entitlement.RequestStore interface)
// =============================================================================

// SaveRequest inserts or updates a leave request.
func (s *Store) SaveRequest(ctx context.Context, req entitlement.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_requests
		(id, employee_id, type, start_date, end_date, days, status, vacation_year,
		 alloc_carryover_days, alloc_current_year_days, reason, status_reason,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			days = excluded.days,
			status = excluded.status,
			vacation_year = excluded.vacation_year,
			alloc_carryover_days = excluded.alloc_carryover_days,
			alloc_current_year_days = excluded.alloc_current_year_days,
			reason = excluded.reason,
			status_reason = excluded.status_reason,
			updated_at = excluded.updated_at
	`

	var allocCarry, allocCurrent *float64
	if req.Allocation != nil {
		c := req.Allocation.CarryoverDays.Float64()
		cy := req.Allocation.CurrentYearDays.Float64()
		allocCarry, allocCurrent = &c, &cy
	}

	_, err := s.db.ExecContext(ctx, query,
		string(req.ID),
		string(req.EmployeeID),
		string(req.Type),
		req.StartDate.String(),
		req.EndDate.String(),
		req.Days.Float64(),
		string(req.Status),
		req.VacationYear,
		allocCarry,
		allocCurrent,
		req.Reason,
		req.StatusReason,
		req.CreatedAt.Format(time.RFC3339),
		req.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

// GetRequest retrieves a request by ID. Returns (nil, nil) when absent.
func (s *Store) GetRequest(ctx context.Context, id entitlement.RequestID) (*entitlement.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		requestSelect+" WHERE id = ?",
		string(id),
	)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListRequestsByEmployee returns an employee's requests, oldest first.
func (s *Store) ListRequestsByEmployee(ctx context.Context, id entitlement.EmployeeID) ([]entitlement.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		requestSelect+" WHERE employee_id = ? ORDER BY created_at ASC",
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []entitlement.LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

const requestSelect = `
	SELECT id, employee_id, type, start_date, end_date, days, status, vacation_year,
	       alloc_carryover_days, alloc_current_year_days, reason, status_reason,
	       created_at, updated_at
	FROM leave_requests`

// =============================================================================
// ABSENCE STORE (entitlement.AbsenceStore interface)
// =============================================================================

// SaveAbsence inserts or updates an absence record.
func (s *Store) SaveAbsence(ctx context.Context, abs entitlement.Absence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO absences
		(id, employee_id, start_date, end_date, deduct_from_vacation, override_days, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			deduct_from_vacation = excluded.deduct_from_vacation,
			override_days = excluded.override_days,
			reason = excluded.reason
	`

	var override *float64
	if abs.OverrideDays != nil {
		v := abs.OverrideDays.Float64()
		override = &v
	}

	_, err := s.db.ExecContext(ctx, query,
		string(abs.ID),
		string(abs.EmployeeID),
		abs.StartDate.String(),
		abs.EndDate.String(),
		abs.DeductFromVacation,
		override,
		abs.Reason,
		abs.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// ListAbsencesByEmployee returns an employee's absences, oldest first.
func (s *Store) ListAbsencesByEmployee(ctx context.Context, id entitlement.EmployeeID) ([]entitlement.Absence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, employee_id, start_date, end_date, deduct_from_vacation, override_days, reason, created_at
		 FROM absences WHERE employee_id = ? ORDER BY created_at ASC`,
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var absences []entitlement.Absence
	for rows.Next() {
		var (
			abs                  entitlement.Absence
			absID, empID         string
			startDate, endDate   string
			override             sql.NullFloat64
			reason               sql.NullString
			createdAt            string
		)
		if err := rows.Scan(&absID, &empID, &startDate, &endDate,
			&abs.DeductFromVacation, &override, &reason, &createdAt); err != nil {
			return nil, err
		}
		abs.ID = entitlement.AbsenceID(absID)
		abs.EmployeeID = entitlement.EmployeeID(empID)
		abs.StartDate, _ = entitlement.ParseDate(startDate)
		abs.EndDate, _ = entitlement.ParseDate(endDate)
		if override.Valid {
			d := entitlement.NewDays(override.Float64)
			abs.OverrideDays = &d
		}
		abs.Reason = reason.String
		abs.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		absences = append(absences, abs)
	}
	return absences, rows.Err()
}

// =============================================================================
// SETTINGS STORE (entitlement.SettingsStore interface)
// =============================================================================

// GetPolicy reads the single policy row, falling back to defaults when the
// row has never been written.
func (s *Store) GetPolicy(ctx context.Context) (entitlement.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		policy      entitlement.Policy
		increment   float64
		maxDays     sql.NullFloat64
		rolloverYr  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT proration_enabled, proration_rounding_increment, carryover_enabled,
		        carryover_max_days, carryover_expiry_month_day, last_rollover_year
		 FROM settings WHERE id = 1`,
	).Scan(&policy.ProrationEnabled, &increment, &policy.CarryoverEnabled,
		&maxDays, &policy.CarryoverExpiryMonthDay, &rolloverYr)

	if err == sql.ErrNoRows {
		return entitlement.DefaultPolicy(), nil
	}
	if err != nil {
		return entitlement.Policy{}, err
	}

	policy.ProrationRoundingIncrement = entitlement.NewDays(increment)
	if maxDays.Valid {
		d := entitlement.NewDays(maxDays.Float64)
		policy.CarryoverMaxDays = &d
	}
	if rolloverYr.Valid {
		y := int(rolloverYr.Int64)
		policy.LastRolloverYear = &y
	}
	return policy, nil
}

// SavePolicy upserts the single policy row.
func (s *Store) SavePolicy(ctx context.Context, policy entitlement.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO settings
		(id, proration_enabled, proration_rounding_increment, carryover_enabled,
		 carryover_max_days, carryover_expiry_month_day, last_rollover_year, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			proration_enabled = excluded.proration_enabled,
			proration_rounding_increment = excluded.proration_rounding_increment,
			carryover_enabled = excluded.carryover_enabled,
			carryover_max_days = excluded.carryover_max_days,
			carryover_expiry_month_day = excluded.carryover_expiry_month_day,
			last_rollover_year = excluded.last_rollover_year,
			updated_at = excluded.updated_at
	`

	var maxDays *float64
	if policy.CarryoverMaxDays != nil {
		v := policy.CarryoverMaxDays.Float64()
		maxDays = &v
	}
	var rolloverYr *int
	if policy.LastRolloverYear != nil {
		y := *policy.LastRolloverYear
		rolloverYr = &y
	}

	_, err := s.db.ExecContext(ctx, query,
		policy.ProrationEnabled,
		policy.ProrationRoundingIncrement.Float64(),
		policy.CarryoverEnabled,
		maxDays,
		policy.CarryoverExpiryMonthDay,
		rolloverYr,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// AUDIT LOG (entitlement.AuditLog interface)
// =============================================================================

// AppendAudit adds a single entry. Append-only.
func (s *Store) AppendAudit(ctx context.Context, entry entitlement.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendAuditTx(ctx, s.db, entry)
}

// AppendAuditBatch adds multiple entries atomically.
func (s *Store) AppendAuditBatch(ctx context.Context, entries []entitlement.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		if err := appendAuditTx(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func appendAuditTx(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, entry entitlement.AuditEntry) error {
	query := `
		INSERT INTO audit_log
		(id, employee_id, request_id, action, delta, balance_before, balance_after,
		 year, actor, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		entry.ID,
		string(entry.EmployeeID),
		nullString(string(entry.RequestID)),
		string(entry.Action),
		entry.Delta.Float64(),
		entry.Before.Float64(),
		entry.After.Float64(),
		entry.Year,
		entry.Actor,
		entry.Note,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns matching entries, oldest first.
func (s *Store) QueryAudit(ctx context.Context, filter entitlement.AuditFilter) ([]entitlement.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, request_id, action, delta, balance_before, balance_after,
		       year, actor, note, created_at
		FROM audit_log
	`
	var clauses []string
	var args []any
	if filter.EmployeeID != "" {
		clauses = append(clauses, "employee_id = ?")
		args = append(args, string(filter.EmployeeID))
	}
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.Year != 0 {
		clauses = append(clauses, "year = ?")
		args = append(args, filter.Year)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []entitlement.AuditEntry
	for rows.Next() {
		var (
			entry                entitlement.AuditEntry
			empID, action        string
			requestID, actor     sql.NullString
			note                 sql.NullString
			delta, before, after float64
			createdAt            string
		)
		if err := rows.Scan(&entry.ID, &empID, &requestID, &action,
			&delta, &before, &after, &entry.Year, &actor, &note, &createdAt); err != nil {
			return nil, err
		}
		entry.EmployeeID = entitlement.EmployeeID(empID)
		entry.RequestID = entitlement.RequestID(requestID.String)
		entry.Action = entitlement.AuditAction(action)
		entry.Delta = entitlement.NewDays(delta)
		entry.Before = entitlement.NewDays(before)
		entry.After = entitlement.NewDays(after)
		entry.Actor = actor.String
		entry.Note = note.String
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"audit_log", "leave_requests", "absences", "employees", "settings"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Row scanning helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (*entitlement.Employee, error) {
	var (
		emp                 entitlement.Employee
		id                  string
		email               sql.NullString
		annual, carryover   float64
		hireDate            string
		termination         sql.NullString
		createdAt           string
	)
	err := row.Scan(&id, &emp.Name, &email, &annual, &carryover,
		&hireDate, &termination, &emp.Inactive, &createdAt)
	if err != nil {
		return nil, err
	}

	emp.ID = entitlement.EmployeeID(id)
	emp.Email = email.String
	emp.AnnualVacationDays = entitlement.NewDays(annual)
	emp.CarryoverDays = entitlement.NewDays(carryover)
	emp.HireDate, _ = entitlement.ParseDate(hireDate)
	if termination.Valid && termination.String != "" {
		d, _ := entitlement.ParseDate(termination.String)
		emp.TerminationDate = &d
	}
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &emp, nil
}

func scanRequest(row scanner) (*entitlement.LeaveRequest, error) {
	var (
		req                      entitlement.LeaveRequest
		id, empID, reqType       string
		startDate, endDate       string
		days                     float64
		status                   string
		allocCarry, allocCurrent sql.NullFloat64
		reason, statusReason     sql.NullString
		createdAt, updatedAt     string
	)
	err := row.Scan(&id, &empID, &reqType, &startDate, &endDate, &days,
		&status, &req.VacationYear, &allocCarry, &allocCurrent,
		&reason, &statusReason, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	req.ID = entitlement.RequestID(id)
	req.EmployeeID = entitlement.EmployeeID(empID)
	req.Type = entitlement.RequestType(reqType)
	req.StartDate, _ = entitlement.ParseDate(startDate)
	req.EndDate, _ = entitlement.ParseDate(endDate)
	req.Days = entitlement.NewDays(days)
	req.Status = entitlement.RequestStatus(status)
	if allocCarry.Valid && allocCurrent.Valid {
		req.Allocation = &entitlement.Allocation{
			CarryoverDays:   entitlement.NewDays(allocCarry.Float64),
			CurrentYearDays: entitlement.NewDays(allocCurrent.Float64),
		}
	}
	req.Reason = reason.String
	req.StatusReason = statusReason.String
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &req, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
