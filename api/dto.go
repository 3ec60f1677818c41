/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through the shared validator before touching domain logic. Domain
  rules (balance arithmetic, transitions) stay in the entitlement package.

SEE ALSO:
  - handlers.go: Uses these types
  - entitlement/types.go: Domain model these map to
*/
package api

import (
	"time"

	"github.com/retailhr/vacation-engine/entitlement"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Email              string  `json:"email,omitempty"`
	AnnualVacationDays float64 `json:"annual_vacation_days"`
	CarryoverDays      float64 `json:"carryover_days"`
	HireDate           string  `json:"hire_date"`
	TerminationDate    *string `json:"termination_date,omitempty"`
	Inactive           bool    `json:"inactive,omitempty"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name" validate:"required"`
	Email              string  `json:"email" validate:"omitempty,email"`
	AnnualVacationDays float64 `json:"annual_vacation_days" validate:"gte=0"`
	CarryoverDays      float64 `json:"carryover_days" validate:"gte=0"`
	HireDate           string  `json:"hire_date" validate:"required,datetime=2006-01-02"`
	TerminationDate    *string `json:"termination_date" validate:"omitempty,datetime=2006-01-02"`
}

// BalanceDTO is the entitlement summary for one employee and year.
type BalanceDTO struct {
	EmployeeID           string  `json:"employee_id"`
	Year                 int     `json:"year"`
	CarryoverAvailable   float64 `json:"carryover_available"`
	AnnualAllowance      float64 `json:"annual_allowance"`
	UsedCurrentYear      float64 `json:"used_current_year"`
	AbsenceDeductions    float64 `json:"absence_deductions"`
	RemainingCurrentYear float64 `json:"remaining_current_year"`
}

// AllocationDTO is a request's carryover / current-year split.
type AllocationDTO struct {
	CarryoverDays   float64 `json:"carryover_days"`
	CurrentYearDays float64 `json:"current_year_days"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID           string         `json:"id"`
	EmployeeID   string         `json:"employee_id"`
	Type         string         `json:"type"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	Days         float64        `json:"days"`
	Status       string         `json:"status"`
	VacationYear int            `json:"vacation_year,omitempty"`
	Allocation   *AllocationDTO `json:"allocation,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	StatusReason string         `json:"status_reason,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
}

// CreateRequestRequest is the request to submit a leave request.
type CreateRequestRequest struct {
	Type         string  `json:"type" validate:"required,oneof=vacation other"`
	StartDate    string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Days         float64 `json:"days" validate:"gt=0"`
	VacationYear int     `json:"vacation_year" validate:"omitempty,gte=2000,lte=2200"`
	Reason       string  `json:"reason"`
	Actor        string  `json:"actor"`
}

// EditRequestRequest is the request to edit a pending/approved request.
// Omitted fields keep their current value.
type EditRequestRequest struct {
	StartDate *string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Days      *float64 `json:"days" validate:"omitempty,gt=0"`
	Reason    *string  `json:"reason"`
	Actor     string   `json:"actor"`
}

// SetStatusRequest is the request to transition a request's status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected cancelled revoked"`
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

// AbsenceDTO represents an absence in API responses.
type AbsenceDTO struct {
	ID                 string   `json:"id"`
	EmployeeID         string   `json:"employee_id"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	DeductFromVacation bool     `json:"deduct_from_vacation"`
	OverrideDays       *float64 `json:"override_days,omitempty"`
	Reason             string   `json:"reason,omitempty"`
	CreatedAt          string   `json:"created_at,omitempty"`
}

// CreateAbsenceRequest is the request to record an absence.
type CreateAbsenceRequest struct {
	StartDate          string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	DeductFromVacation bool     `json:"deduct_from_vacation"`
	OverrideDays       *float64 `json:"override_days" validate:"omitempty,gte=0"`
	Reason             string   `json:"reason"`
}

// PolicyDTO represents the company policy.
type PolicyDTO struct {
	ProrationEnabled           bool     `json:"proration_enabled"`
	ProrationRoundingIncrement float64  `json:"proration_rounding_increment"`
	CarryoverEnabled           bool     `json:"carryover_enabled"`
	CarryoverMaxDays           *float64 `json:"carryover_max_days,omitempty"`
	CarryoverExpiryMonthDay    string   `json:"carryover_expiry_month_day,omitempty"`
	LastRolloverYear           *int     `json:"last_rollover_year,omitempty"`
}

// AuditEntryDTO represents one audit log line.
type AuditEntryDTO struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employee_id"`
	RequestID  string  `json:"request_id,omitempty"`
	Action     string  `json:"action"`
	Delta      float64 `json:"delta"`
	Before     float64 `json:"balance_before"`
	After      float64 `json:"balance_after"`
	Year       int     `json:"year,omitempty"`
	Actor      string  `json:"actor,omitempty"`
	Note       string  `json:"note,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// RolloverRequestDTO is the request to trigger the annual rollover.
type RolloverRequestDTO struct {
	TargetYear int    `json:"target_year" validate:"omitempty,gte=2000,lte=2200"`
	DryRun     bool   `json:"dry_run"`
	Force      bool   `json:"force"`
	Actor      string `json:"actor"`
}

// EmployeeRolloverDTO is the per-employee rollover breakdown.
type EmployeeRolloverDTO struct {
	EmployeeID      string  `json:"employee_id"`
	Name            string  `json:"name"`
	Allowance       float64 `json:"allowance"`
	Consumed        float64 `json:"consumed"`
	Deducted        float64 `json:"deducted"`
	Unused          float64 `json:"unused"`
	Credited        float64 `json:"credited"`
	BalanceBefore   float64 `json:"balance_before"`
	BalanceAfter    float64 `json:"balance_after"`
	AlreadyCredited bool    `json:"already_credited,omitempty"`
}

// RolloverResultDTO is the result of a rollover run.
type RolloverResultDTO struct {
	OK               bool                  `json:"ok"`
	Skipped          bool                  `json:"skipped"`
	Year             int                   `json:"year"`
	DryRun           bool                  `json:"dry_run"`
	UpdatedEmployees int                   `json:"updated_employees"`
	TotalAddedDays   float64               `json:"total_added_days"`
	Employees        []EmployeeRolloverDTO `json:"employees,omitempty"`
	Errors           []RolloverErrorDTO    `json:"errors,omitempty"`
}

// RolloverErrorDTO is a per-employee rollover failure.
type RolloverErrorDTO struct {
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

// ReconcileRequestDTO is the request to repair allocations.
type ReconcileRequestDTO struct {
	EmployeeID          string `json:"employee_id" validate:"required"`
	DryRun              bool   `json:"dry_run"`
	RepairZeroCarryover bool   `json:"repair_zero_carryover"`
	Actor               string `json:"actor"`
}

// CorrectionDTO is one repaired allocation split.
type CorrectionDTO struct {
	RequestID string         `json:"request_id"`
	Old       *AllocationDTO `json:"old,omitempty"`
	New       AllocationDTO  `json:"new"`
}

// RepairResultDTO is the result of an allocation repair run.
type RepairResultDTO struct {
	EmployeeID  string          `json:"employee_id"`
	DryRun      bool            `json:"dry_run"`
	Examined    int             `json:"examined"`
	Repaired    int             `json:"repaired"`
	Corrections []CorrectionDTO `json:"corrections,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(emp entitlement.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:                 string(emp.ID),
		Name:               emp.Name,
		Email:              emp.Email,
		AnnualVacationDays: emp.AnnualVacationDays.Float64(),
		CarryoverDays:      emp.CarryoverDays.Float64(),
		HireDate:           emp.HireDate.String(),
		Inactive:           emp.Inactive,
		CreatedAt:          emp.CreatedAt.Format(time.RFC3339),
	}
	if emp.TerminationDate != nil {
		t := emp.TerminationDate.String()
		dto.TerminationDate = &t
	}
	return dto
}

func toAllocationDTO(a *entitlement.Allocation) *AllocationDTO {
	if a == nil {
		return nil
	}
	return &AllocationDTO{
		CarryoverDays:   a.CarryoverDays.Float64(),
		CurrentYearDays: a.CurrentYearDays.Float64(),
	}
}

func toRequestDTO(req entitlement.LeaveRequest) RequestDTO {
	return RequestDTO{
		ID:           string(req.ID),
		EmployeeID:   string(req.EmployeeID),
		Type:         string(req.Type),
		StartDate:    req.StartDate.String(),
		EndDate:      req.EndDate.String(),
		Days:         req.Days.Float64(),
		Status:       string(req.Status),
		VacationYear: req.VacationYear,
		Allocation:   toAllocationDTO(req.Allocation),
		Reason:       req.Reason,
		StatusReason: req.StatusReason,
		CreatedAt:    req.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    req.UpdatedAt.Format(time.RFC3339),
	}
}

func toRequestDTOs(requests []entitlement.LeaveRequest) []RequestDTO {
	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	return dtos
}

func toAbsenceDTO(abs entitlement.Absence) AbsenceDTO {
	dto := AbsenceDTO{
		ID:                 string(abs.ID),
		EmployeeID:         string(abs.EmployeeID),
		StartDate:          abs.StartDate.String(),
		EndDate:            abs.EndDate.String(),
		DeductFromVacation: abs.DeductFromVacation,
		Reason:             abs.Reason,
		CreatedAt:          abs.CreatedAt.Format(time.RFC3339),
	}
	if abs.OverrideDays != nil {
		v := abs.OverrideDays.Float64()
		dto.OverrideDays = &v
	}
	return dto
}

func toPolicyDTO(p entitlement.Policy) PolicyDTO {
	dto := PolicyDTO{
		ProrationEnabled:           p.ProrationEnabled,
		ProrationRoundingIncrement: p.ProrationRoundingIncrement.Float64(),
		CarryoverEnabled:           p.CarryoverEnabled,
		CarryoverExpiryMonthDay:    p.CarryoverExpiryMonthDay,
		LastRolloverYear:           p.LastRolloverYear,
	}
	if p.CarryoverMaxDays != nil {
		v := p.CarryoverMaxDays.Float64()
		dto.CarryoverMaxDays = &v
	}
	return dto
}

func toAuditEntryDTO(entry entitlement.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         entry.ID,
		EmployeeID: string(entry.EmployeeID),
		RequestID:  string(entry.RequestID),
		Action:     string(entry.Action),
		Delta:      entry.Delta.Float64(),
		Before:     entry.Before.Float64(),
		After:      entry.After.Float64(),
		Year:       entry.Year,
		Actor:      entry.Actor,
		Note:       entry.Note,
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
	}
}

func toRolloverResultDTO(result *entitlement.RolloverResult) RolloverResultDTO {
	dto := RolloverResultDTO{
		OK:               result.OK,
		Skipped:          result.Skipped,
		Year:             result.Year,
		DryRun:           result.DryRun,
		UpdatedEmployees: result.UpdatedEmployees,
		TotalAddedDays:   result.TotalAddedDays.Float64(),
	}
	for _, emp := range result.Employees {
		dto.Employees = append(dto.Employees, EmployeeRolloverDTO{
			EmployeeID:      string(emp.EmployeeID),
			Name:            emp.Name,
			Allowance:       emp.Allowance.Float64(),
			Consumed:        emp.Consumed.Float64(),
			Deducted:        emp.Deducted.Float64(),
			Unused:          emp.Unused.Float64(),
			Credited:        emp.Credited.Float64(),
			BalanceBefore:   emp.BalanceBefore.Float64(),
			BalanceAfter:    emp.BalanceAfter.Float64(),
			AlreadyCredited: emp.AlreadyCredited,
		})
	}
	for _, e := range result.Errors {
		dto.Errors = append(dto.Errors, RolloverErrorDTO{
			EmployeeID: string(e.EmployeeID),
			Error:      e.Err,
		})
	}
	return dto
}

func toRepairResultDTO(result *entitlement.RepairResult) RepairResultDTO {
	dto := RepairResultDTO{
		EmployeeID: string(result.EmployeeID),
		DryRun:     result.DryRun,
		Examined:   result.Examined,
		Repaired:   result.Repaired,
	}
	for _, c := range result.Corrections {
		dto.Corrections = append(dto.Corrections, CorrectionDTO{
			RequestID: string(c.RequestID),
			Old:       toAllocationDTO(c.Old),
			New:       *toAllocationDTO(&c.New),
		})
	}
	return dto
}
