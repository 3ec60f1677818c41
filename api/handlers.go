/*
handlers.go - HTTP API handlers for the vacation entitlement engine

PURPOSE:
  Exposes the entitlement engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees               List all employees
    POST   /api/employees               Create employee
    GET    /api/employees/{id}          Get employee details
    GET    /api/employees/{id}/balance  Entitlement summary for a year
    GET    /api/employees/{id}/audit    Audit trail
    GET    /api/employees/{id}/requests List leave requests
    POST   /api/employees/{id}/requests Submit leave request
    GET    /api/employees/{id}/absences List absences
    POST   /api/employees/{id}/absences Record absence

  Requests:
    GET    /api/requests/{id}           Get request
    PATCH  /api/requests/{id}           Edit dates/day count
    POST   /api/requests/{id}/status    Approve/reject/cancel/revoke

  Policy:
    GET    /api/policy                  Read company policy
    PUT    /api/policy                  Update company policy

  Admin:
    POST   /api/admin/rollover          Trigger annual rollover
    POST   /api/admin/reconcile         Repair allocation splits
    GET    /api/admin/verify/{id}       Verify balance against audit log

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (go-playground/validator)
  3. Call domain logic
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Domain errors map onto HTTP status codes:
  - 400: validation errors, invalid input
  - 404: employee/request not found
  - 409: concurrent balance modification
  - 422: policy misconfigured
  - 500: everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/retailhr/vacation-engine/entitlement"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      entitlement.Store
	Employees  *entitlement.EmployeeService
	Requests   *entitlement.RequestService
	Rollover   *entitlement.RolloverExecutor
	Reconciler *entitlement.Reconciler

	Log      *logrus.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler with the given store.
func NewHandler(store entitlement.Store, log *logrus.Logger) *Handler {
	return &Handler{
		Store:      store,
		Employees:  entitlement.NewEmployeeService(store, log),
		Requests:   entitlement.NewRequestService(store, log),
		Rollover:   entitlement.NewRolloverExecutor(store, log),
		Reconciler: entitlement.NewReconciler(store, log),
		Log:        log,
		validate:   validator.New(),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Employees.ListEmployees(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Employees.GetEmployee(r.Context(), entitlement.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	hireDate, _ := entitlement.ParseDate(req.HireDate)
	in := entitlement.CreateEmployeeInput{
		ID:                 entitlement.EmployeeID(req.ID),
		Name:               req.Name,
		Email:              req.Email,
		AnnualVacationDays: entitlement.NewDays(req.AnnualVacationDays),
		CarryoverDays:      entitlement.NewDays(req.CarryoverDays),
		HireDate:           hireDate,
	}
	if req.TerminationDate != nil {
		d, _ := entitlement.ParseDate(*req.TerminationDate)
		in.TerminationDate = &d
	}

	emp, err := h.Employees.CreateEmployee(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*emp))
}

// GetBalance returns the entitlement summary for an employee.
// The year defaults to the current year; override with ?year=YYYY.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	year := time.Now().UTC().Year()
	if q := r.URL.Query().Get("year"); q != "" {
		y, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year parameter", err)
			return
		}
		year = y
	}

	summary, err := h.Employees.Balance(r.Context(), entitlement.EmployeeID(chi.URLParam(r, "id")), year)
	if err != nil {
		h.writeDomainError(w, "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		EmployeeID:           string(summary.EmployeeID),
		Year:                 summary.Year,
		CarryoverAvailable:   summary.CarryoverAvailable.Float64(),
		AnnualAllowance:      summary.AnnualAllowance.Float64(),
		UsedCurrentYear:      summary.UsedCurrentYear.Float64(),
		AbsenceDeductions:    summary.AbsenceDeductions.Float64(),
		RemainingCurrentYear: summary.RemainingCurrentYear.Float64(),
	})
}

// GetAudit returns an employee's audit trail. Supports ?action= and ?year=.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	filter := entitlement.AuditFilter{
		Action: entitlement.AuditAction(r.URL.Query().Get("action")),
	}
	if q := r.URL.Query().Get("year"); q != "" {
		y, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year parameter", err)
			return
		}
		filter.Year = y
	}

	entries, err := h.Employees.AuditTrail(r.Context(), entitlement.EmployeeID(chi.URLParam(r, "id")), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to query audit trail", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toAuditEntryDTO(entry)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ListRequests returns an employee's leave requests, optionally filtered
// with ?status=.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Requests.ListRequests(r.Context(), entitlement.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to list requests", err)
		return
	}

	if q := r.URL.Query().Get("status"); q != "" {
		status := entitlement.RequestStatus(q)
		filtered := requests[:0]
		for _, req := range requests {
			if req.Status == status {
				filtered = append(filtered, req)
			}
		}
		requests = filtered
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// SubmitRequest creates a new leave request for an employee.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, _ := entitlement.ParseDate(req.StartDate)
	end, _ := entitlement.ParseDate(req.EndDate)
	created, err := h.Requests.CreateRequest(r.Context(), entitlement.CreateRequestInput{
		EmployeeID:   entitlement.EmployeeID(chi.URLParam(r, "id")),
		Type:         entitlement.RequestType(req.Type),
		StartDate:    start,
		EndDate:      end,
		Days:         entitlement.NewDays(req.Days),
		VacationYear: req.VacationYear,
		Reason:       req.Reason,
		Actor:        req.Actor,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

// GetRequest returns a single leave request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Requests.GetRequest(r.Context(), entitlement.RequestID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// EditRequest updates the dates/day count of a pending or approved request.
func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	var req EditRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := entitlement.EditRequestInput{Reason: req.Reason, Actor: req.Actor}
	if req.StartDate != nil {
		d, _ := entitlement.ParseDate(*req.StartDate)
		in.StartDate = &d
	}
	if req.EndDate != nil {
		d, _ := entitlement.ParseDate(*req.EndDate)
		in.EndDate = &d
	}
	if req.Days != nil {
		d := entitlement.NewDays(*req.Days)
		in.Days = &d
	}

	updated, err := h.Requests.EditRequest(r.Context(), entitlement.RequestID(chi.URLParam(r, "id")), in)
	if err != nil {
		h.writeDomainError(w, "Failed to edit request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// SetRequestStatus transitions a request through its lifecycle.
func (h *Handler) SetRequestStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.Requests.SetStatus(r.Context(), entitlement.RequestID(chi.URLParam(r, "id")), entitlement.SetStatusInput{
		Status: entitlement.RequestStatus(req.Status),
		Reason: req.Reason,
		Actor:  req.Actor,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to change request status", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// =============================================================================
// ABSENCE HANDLERS
// =============================================================================

// ListAbsences returns an employee's absences.
func (h *Handler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	absences, err := h.Requests.ListAbsences(r.Context(), entitlement.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to list absences", err)
		return
	}

	dtos := make([]AbsenceDTO, len(absences))
	for i, abs := range absences {
		dtos[i] = toAbsenceDTO(abs)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordAbsence records a non-request absence for an employee.
func (h *Handler) RecordAbsence(w http.ResponseWriter, r *http.Request) {
	var req CreateAbsenceRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, _ := entitlement.ParseDate(req.StartDate)
	end, _ := entitlement.ParseDate(req.EndDate)
	in := entitlement.RecordAbsenceInput{
		EmployeeID:         entitlement.EmployeeID(chi.URLParam(r, "id")),
		StartDate:          start,
		EndDate:            end,
		DeductFromVacation: req.DeductFromVacation,
		Reason:             req.Reason,
	}
	if req.OverrideDays != nil {
		d := entitlement.NewDays(*req.OverrideDays)
		in.OverrideDays = &d
	}

	abs, err := h.Requests.RecordAbsence(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, "Failed to record absence", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAbsenceDTO(*abs))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// GetPolicy returns the company policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.Store.GetPolicy(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load policy", err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(policy))
}

// UpdatePolicy replaces the company policy.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req PolicyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy := entitlement.Policy{
		ProrationEnabled:           req.ProrationEnabled,
		ProrationRoundingIncrement: entitlement.NewDays(req.ProrationRoundingIncrement),
		CarryoverEnabled:           req.CarryoverEnabled,
		CarryoverExpiryMonthDay:    req.CarryoverExpiryMonthDay,
	}
	if req.CarryoverMaxDays != nil {
		d := entitlement.NewDays(*req.CarryoverMaxDays)
		policy.CarryoverMaxDays = &d
	}
	// The rollover marker is engine-owned; it survives policy edits.
	current, err := h.Store.GetPolicy(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load policy", err)
		return
	}
	policy.LastRolloverYear = current.LastRolloverYear

	if err := policy.Validate(); err != nil {
		h.writeDomainError(w, "Invalid policy", err)
		return
	}
	if err := h.Store.SavePolicy(r.Context(), policy); err != nil {
		h.writeDomainError(w, "Failed to save policy", err)
		return
	}

	h.Log.Info("Policy updated")
	writeJSON(w, http.StatusOK, toPolicyDTO(policy))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerRollover runs the annual rollover.
func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	var req RolloverRequestDTO
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Rollover.Execute(r.Context(), entitlement.RolloverInput{
		TargetYear: req.TargetYear,
		DryRun:     req.DryRun,
		Force:      req.Force,
		Actor:      req.Actor,
	})
	if err != nil {
		h.writeDomainError(w, "Rollover failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRolloverResultDTO(result))
}

// TriggerReconcile repairs allocation splits for one employee.
func (h *Handler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequestDTO
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Reconciler.RepairAllocations(r.Context(), entitlement.EmployeeID(req.EmployeeID), entitlement.RepairOptions{
		DryRun:              req.DryRun,
		RepairZeroCarryover: req.RepairZeroCarryover,
		Actor:               req.Actor,
	})
	if err != nil {
		h.writeDomainError(w, "Reconciliation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRepairResultDTO(result))
}

// VerifyBalance replays the audit log against an employee's stored balance.
func (h *Handler) VerifyBalance(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reconciler.VerifyBalance(r.Context(), entitlement.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Verification failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": string(report.EmployeeID),
		"stored":      report.Stored.Float64(),
		"replayed":    report.Replayed.Float64(),
		"entries":     report.Entries,
		"consistent":  report.Consistent,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses the JSON body into dst and runs struct validation,
// writing a 400 response on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation",
				Details: verrs[0].Error(),
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps domain errors onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case entitlement.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case entitlement.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case entitlement.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, entitlement.ErrPolicyMisconfigured):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
