/*
handlers_test.go - HTTP-level tests for the API

Exercises the full stack (router, validation, handlers, services) against
the in-memory store: employee CRUD, the request lifecycle, balances,
policy round-trips and the admin endpoints, plus the status-code mapping
for validation and not-found errors.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhr/vacation-engine/entitlement"
	memstore "github.com/retailhr/vacation-engine/entitlement/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Memory) {
	t.Helper()
	store := memstore.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := httptest.NewServer(NewRouter(NewHandler(store, log), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createEmployee(t *testing.T, srv *httptest.Server, id string, annual, carryover float64) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees", CreateEmployeeRequest{
		ID:                 id,
		Name:               "Dana Smith",
		AnnualVacationDays: annual,
		CarryoverDays:      carryover,
		HireDate:           "2020-01-06",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func submitVacation(t *testing.T, srv *httptest.Server, employeeID string, days float64) RequestDTO {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/"+employeeID+"/requests", CreateRequestRequest{
		Type:      "vacation",
		StartDate: "2025-08-04",
		EndDate:   "2025-08-15",
		Days:      days,
		Actor:     "self",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[RequestDTO](t, resp)
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

func TestAPI_CreateAndGetEmployee(t *testing.T) {
	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 5)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	emp := decodeBody[EmployeeDTO](t, resp)

	assert.Equal(t, "emp-1", emp.ID)
	assert.Equal(t, 30.0, emp.AnnualVacationDays)
	assert.Equal(t, 5.0, emp.CarryoverDays)
	assert.Equal(t, "2020-01-06", emp.HireDate)
}

func TestAPI_CreateEmployeeValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		req  CreateEmployeeRequest
	}{
		{"missing name", CreateEmployeeRequest{HireDate: "2020-01-06"}},
		{"bad hire date", CreateEmployeeRequest{Name: "X", HireDate: "06.01.2020"}},
		{"negative allowance", CreateEmployeeRequest{Name: "X", HireDate: "2020-01-06", AnnualVacationDays: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees", tc.req)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decodeBody[ErrorResponse](t, resp)
			assert.Equal(t, "validation", body.Code)
		})
	}
}

func TestAPI_GetEmployeeNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/ghost", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// REQUEST LIFECYCLE OVER HTTP
// =============================================================================

func TestAPI_RequestLifecycle(t *testing.T) {
	// GIVEN: 5 carryover days
	// WHEN: Submitting an 8-day vacation, approving it, then cancelling
	// THEN: The split is carryover-first and cancellation restores the balance

	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 5)

	req := submitVacation(t, srv, "emp-1", 8)
	require.NotNil(t, req.Allocation)
	assert.Equal(t, 5.0, req.Allocation.CarryoverDays)
	assert.Equal(t, 3.0, req.Allocation.CurrentYearDays)
	assert.Equal(t, "pending", req.Status)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.ID+"/status", SetStatusRequest{
		Status: "approved", Actor: "mgr",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decodeBody[RequestDTO](t, resp)
	assert.Equal(t, "approved", approved.Status)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.ID+"/status", SetStatusRequest{
		Status: "cancelled", Actor: "self",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	emp := decodeBody[EmployeeDTO](t, resp)
	assert.Equal(t, 5.0, emp.CarryoverDays)
}

func TestAPI_EditRequestReallocates(t *testing.T) {
	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 5)
	req := submitVacation(t, srv, "emp-1", 8)

	days := 3.0
	end := "2025-08-06"
	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/requests/"+req.ID, EditRequestRequest{
		Days:    &days,
		EndDate: &end,
		Actor:   "self",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	edited := decodeBody[RequestDTO](t, resp)

	require.NotNil(t, edited.Allocation)
	assert.Equal(t, 3.0, edited.Allocation.CarryoverDays)
	assert.Equal(t, 0.0, edited.Allocation.CurrentYearDays)
}

func TestAPI_IllegalTransitionIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 0)
	req := submitVacation(t, srv, "emp-1", 2)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.ID+"/status", SetStatusRequest{
		Status: "revoked", Actor: "mgr",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SubmitRequestForUnknownEmployee(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/ghost/requests", CreateRequestRequest{
		Type: "vacation", StartDate: "2025-08-04", EndDate: "2025-08-15", Days: 8,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ListRequestsStatusFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 0)

	first := submitVacation(t, srv, "emp-1", 2)
	submitVacation(t, srv, "emp-1", 3)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+first.ID+"/status", SetStatusRequest{
		Status: "approved", Actor: "mgr",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/requests?status=approved", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decodeBody[[]RequestDTO](t, resp)
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/requests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decodeBody[[]RequestDTO](t, resp)
	assert.Len(t, all, 2)
}

// =============================================================================
// BALANCE ENDPOINT
// =============================================================================

func TestAPI_Balance(t *testing.T) {
	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 5)
	submitVacation(t, srv, "emp-1", 8)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/balance?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balance := decodeBody[BalanceDTO](t, resp)

	assert.Equal(t, 2025, balance.Year)
	assert.Equal(t, 0.0, balance.CarryoverAvailable)
	assert.Equal(t, 30.0, balance.AnnualAllowance)
	assert.Equal(t, 3.0, balance.UsedCurrentYear)
	assert.Equal(t, 27.0, balance.RemainingCurrentYear)
}

func TestAPI_BalanceBadYear(t *testing.T) {
	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 0)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/balance?year=soon", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// POLICY ENDPOINTS
// =============================================================================

func TestAPI_PolicyRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/policy", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	policy := decodeBody[PolicyDTO](t, resp)
	assert.True(t, policy.ProrationEnabled)
	assert.Equal(t, 0.5, policy.ProrationRoundingIncrement)

	max := 10.0
	policy.CarryoverMaxDays = &max
	policy.ProrationEnabled = false
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/policy", policy)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[PolicyDTO](t, resp)

	assert.False(t, updated.ProrationEnabled)
	require.NotNil(t, updated.CarryoverMaxDays)
	assert.Equal(t, 10.0, *updated.CarryoverMaxDays)
}

func TestAPI_PolicyRejectsBadExpiry(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/policy", PolicyDTO{
		ProrationEnabled:        true,
		CarryoverEnabled:        true,
		CarryoverExpiryMonthDay: "13-40",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAPI_PolicyUpdateKeepsRolloverMarker(t *testing.T) {
	// The rollover marker is engine-owned and must survive admin edits.
	srv, store := newTestServer(t)
	ctx := context.Background()

	policy, err := store.GetPolicy(ctx)
	require.NoError(t, err)
	year := 2025
	policy.LastRolloverYear = &year
	require.NoError(t, store.SavePolicy(ctx, policy))

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/policy", PolicyDTO{
		ProrationEnabled: false,
		CarryoverEnabled: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[PolicyDTO](t, resp)

	require.NotNil(t, updated.LastRolloverYear)
	assert.Equal(t, 2025, *updated.LastRolloverYear)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

func TestAPI_RolloverEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 0)

	ctx := context.Background()
	policy, err := store.GetPolicy(ctx)
	require.NoError(t, err)
	policy.ProrationEnabled = false
	require.NoError(t, store.SavePolicy(ctx, policy))

	req := submitVacation(t, srv, "emp-1", 20)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.ID+"/status", SetStatusRequest{
		Status: "approved", Actor: "mgr",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/rollover", RolloverRequestDTO{
		TargetYear: 2025, Actor: "admin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[RolloverResultDTO](t, resp)

	assert.True(t, result.OK)
	assert.Equal(t, 1, result.UpdatedEmployees)
	assert.Equal(t, 10.0, result.TotalAddedDays)
}

func TestAPI_ReconcileEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 5)

	// Fabricate a migrated request with no split.
	require.NoError(t, store.SaveRequest(context.Background(), entitlement.LeaveRequest{
		ID:         "req-legacy",
		EmployeeID: "emp-1",
		Type:       entitlement.TypeVacation,
		Status:     entitlement.StatusApproved,
		StartDate:  entitlement.NewDate(2025, 8, 4),
		EndDate:    entitlement.NewDate(2025, 8, 15),
		Days:       entitlement.NewDays(8),
	}))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/reconcile", ReconcileRequestDTO{
		EmployeeID: "emp-1", Actor: "admin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[RepairResultDTO](t, resp)

	assert.Equal(t, 1, result.Repaired)
	require.Len(t, result.Corrections, 1)
	assert.Equal(t, 5.0, result.Corrections[0].New.CarryoverDays)
	assert.Equal(t, 3.0, result.Corrections[0].New.CurrentYearDays)
}

func TestAPI_VerifyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 5)
	submitVacation(t, srv, "emp-1", 8)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/admin/verify/emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeBody[map[string]any](t, resp)
	assert.Equal(t, true, report["consistent"])
}

func TestAPI_AuditEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	createEmployee(t, srv, "emp-1", 30, 5)
	submitVacation(t, srv, "emp-1", 8)

	url := fmt.Sprintf("%s/api/employees/emp-1/audit?action=%s", srv.URL, entitlement.ActionRequestCreated)
	resp := doJSON(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]AuditEntryDTO](t, resp)

	require.Len(t, entries, 1)
	assert.Equal(t, -5.0, entries[0].Delta)
	assert.Equal(t, 5.0, entries[0].Before)
	assert.Equal(t, 0.0, entries[0].After)
}
