/*
errors.go - Centralized error types for the entitlement engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  The HTTP layer maps these onto status codes; the engine itself only
  ever deals in the sentinel kinds below.

ERROR KINDS:
  ValidationError          - bad input shape/values (caller's fault)
  NotFoundError            - referenced employee/request missing
  PolicyMisconfiguredError - unusable policy settings
  ConcurrencyConflictError - balance write lost a race

Pure calculations (allocation, proration) never return errors for numeric
edge cases; they clamp or degrade to zero so callers always get a usable
result.

USAGE:
  if entitlement.IsNotFound(err) { ... 404 ... }
  var ve *entitlement.ValidationError
  if errors.As(err, &ve) { ... field detail ... }
*/
package entitlement

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all bad-input errors.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPolicyMisconfigured is returned when the vacation policy holds
	// settings the engine cannot work with.
	ErrPolicyMisconfigured = errors.New("policy misconfigured")

	// ErrConcurrencyConflict is returned when a balance write loses a race
	// under optimistic concurrency control.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a bad input value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "employee", "request", "absence"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PolicyMisconfiguredError names the unusable setting.
type PolicyMisconfiguredError struct {
	Setting string
	Message string
}

func (e *PolicyMisconfiguredError) Error() string {
	return fmt.Sprintf("policy setting %s: %s", e.Setting, e.Message)
}

func (e *PolicyMisconfiguredError) Unwrap() error { return ErrPolicyMisconfigured }

// ConcurrencyConflictError identifies the contested employee balance.
type ConcurrencyConflictError struct {
	EmployeeID EmployeeID
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("balance write conflict for employee %s", e.EmployeeID)
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrencyConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
