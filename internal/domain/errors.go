package domain

import "fmt"

// Error types for consistent error handling across the service.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidRange indicates a recurrence end date before its start date.
type ErrInvalidRange struct {
	Start Date
	End   Date
}

func (e *ErrInvalidRange) Error() string {
	return fmt.Sprintf("invalid range: end date %s precedes start date %s", e.End, e.Start)
}

// ErrRecurrenceCapExceeded is informational: generation stopped at the cap
// before reaching the end date.
type ErrRecurrenceCapExceeded struct {
	Max      int
	EndDate  Date
	LastDate Date
}

func (e *ErrRecurrenceCapExceeded) Error() string {
	return fmt.Sprintf("recurrence truncated at %d instances (last %s, end date %s)", e.Max, e.LastDate, e.EndDate)
}

// ErrConflict indicates the change would break a uniqueness rule.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrExternalService indicates a failure in the backing store.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
