package domain

import "fmt"

// Error types for consistent error handling across the service.
// Handlers translate these into the tagged client envelope.

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
	return e.Message
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrPayment indicates a payment was not in the expected state
// (wrong status, or owned by a different user).
type ErrPayment struct {
	Reason string
}

func (e *ErrPayment) Error() string {
	return e.Reason
}

// ErrStripe indicates the payment processor rejected a request.
// Code carries the processor's own error code when available.
type ErrStripe struct {
	Code    string
	Message string
}

func (e *ErrStripe) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("stripe error: %s", e.Message)
}

// ErrNetwork indicates a connectivity failure talking to an external
// service.
type ErrNetwork struct {
	Service string
	Err     error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network error [%s]: %v", e.Service, e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a failure in an external service call
// not otherwise classified (includes database failures).
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

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}
