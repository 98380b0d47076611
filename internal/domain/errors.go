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

// ErrExternalService indicates a failure in an external service call.
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

// ErrTranscription indicates the transcription oracle was unreachable or
// returned a non-2xx status.
type ErrTranscription struct {
	Err error
}

func (e *ErrTranscription) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *ErrTranscription) Unwrap() error {
	return e.Err
}

// ErrClassification indicates the extraction oracle was unreachable,
// returned a non-2xx status, or produced a schema-invalid payload.
type ErrClassification struct {
	Reason string
	Err    error
}

func (e *ErrClassification) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classification failed: %s", e.Reason)
}

func (e *ErrClassification) Unwrap() error {
	return e.Err
}

// ErrPersistence indicates a store create/update/delete failed for one
// record. Fan-out catches it at the record boundary.
type ErrPersistence struct {
	Collection string
	Err        error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence failed [%s]: %v", e.Collection, e.Err)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
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
