// Package errors collects the sentinel errors shared across traversal
// stages and collaborator clients, plus the typed error shapes the
// HTTP surface maps to status codes — generalizing the teacher's
// pkg/services/errors.go (sentinels + ValidationError) and
// pkg/api/errors.go (mapServiceError) pattern to Synesis's own
// failure modes rather than tarsy's session/chat domain.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by domain packages (classifier, routing,
// integritygate, sandbox, convmemory, failurecache) and recognized by
// internal/httpapi's status mapping.
var (
	// ErrNotFound is returned when a referenced run, user, or cached
	// entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBudgetExhausted is returned when a traversal has exceeded its
	// iteration, token, sandbox-minute, or LSP-call ceiling.
	ErrBudgetExhausted = errors.New("budget exhausted")

	// ErrPendingQuestionConflict is returned when a second pending
	// question would be created for a user that already has one
	// outstanding from a different source (spec §4.8).
	ErrPendingQuestionConflict = errors.New("pending question already active")

	// ErrIntegrityGateRejected is returned by the worker→gate boundary
	// when a patch fails the integrity gate's static checks.
	ErrIntegrityGateRejected = errors.New("integrity gate rejected patch")

	// ErrCollaboratorUnavailable is returned when an external
	// collaborator's circuit breaker is open.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrShuttingDown is returned by the HTTP surface once graceful
	// shutdown has begun and new traversals are being rejected.
	ErrShuttingDown = errors.New("service is shutting down")
)

// ValidationError reports a single field-level input validation
// failure, mirroring the teacher's services.ValidationError.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CollaboratorError wraps a failure from an external collaborator call
// (LLM, retrieval, sandbox, LSP) with the collaborator's name so
// callers can attribute breaker trips and retries to the right
// dependency without string-matching the error text.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// NewCollaboratorError wraps err with the name of the collaborator
// that produced it.
func NewCollaboratorError(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}
