package domain

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrDanglingParent    = errors.New("parent does not exist")
	ErrInconsistentState = errors.New("inconsistent state")

	// ErrAlreadyExists is the storage layer's uniqueness signal. The service
	// translates it into ErrDuplicateKey.
	ErrAlreadyExists = errors.New("already exists")

	// ErrReferenced is the storage layer's refusal to delete a record that
	// still has children.
	ErrReferenced = errors.New("record still has children")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound  = "RESOURCE_NOT_FOUND"
	ErrCodeDuplicateKey      = "DUPLICATE_KEY"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInconsistentState = "INCONSISTENT_STATE"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DanglingParent returns an error reporting that the named parent does not
// exist. It matches both ErrDanglingParent and ErrInvalidInput.
func DanglingParent(kind Kind, id string) error {
	return fmt.Errorf("%s %q: %w: %w", kind, id, ErrDanglingParent, ErrInvalidInput)
}

// DuplicateSubdomain returns the error reported when a subdomain name is
// already taken within its project.
func DuplicateSubdomain(name string) error {
	return fmt.Errorf("subdomain %q already exists for this project: %w", name, ErrDuplicateKey)
}

// InconsistentStateError reports a cascade deletion that failed after it had
// started removing records. Some descendants of the root may be gone while
// the root itself survives.
type InconsistentStateError struct {
	Kind   Kind
	RootID string
	Step   string
	Err    error
}

// Error implements the error interface.
func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent state: deleting %s %s failed at %s: %v", e.Kind, e.RootID, e.Step, e.Err)
}

// Unwrap returns the underlying failure.
func (e *InconsistentStateError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInconsistentState.
func (e *InconsistentStateError) Is(target error) bool {
	return target == ErrInconsistentState
}

// StandardError represents a standardized error response from the API.
type StandardError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StandardErrorResponse wraps a StandardError for JSON responses.
type StandardErrorResponse struct {
	Error StandardError `json:"error"`
}
