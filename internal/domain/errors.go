package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError is returned for malformed or contradictory input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrValidation is the sentinel error for invalid input.
var ErrValidation = ValidationError{}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// AccessDeniedError is returned when a credential does not match the owner of
// a content item. It never carries which part of the credential was wrong.
type AccessDeniedError struct{}

func (AccessDeniedError) Error() string { return "access denied" }

func (AccessDeniedError) Is(target error) bool {
	_, ok := target.(AccessDeniedError)
	if ok {
		return true
	}
	_, ok = target.(*AccessDeniedError)
	return ok
}

// ErrAccessDenied is the sentinel error for ownership mismatches.
var ErrAccessDenied = AccessDeniedError{}

// ConflictError is returned when a write collides with existing state.
type ConflictError struct {
	Resource string
}

func (e ConflictError) Error() string {
	if e.Resource == "" {
		return "conflict"
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e ConflictError) Is(target error) bool {
	_, ok := target.(ConflictError)
	if ok {
		return true
	}
	_, ok = target.(*ConflictError)
	return ok
}

// ErrConflict is the sentinel error for uniqueness violations.
var ErrConflict = ConflictError{}

// AuthDependencyError means the identity service could not be consulted.
// It is distinct from an invalid token.
type AuthDependencyError struct {
	Cause error
}

func (e AuthDependencyError) Error() string {
	if e.Cause == nil {
		return "identity service unavailable"
	}
	return fmt.Sprintf("identity service unavailable: %v", e.Cause)
}

func (e AuthDependencyError) Unwrap() error { return e.Cause }

func (e AuthDependencyError) Is(target error) bool {
	_, ok := target.(AuthDependencyError)
	if ok {
		return true
	}
	_, ok = target.(*AuthDependencyError)
	return ok
}

// ErrAuthDependency is the sentinel error for an unreachable identity service.
var ErrAuthDependency = AuthDependencyError{}

// UnauthenticatedError means the caller presented no valid identity.
type UnauthenticatedError struct {
	Reason string
}

func (e UnauthenticatedError) Error() string {
	if e.Reason == "" {
		return "authentication required"
	}
	return e.Reason
}

func (e UnauthenticatedError) Is(target error) bool {
	_, ok := target.(UnauthenticatedError)
	if ok {
		return true
	}
	_, ok = target.(*UnauthenticatedError)
	return ok
}

// ErrUnauthenticated is the sentinel error for missing or invalid tokens.
var ErrUnauthenticated = UnauthenticatedError{}
