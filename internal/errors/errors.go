package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error categories for the blog server. Every error returned across a
// package boundary wraps exactly one of these sentinels so the transport
// can map it to a status code without inspecting message text.
var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication indicates a missing, invalid, or expired credential.
	ErrAuthentication = errors.New("authentication required")

	// ErrAuthorization indicates a valid identity with an insufficient role.
	ErrAuthorization = errors.New("forbidden")

	// ErrConflict indicates a uniqueness conflict (e.g. duplicate username).
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a missing resource.
	ErrNotFound = errors.New("not found")

	// ErrUpstream indicates a failure of a downstream collaborator.
	ErrUpstream = errors.New("upstream failure")

	// ErrInternal indicates an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// HTTPStatus maps an error to the HTTP status code of its category.
// Unrecognised errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CategoryMessage returns the default user-facing message for an error's
// category. Used when a handler has no more specific message to surface.
func CategoryMessage(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "Invalid request"
	case errors.Is(err, ErrAuthentication):
		return "Authentication required"
	case errors.Is(err, ErrAuthorization):
		return "Forbidden"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrUpstream):
		return "Upstream service failed"
	default:
		return "Internal server error"
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
