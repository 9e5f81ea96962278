package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure classes for backend calls. Callers match with errors.Is.
var (
	// ErrAuthRequired means the session is missing or expired. The user
	// must re-authenticate; the call is never retried automatically.
	ErrAuthRequired = errors.New("authentication required")

	// ErrPermissionDenied means the account lacks the role for the call
	// (e.g. not the assigned driver). Terminal for the action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means the requested entity does not exist. Rendered as
	// an empty state, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the backend rejected the request payload.
	ErrValidation = errors.New("validation failed")

	// ErrTransient covers connectivity failures and 5xx responses. Safe
	// to retry, but only on explicit user action: side-effecting calls
	// must not race duplicate submissions.
	ErrTransient = errors.New("transient backend error")
)

// IsTransient reports whether err is worth a manual retry.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

func classifyStatus(status int, detail string) error {
	if detail == "" {
		detail = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", detail, ErrAuthRequired)
	case status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", detail, ErrPermissionDenied)
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", detail, ErrNotFound)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%s: %w", detail, ErrValidation)
	case status >= 500:
		return fmt.Errorf("%s (status %d): %w", detail, status, ErrTransient)
	default:
		return fmt.Errorf("unexpected status %d: %s", status, detail)
	}
}
