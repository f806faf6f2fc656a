package backendclient

import (
	"net/http"

	"github.com/hockeyunion/membership/internal/core/domain"
)

// APIError is a non-2xx answer from the backend. Its message is the backend's
// own wording; Unwrap exposes the matching domain sentinel.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.kind }

func newAPIError(status int, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{Status: status, Message: message, kind: classify(status, message)}
}

func classify(status int, message string) error {
	switch status {
	case http.StatusUnauthorized:
		if message == domain.ErrInvalidCredentials.Error() {
			return domain.ErrInvalidCredentials
		}
		return domain.ErrSessionNotFound
	case http.StatusConflict:
		if message == domain.ErrUserExists.Error() {
			return domain.ErrUserExists
		}
		return domain.ErrProfileExists
	case http.StatusNotFound:
		return domain.ErrProfileNotFound
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		switch message {
		case domain.ErrInvalidRole.Error():
			return domain.ErrInvalidRole
		case domain.ErrRoleRequired.Error():
			return domain.ErrRoleRequired
		}
		return domain.ErrInvalidInput
	}
	return nil
}
