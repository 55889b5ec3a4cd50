package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/insurai/portal/pkg/errors"
)

// NetworkError reports a failed request or a non-2xx response.
type NetworkError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Endpoint, e.Err)
	case e.Message != "":
		return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.StatusCode)
	}
}

func (e *NetworkError) Unwrap() error {
	return apperrors.ErrNetwork
}

func (e *NetworkError) AppError() *apperrors.AppError {
	message := apperrors.ErrNetwork.Message
	if e.Message != "" {
		message = e.Message
	}
	return apperrors.New(apperrors.ErrNetwork.Code, message, apperrors.ErrNetwork.StatusCode).WithInternal(e.Err)
}

// NotFoundError reports a 404 from the backend, for example an unknown login email.
type NotFoundError struct {
	Endpoint string
	Message  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("backend %s: not found", e.Endpoint)
}

func (e *NotFoundError) Unwrap() error {
	return apperrors.ErrNotFound
}

func (e *NotFoundError) AppError() *apperrors.AppError {
	if e.Message == "" {
		return apperrors.ErrNotFound
	}
	return apperrors.New(apperrors.ErrNotFound.Code, e.Message, apperrors.ErrNotFound.StatusCode)
}

// UnauthorizedError reports a rejected or expired bearer token. The portal
// answers it by ending the session so the user logs in again.
type UnauthorizedError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.StatusCode)
}

func (e *UnauthorizedError) Unwrap() error {
	return apperrors.ErrUnauthorized
}

func (e *UnauthorizedError) AppError() *apperrors.AppError {
	if e.Message == "" {
		return apperrors.ErrUnauthorized
	}
	return apperrors.New(apperrors.ErrUnauthorized.Code, e.Message, apperrors.ErrUnauthorized.StatusCode)
}

func statusError(endpoint string, status int, body []byte) error {
	message := errorMessage(body)
	switch status {
	case http.StatusNotFound:
		return &NotFoundError{Endpoint: endpoint, Message: message}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &UnauthorizedError{Endpoint: endpoint, StatusCode: status, Message: message}
	default:
		return &NetworkError{Endpoint: endpoint, StatusCode: status, Message: message}
	}
}

// textMessage returns a plain-text body, the message field of a JSON object,
// or the value of a JSON string.
func textMessage(body []byte) string {
	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		return text
	}
	if message := errorMessage(body); message != "" {
		return message
	}
	return strings.TrimSpace(string(body))
}

// errorMessage extracts a human readable message from an error body.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if text, ok := payload[key].(string); ok && text != "" {
				return text
			}
		}
		return ""
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}
