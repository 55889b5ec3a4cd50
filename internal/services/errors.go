package services

import (
	"errors"
	"strings"

	apperrors "github.com/insurai/portal/pkg/errors"
)

// requiredField builds the validation error returned for blank inputs.
func requiredField(field string) error {
	return apperrors.NewValidation(field + " is required").WithDetails(map[string]any{"field": field})
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return requiredField(field)
	}
	return nil
}

// isSessionExpired reports whether the backend rejected the bearer token, in
// which case the caller's portal session has to end.
func isSessionExpired(err error) bool {
	return errors.Is(err, apperrors.ErrUnauthorized)
}
