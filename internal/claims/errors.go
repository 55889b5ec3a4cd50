package claims

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "github.com/insurai/portal/pkg/errors"
)

// ValidationError reports a rejected submission or transition. When the
// failure is a coverage overrun RemainingCoverage carries the value to display.
type ValidationError struct {
	Field             string
	Reason            string
	RemainingCoverage *decimal.Decimal
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("claims: %s: %s", e.Field, e.Reason)
	}
	return "claims: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrValidation
}

// AppError renders the failure for API consumers.
func (e *ValidationError) AppError() *apperrors.AppError {
	details := map[string]any{}
	if e.Field != "" {
		details["field"] = e.Field
	}
	if e.RemainingCoverage != nil {
		details["remaining_coverage"] = e.RemainingCoverage.StringFixed(2)
	}
	return apperrors.NewValidation(e.Reason).WithDetails(details)
}

// AuthorizationError reports a caller acting on a claim assigned to someone else.
type AuthorizationError struct {
	ClaimID  int64
	CallerID int64
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("claims: user %d is not assigned to claim %d", e.CallerID, e.ClaimID)
}

func (e *AuthorizationError) Unwrap() error {
	return apperrors.ErrAuthorization
}

func (e *AuthorizationError) AppError() *apperrors.AppError {
	return apperrors.NewAuthorization("not assigned to this claim").WithDetails(map[string]any{
		"claim_id": e.ClaimID,
	})
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: field + " is required"}
}
