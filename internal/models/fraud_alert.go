package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FraudAlertStatus tracks whether HR has resolved a flagged claim.
type FraudAlertStatus string

const (
	FraudPending  FraudAlertStatus = "Pending"
	FraudResolved FraudAlertStatus = "Resolved"
)

// FraudAlert is a backend-derived flag on a claim. The portal only reads it.
type FraudAlert struct {
	ID          int64            `json:"id" mapstructure:"id"`
	ClaimID     int64            `json:"claimId,omitempty" mapstructure:"claimId"`
	EmployeeID  int64            `json:"employeeId" mapstructure:"employeeId"`
	Title       string           `json:"title" mapstructure:"title"`
	Amount      decimal.Decimal  `json:"amount" mapstructure:"amount"`
	PolicyName  string           `json:"policyName" mapstructure:"policyName"`
	ClaimDate   time.Time        `json:"claimDate" mapstructure:"claimDate"`
	Status      FraudAlertStatus `json:"status" mapstructure:"status"`
	FraudFlag   bool             `json:"fraudFlag" mapstructure:"fraudFlag"`
	FraudReason string           `json:"fraudReason" mapstructure:"fraudReason"`
	Documents   []string         `json:"documents,omitempty" mapstructure:"documents"`
}

// Reasons splits the semicolon-delimited fraud reason into trimmed entries.
func (a FraudAlert) Reasons() []string {
	parts := strings.Split(a.FraudReason, ";")
	reasons := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			reasons = append(reasons, part)
		}
	}
	return reasons
}
