package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PolicyStatus is the lifecycle state of an insurance policy.
type PolicyStatus string

const (
	PolicyActive  PolicyStatus = "Active"
	PolicyExpired PolicyStatus = "Expired"
	PolicyDraft   PolicyStatus = "Draft"
)

// Policy is an insurance coverage contract. CoverageAmount is the ceiling that
// approved claims under the policy may not exceed.
type Policy struct {
	ID             int64           `json:"id" mapstructure:"id"`
	Name           string          `json:"name" mapstructure:"name"`
	Provider       string          `json:"provider" mapstructure:"provider"`
	CoverageAmount decimal.Decimal `json:"coverageAmount" mapstructure:"coverageAmount"`
	MonthlyPremium decimal.Decimal `json:"monthlyPremium" mapstructure:"monthlyPremium"`
	RenewalDate    time.Time       `json:"renewalDate" mapstructure:"renewalDate"`
	Status         PolicyStatus    `json:"status" mapstructure:"status"`
	PolicyType     string          `json:"policyType" mapstructure:"policyType"`
	Benefits       []string        `json:"benefits" mapstructure:"benefits"`
	ContractURL    string          `json:"contractUrl,omitempty" mapstructure:"contractUrl"`
	TermsURL       string          `json:"termsUrl,omitempty" mapstructure:"termsUrl"`
	ClaimFormURL   string          `json:"claimFormUrl,omitempty" mapstructure:"claimFormUrl"`
	AnnexureURL    string          `json:"annexureUrl,omitempty" mapstructure:"annexureUrl"`
}

// FindPolicy returns the policy with the given id.
func FindPolicy(policies []Policy, id int64) (Policy, bool) {
	for _, p := range policies {
		if p.ID == id {
			return p, true
		}
	}
	return Policy{}, false
}
