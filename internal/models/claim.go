package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus is the HR decision state of a claim. Approved and Rejected are terminal.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "Pending"
	ClaimApproved ClaimStatus = "Approved"
	ClaimRejected ClaimStatus = "Rejected"
)

// Terminal reports whether no further transition is defined out of the status.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimApproved || s == ClaimRejected
}

// Claim is an employee's reimbursement request against a policy.
type Claim struct {
	ID           int64           `json:"id" mapstructure:"id"`
	PolicyID     int64           `json:"policyId" mapstructure:"policyId"`
	EmployeeID   int64           `json:"employeeId" mapstructure:"employeeId"`
	Title        string          `json:"title" mapstructure:"title"`
	Type         string          `json:"type" mapstructure:"type"`
	Amount       decimal.Decimal `json:"amount" mapstructure:"amount"`
	Description  string          `json:"description" mapstructure:"description"`
	ClaimDate    time.Time       `json:"claimDate" mapstructure:"claimDate"`
	Status       ClaimStatus     `json:"status" mapstructure:"status"`
	Remarks      string          `json:"remarks,omitempty" mapstructure:"remarks"`
	Documents    []string        `json:"documents,omitempty" mapstructure:"documents"`
	AssignedHRID int64           `json:"assignedHrId" mapstructure:"assignedHrId"`
	UpdatedAt    time.Time       `json:"updatedAt,omitempty" mapstructure:"updatedAt"`
}

// ClaimView is a claim joined with its employee and policy for HR screens.
type ClaimView struct {
	Claim
	EmployeeName string `json:"employeeName,omitempty"`
	PolicyName   string `json:"policyName,omitempty"`
	CanModify    bool   `json:"canModify"`
	Priority     string `json:"priority"`
}
