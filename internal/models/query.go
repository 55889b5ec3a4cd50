package models

import (
	"strings"
	"time"
)

// Query is an employee support ticket routed to an agent.
type Query struct {
	ID         int64     `json:"id" mapstructure:"id"`
	EmployeeID int64     `json:"employeeId" mapstructure:"employeeId"`
	QueryText  string    `json:"queryText" mapstructure:"queryText"`
	ClaimType  string    `json:"claimType" mapstructure:"claimType"`
	PolicyID   int64     `json:"policyId" mapstructure:"policyId"`
	Response   string    `json:"response" mapstructure:"response"`
	AgentID    int64     `json:"agentId" mapstructure:"agentId"`
	CreatedAt  time.Time `json:"createdAt" mapstructure:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" mapstructure:"updatedAt"`
}

// Answered reports whether an agent has responded.
func (q Query) Answered() bool {
	return strings.TrimSpace(q.Response) != ""
}
