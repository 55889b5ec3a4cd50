package models

import (
	"fmt"
	"strings"
)

// Role identifies which dashboard tree a principal may enter.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
	RoleAgent    Role = "agent"
)

// Roles lists every portal role in display order.
var Roles = []Role{RoleEmployee, RoleHR, RoleAdmin, RoleAgent}

// ParseRole resolves a role name case-insensitively.
func ParseRole(value string) (Role, error) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	for _, role := range Roles {
		if role == normalized {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", value)
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// Principal is the authenticated identity attached to a portal session.
type Principal struct {
	SessionID    string `json:"session_id"`
	Role         Role   `json:"role"`
	UserID       int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	EmployeeCode string `json:"employee_id,omitempty"`
}
