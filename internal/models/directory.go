package models

// Employee is a directory entry for an insured employee.
type Employee struct {
	ID           int64  `json:"id" mapstructure:"id"`
	EmployeeCode string `json:"employeeId" mapstructure:"employeeId"`
	Name         string `json:"name" mapstructure:"name"`
	Email        string `json:"email" mapstructure:"email"`
	Department   string `json:"department,omitempty" mapstructure:"department"`
}

// HRUser is a directory entry for an HR reviewer.
type HRUser struct {
	ID    int64  `json:"id" mapstructure:"id"`
	Name  string `json:"name" mapstructure:"name"`
	Email string `json:"email" mapstructure:"email"`
}

// AgentAvailability reports whether a support agent can take new queries.
type AgentAvailability struct {
	AgentID   int64  `json:"agentId" mapstructure:"agentId"`
	AgentName string `json:"agentName" mapstructure:"agentName"`
	Available bool   `json:"available" mapstructure:"available"`
}
