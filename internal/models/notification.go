package models

import "time"

// Notification is a backend-generated message addressed to one recipient.
// Once Read is true the portal never reverts it.
type Notification struct {
	ID        int64     `json:"id" mapstructure:"id"`
	UserID    int64     `json:"userId" mapstructure:"userId"`
	Role      string    `json:"role,omitempty" mapstructure:"role"`
	Title     string    `json:"title" mapstructure:"title"`
	Message   string    `json:"message" mapstructure:"message"`
	Read      bool      `json:"readStatus" mapstructure:"readStatus"`
	CreatedAt time.Time `json:"createdAt" mapstructure:"createdAt"`
}
