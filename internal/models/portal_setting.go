package models

import "time"

// PortalSetting persists installation-wide values that must survive restarts,
// such as generated signing secrets.
type PortalSetting struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
