package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PortalSession is the server-side replacement for the browser's stored token,
// role and identity ids. The backend bearer token is sealed before persisting.
type PortalSession struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	Role         string     `gorm:"type:varchar(16);not null;index" json:"role"`
	UserID       int64      `gorm:"index" json:"user_id"`
	DisplayName  string     `gorm:"type:varchar(255)" json:"name"`
	Email        string     `gorm:"type:varchar(255)" json:"email"`
	EmployeeCode string     `gorm:"type:varchar(64)" json:"employee_id"`
	SealedToken  string     `gorm:"type:text;not null" json:"-"`
	IPAddress    string     `json:"ip_address"`
	UserAgent    string     `json:"user_agent"`
	ExpiresAt    time.Time  `gorm:"index" json:"expires_at"`
	LastUsedAt   time.Time  `json:"last_used_at"`
	CreatedAt    time.Time  `json:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at"`
}

func (s *PortalSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Principal returns the identity carried by the session.
func (s *PortalSession) Principal() Principal {
	return Principal{
		SessionID:    s.ID,
		Role:         Role(s.Role),
		UserID:       s.UserID,
		Name:         s.DisplayName,
		Email:        s.Email,
		EmployeeCode: s.EmployeeCode,
	}
}
