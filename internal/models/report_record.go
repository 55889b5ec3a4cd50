package models

import "gorm.io/datatypes"

// ReportRecord describes a previously generated export so the owner can see
// their recent report history.
type ReportRecord struct {
	BaseModel

	OwnerRole string         `gorm:"type:varchar(16);not null;index:idx_report_owner" json:"owner_role"`
	OwnerID   int64          `gorm:"not null;index:idx_report_owner" json:"owner_id"`
	Kind      string         `gorm:"type:varchar(32);not null" json:"kind"`
	Format    string         `gorm:"type:varchar(8);not null" json:"format"`
	FileName  string         `gorm:"type:varchar(255)" json:"file_name"`
	RowCount  int            `json:"row_count"`
	Filters   datatypes.JSON `json:"filters,omitempty"`
	Summary   datatypes.JSON `json:"summary,omitempty"`
}
