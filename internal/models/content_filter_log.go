package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

const (
	FilterActionAllowed = "allowed"
	FilterActionWarned  = "warned"
	FilterActionBlocked = "blocked"
	FilterActionFlagged = "flagged"
)

var severityRank = map[string]int{
	SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4,
}

// SeverityRank returns the ordering rank of a severity, 0 for none.
func SeverityRank(severity string) int { return severityRank[severity] }

// MaxSeverity returns the higher-ranked of two severities.
func MaxSeverity(a, b string) string {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// ContentFilterLog is an append-only record of one filtering decision.
// Rows are never updated or deleted by the application.
type ContentFilterLog struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	ContentType    string       `gorm:"size:50;not null" json:"content_type"`
	ContentSnippet string       `gorm:"size:500" json:"content_snippet"`
	Reason         string       `gorm:"size:500" json:"reason,omitempty"`
	Severity       string       `gorm:"size:10;index" json:"severity,omitempty"`
	ActionTaken    string       `gorm:"size:10;not null;index" json:"action_taken"`
	ParentNotified bool         `gorm:"not null;default:false" json:"parent_notified"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
	User           FamilyMember `gorm:"foreignKey:UserID" json:"-"`
}

func (cfl *ContentFilterLog) BeforeCreate(tx *gorm.DB) error {
	if cfl.ID == uuid.Nil {
		cfl.ID = uuid.New()
	}
	return nil
}
