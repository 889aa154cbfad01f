package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is the immutable trail of security-relevant actions. ActorID
// is nil for system-initiated events. The application only appends and
// reads; retention is an external concern.
type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID      *uuid.UUID     `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	Action       string         `gorm:"size:100;not null;index" json:"action"`
	ResourceType string         `gorm:"size:50;index" json:"resource_type,omitempty"`
	ResourceID   string         `gorm:"size:255" json:"resource_id,omitempty"`
	Details      datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"details"`
	// No DB default: GORM would omit Success=false on insert and the
	// column default would record the failure as a success.
	Success      bool           `gorm:"not null" json:"success"`
	ErrorMessage string         `gorm:"size:1000" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (al *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if al.ID == uuid.Nil {
		al.ID = uuid.New()
	}
	return nil
}
