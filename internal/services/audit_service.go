package services

import (
	"encoding/json"
	"time"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditService appends to and queries the immutable audit trail. Writes
// never fail silently: a store error is returned to the caller, and
// operations that treat auditing as mandatory run the write inside
// their own transaction via LogEventTx.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditEvent describes one entry. ActorID nil means system-initiated.
type AuditEvent struct {
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	Success      bool
	ErrorMessage string
}

// LogEvent appends an entry using the service's own connection.
func (s *AuditService) LogEvent(ev AuditEvent) (uuid.UUID, error) {
	return s.LogEventTx(s.db, ev)
}

// LogEventTx appends an entry on the given transaction handle so the
// audit write shares the caller's atomicity.
func (s *AuditService) LogEventTx(tx *gorm.DB, ev AuditEvent) (uuid.UUID, error) {
	if ev.Action == "" {
		return uuid.Nil, apperr.Validation("action", "action is required")
	}

	entry := models.AuditLog{
		ActorID:      ev.ActorID,
		Action:       ev.Action,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		Success:      ev.Success,
		ErrorMessage: ev.ErrorMessage,
	}
	if len(ev.Details) > 0 {
		b, err := json.Marshal(ev.Details)
		if err != nil {
			return uuid.Nil, apperr.Validation("details", "details not serializable: %v", err)
		}
		entry.Details = datatypes.JSON(b)
	}

	if err := tx.Create(&entry).Error; err != nil {
		return uuid.Nil, apperr.Storage(err)
	}
	return entry.ID, nil
}

// AuditQuery filters QueryEvents. Zero values mean "any".
type AuditQuery struct {
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	Since        *time.Time
	Until        *time.Time
	Limit        int
}

// QueryEvents returns matching entries ordered by timestamp descending.
func (s *AuditService) QueryEvents(q AuditQuery) ([]models.AuditLog, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	query := s.db.Model(&models.AuditLog{})
	if q.ActorID != nil {
		query = query.Where("actor_id = ?", *q.ActorID)
	}
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}
	if q.ResourceType != "" {
		query = query.Where("resource_type = ?", q.ResourceType)
	}
	if q.Since != nil {
		query = query.Where("created_at >= ?", *q.Since)
	}
	if q.Until != nil {
		query = query.Where("created_at <= ?", *q.Until)
	}

	var events []models.AuditLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return events, nil
}
