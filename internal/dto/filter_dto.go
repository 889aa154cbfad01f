package dto

import "github.com/google/uuid"

type CheckContentRequest struct {
	ChildID     uuid.UUID `json:"child_id"`
	ContentType string    `json:"content_type"`
	Content     string    `json:"content"`
}

type RecordUsageRequest struct {
	UserID       uuid.UUID `json:"user_id"`
	Date         string    `json:"date,omitempty"`
	Minutes      int       `json:"minutes"`
	ActivityType string    `json:"activity_type,omitempty"`
}
