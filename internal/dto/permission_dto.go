package dto

import (
	"time"

	"github.com/google/uuid"
)

type GrantPermissionRequest struct {
	UserID     uuid.UUID  `json:"user_id"`
	Permission string     `json:"permission"`
	Reason     string     `json:"reason,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type RevokePermissionRequest struct {
	UserID     uuid.UUID `json:"user_id"`
	Permission string    `json:"permission"`
	Reason     string    `json:"reason,omitempty"`
}

type PermissionCheckResponse struct {
	UserID     uuid.UUID `json:"user_id"`
	Permission string    `json:"permission"`
	Allowed    bool      `json:"allowed"`
}
