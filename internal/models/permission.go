package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission is a catalog entry (reference data, seeded at startup).
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Resource    string    `gorm:"size:50;not null" json:"resource"`
	Action      string    `gorm:"size:50;not null" json:"action"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RolePermission is the default grant for a role, seeded from the
// versioned role matrix.
type RolePermission struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Role         string     `gorm:"size:20;not null;uniqueIndex:idx_role_permissions_role_perm" json:"role"`
	PermissionID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_role_permissions_role_perm" json:"permission_id"`
	Granted      bool       `gorm:"not null;default:true" json:"granted"`
	CreatedAt    time.Time  `json:"created_at"`
	Permission   Permission `gorm:"foreignKey:PermissionID" json:"-"`
}

func (rp *RolePermission) BeforeCreate(tx *gorm.DB) error {
	if rp.ID == uuid.Nil {
		rp.ID = uuid.New()
	}
	return nil
}

// UserPermission is a per-user override. While not expired it beats the
// role default in either direction; an expired row behaves as absent.
type UserPermission struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_permissions_user_perm" json:"user_id"`
	PermissionID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_permissions_user_perm" json:"permission_id"`
	Granted      bool         `gorm:"not null" json:"granted"`
	GrantedBy    *uuid.UUID   `gorm:"type:uuid" json:"granted_by,omitempty"`
	Reason       string       `gorm:"size:500" json:"reason,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	User         FamilyMember `gorm:"foreignKey:UserID" json:"-"`
	Permission   Permission   `gorm:"foreignKey:PermissionID" json:"-"`
}

func (up *UserPermission) BeforeCreate(tx *gorm.DB) error {
	if up.ID == uuid.Nil {
		up.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the override has lapsed as of now.
func (up *UserPermission) Expired(now time.Time) bool {
	return up.ExpiresAt != nil && !up.ExpiresAt.After(now)
}
