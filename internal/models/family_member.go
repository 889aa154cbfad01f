package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Family roles. Parents (and grandparents, for controls) hold guardian
// authority; children and teenagers are monitored accounts.
const (
	RoleParent      = "parent"
	RoleTeenager    = "teenager"
	RoleChild       = "child"
	RoleGrandparent = "grandparent"
	RoleMember      = "member"
)

const (
	SafetyLevelChild = "child"
	SafetyLevelTeen  = "teen"
	SafetyLevelAdult = "adult"
)

var validRoles = map[string]bool{
	RoleParent: true, RoleTeenager: true, RoleChild: true,
	RoleGrandparent: true, RoleMember: true,
}

var validSafetyLevels = map[string]bool{
	SafetyLevelChild: true, SafetyLevelTeen: true, SafetyLevelAdult: true,
}

func IsValidRole(role string) bool { return validRoles[role] }

func IsValidSafetyLevel(level string) bool { return validSafetyLevels[level] }

// IsGuardianRole reports whether the role may create parental controls.
func IsGuardianRole(role string) bool {
	return role == RoleParent || role == RoleGrandparent
}

// FamilyMember is a member of the family unit. Members are never hard
// deleted; deactivation flips IsActive off.
type FamilyMember struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	DisplayName string    `gorm:"size:255;not null" json:"display_name"`
	Role        string    `gorm:"size:20;not null;default:'member';index" json:"role"`
	SafetyLevel string    `gorm:"size:10;not null;default:'adult'" json:"safety_level"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m *FamilyMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
