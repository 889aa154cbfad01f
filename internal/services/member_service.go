package services

import (
	"errors"
	"strings"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemberService manages family member enrollment and lifecycle.
// Members are soft-deleted only; every mutation is audit-logged.
type MemberService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewMemberService(db *gorm.DB, audit *AuditService) *MemberService {
	return &MemberService{db: db, audit: audit}
}

// EnrollMemberInput is the enrollment request.
type EnrollMemberInput struct {
	Email       string
	DisplayName string
	Role        string
	SafetyLevel string
}

// EnrollMember creates a family member. A child role always gets the
// child safety level, whatever the caller asked for.
func (s *MemberService) EnrollMember(in EnrollMemberInput, createdBy *uuid.UUID) (*models.FamilyMember, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperr.Validation("email", "email is required")
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return nil, apperr.Validation("display_name", "display name is required")
	}
	if !models.IsValidRole(in.Role) {
		return nil, apperr.Validation("role", "unknown role %q", in.Role)
	}
	level := in.SafetyLevel
	if level == "" {
		level = models.SafetyLevelAdult
	}
	if !models.IsValidSafetyLevel(level) {
		return nil, apperr.Validation("safety_level", "unknown safety level %q", in.SafetyLevel)
	}
	if in.Role == models.RoleChild {
		level = models.SafetyLevelChild
	}

	var existing models.FamilyMember
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("family member with email %s already exists", email)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Storage(err)
	}

	member := models.FamilyMember{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        in.Role,
		SafetyLevel: level,
		IsActive:    true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&member).Error; err != nil {
			return apperr.Storage(err)
		}
		_, err := s.audit.LogEventTx(tx, AuditEvent{
			ActorID:      createdBy,
			Action:       "create_family_member",
			ResourceType: "family_member",
			ResourceID:   member.ID.String(),
			Details:      map[string]any{"role": member.Role, "email": member.Email},
			Success:      true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetMember returns an active member by id.
func (s *MemberService) GetMember(id uuid.UUID) (*models.FamilyMember, error) {
	var member models.FamilyMember
	if err := s.db.Where("id = ? AND is_active = ?", id, true).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("family member %s not found", id)
		}
		return nil, apperr.Storage(err)
	}
	return &member, nil
}

// ListMembers returns members ordered by enrollment time, newest first.
func (s *MemberService) ListMembers(includeInactive bool) ([]models.FamilyMember, error) {
	query := s.db.Model(&models.FamilyMember{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var members []models.FamilyMember
	if err := query.Order("created_at DESC").Find(&members).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return members, nil
}

// UpdateMemberInput patches profile fields; nil means unchanged.
type UpdateMemberInput struct {
	DisplayName *string
	Role        *string
	SafetyLevel *string
}

// UpdateMember patches a member profile, preserving the child
// role/safety-level invariant.
func (s *MemberService) UpdateMember(id uuid.UUID, in UpdateMemberInput, updatedBy *uuid.UUID) (*models.FamilyMember, error) {
	member, err := s.GetMember(id)
	if err != nil {
		return nil, err
	}

	changed := map[string]any{}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, apperr.Validation("display_name", "display name cannot be empty")
		}
		member.DisplayName = name
		changed["display_name"] = name
	}
	if in.Role != nil {
		if !models.IsValidRole(*in.Role) {
			return nil, apperr.Validation("role", "unknown role %q", *in.Role)
		}
		member.Role = *in.Role
		changed["role"] = *in.Role
	}
	if in.SafetyLevel != nil {
		if !models.IsValidSafetyLevel(*in.SafetyLevel) {
			return nil, apperr.Validation("safety_level", "unknown safety level %q", *in.SafetyLevel)
		}
		member.SafetyLevel = *in.SafetyLevel
		changed["safety_level"] = *in.SafetyLevel
	}
	if member.Role == models.RoleChild && member.SafetyLevel != models.SafetyLevelChild {
		member.SafetyLevel = models.SafetyLevelChild
		changed["safety_level"] = models.SafetyLevelChild
	}
	if len(changed) == 0 {
		return member, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(member).Error; err != nil {
			return apperr.Storage(err)
		}
		_, err := s.audit.LogEventTx(tx, AuditEvent{
			ActorID:      updatedBy,
			Action:       "update_family_member",
			ResourceType: "family_member",
			ResourceID:   member.ID.String(),
			Details:      changed,
			Success:      true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// DeactivateMember soft-deletes a member. The row stays for referential
// integrity of the log tables.
func (s *MemberService) DeactivateMember(id uuid.UUID, deactivatedBy *uuid.UUID) error {
	member, err := s.GetMember(id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(member).Update("is_active", false).Error; err != nil {
			return apperr.Storage(err)
		}
		_, err := s.audit.LogEventTx(tx, AuditEvent{
			ActorID:      deactivatedBy,
			Action:       "deactivate_family_member",
			ResourceType: "family_member",
			ResourceID:   member.ID.String(),
			Success:      true,
		})
		return err
	})
}
