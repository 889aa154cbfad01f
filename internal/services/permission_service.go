package services

import (
	"errors"
	"time"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PermissionService resolves whether a family member may perform an
// action. Resolution precedence, first match wins:
//
//  1. non-expired per-user override
//  2. role default
//  3. deny
//
// Overrides are bidirectional: a granted=false override beats a role
// grant. Grant and revoke write their audit entry in the same
// transaction as the override row; if the audit write fails the whole
// operation fails.
type PermissionService struct {
	db    *gorm.DB
	audit *AuditService
	cache *permissionCache
}

func NewPermissionService(db *gorm.DB, audit *AuditService, cacheTTL time.Duration) *PermissionService {
	return &PermissionService{
		db:    db,
		audit: audit,
		cache: newPermissionCache(cacheTTL),
	}
}

// HasPermission reports whether the user may perform the named
// permission. Unknown permission names and unknown users are errors,
// distinct from a false result.
func (s *PermissionService) HasPermission(userID uuid.UUID, permissionName string) (bool, error) {
	if granted, ok := s.cache.get(userID, permissionName); ok {
		return granted, nil
	}

	perm, err := s.permissionByName(permissionName)
	if err != nil {
		return false, err
	}

	var member models.FamilyMember
	if err := s.db.First(&member, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperr.NotFound("family member %s not found", userID)
		}
		return false, apperr.Storage(err)
	}

	granted, err := s.resolve(member, perm)
	if err != nil {
		return false, err
	}
	s.cache.set(userID, permissionName, granted)
	return granted, nil
}

func (s *PermissionService) resolve(member models.FamilyMember, perm models.Permission) (bool, error) {
	var override models.UserPermission
	err := s.db.Where("user_id = ? AND permission_id = ?", member.ID, perm.ID).First(&override).Error
	switch {
	case err == nil:
		if !override.Expired(time.Now()) {
			return override.Granted, nil
		}
		// expired override behaves as absent
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, apperr.Storage(err)
	}

	var roleDefault models.RolePermission
	err = s.db.Where("role = ? AND permission_id = ?", member.Role, perm.ID).First(&roleDefault).Error
	switch {
	case err == nil:
		return roleDefault.Granted, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, apperr.Storage(err)
	}
}

// GrantPermission upserts a granted=true override. Re-granting the same
// permission refreshes granted_by, reason and expires_at rather than
// erroring. Only guardians may grant; a forbidden attempt is itself
// audit-logged as a failed action.
func (s *PermissionService) GrantPermission(userID uuid.UUID, permissionName string, grantedBy uuid.UUID, reason string, expiresAt *time.Time) (*models.UserPermission, error) {
	return s.writeOverride(userID, permissionName, grantedBy, reason, expiresAt, true)
}

// RevokePermission upserts a granted=false override: a real denial that
// beats the role default until removed or expired.
func (s *PermissionService) RevokePermission(userID uuid.UUID, permissionName string, revokedBy uuid.UUID, reason string) (*models.UserPermission, error) {
	if reason == "" {
		reason = "permission revoked"
	}
	return s.writeOverride(userID, permissionName, revokedBy, reason, nil, false)
}

func (s *PermissionService) writeOverride(userID uuid.UUID, permissionName string, actorID uuid.UUID, reason string, expiresAt *time.Time, granted bool) (*models.UserPermission, error) {
	action := "grant_permission"
	if !granted {
		action = "revoke_permission"
	}

	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return nil, apperr.Validation("expires_at", "expiry must be in the future")
	}

	perm, err := s.permissionByName(permissionName)
	if err != nil {
		return nil, err
	}

	var actor models.FamilyMember
	if err := s.db.First(&actor, "id = ?", actorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("granting member %s not found", actorID)
		}
		return nil, apperr.Storage(err)
	}
	if actor.Role != models.RoleParent {
		if _, auditErr := s.audit.LogEvent(AuditEvent{
			ActorID:      &actorID,
			Action:       action,
			ResourceType: "user_permission",
			ResourceID:   permissionName,
			Details:      map[string]any{"user_id": userID.String()},
			Success:      false,
			ErrorMessage: "actor lacks guardian authority",
		}); auditErr != nil {
			return nil, auditErr
		}
		return nil, apperr.Forbidden("only a parent may %s", action)
	}

	var target models.FamilyMember
	if err := s.db.First(&target, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("family member %s not found", userID)
		}
		return nil, apperr.Storage(err)
	}

	override := models.UserPermission{
		ID:           uuid.New(),
		UserID:       userID,
		PermissionID: perm.ID,
		Granted:      granted,
		GrantedBy:    &actorID,
		Reason:       reason,
		ExpiresAt:    expiresAt,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"granted", "granted_by", "reason", "expires_at", "updated_at"}),
		}).Create(&override).Error; err != nil {
			return apperr.Storage(err)
		}
		_, err := s.audit.LogEventTx(tx, AuditEvent{
			ActorID:      &actorID,
			Action:       action,
			ResourceType: "user_permission",
			ResourceID:   permissionName,
			Details: map[string]any{
				"user_id": userID.String(),
				"granted": granted,
				"reason":  reason,
			},
			Success: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidateUser(userID)

	// re-read so the caller sees the surviving row on idempotent re-grant
	var saved models.UserPermission
	if err := s.db.Where("user_id = ? AND permission_id = ?", userID, perm.ID).First(&saved).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return &saved, nil
}

// ListUserPermissions returns the user's non-expired overrides, newest
// first.
func (s *PermissionService) ListUserPermissions(userID uuid.UUID) ([]models.UserPermission, error) {
	var overrides []models.UserPermission
	err := s.db.
		Where("user_id = ?", userID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at DESC").
		Find(&overrides).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return overrides, nil
}

func (s *PermissionService) permissionByName(name string) (models.Permission, error) {
	var perm models.Permission
	if err := s.db.Where("name = ?", name).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return perm, apperr.NotFound("permission %q not in catalog", name)
		}
		return perm, apperr.Storage(err)
	}
	return perm, nil
}
