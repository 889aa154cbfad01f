package services

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/familyassistant/safety-engine/internal/database"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/familyassistant/safety-engine/internal/seed"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a temp sqlite database with the full schema and seed
// data. A single connection keeps sqlite happy under the concurrency
// tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "safety_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, seed.Apply(db))
	return db
}

func seedMember(t *testing.T, db *gorm.DB, role string) *models.FamilyMember {
	t.Helper()

	level := models.SafetyLevelAdult
	switch role {
	case models.RoleChild:
		level = models.SafetyLevelChild
	case models.RoleTeenager:
		level = models.SafetyLevelTeen
	}

	m := &models.FamilyMember{
		Email:       fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		DisplayName: "Test " + role,
		Role:        role,
		SafetyLevel: level,
		IsActive:    true,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }
