package seed

import (
	"path/filepath"
	"testing"

	"github.com/familyassistant/safety-engine/internal/database"
	"github.com/familyassistant/safety-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "seed_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestApplyInstallsCatalogAndMatrix(t *testing.T) {
	db := newSeedDB(t)
	require.NoError(t, Apply(db))

	var permCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permCount).Error)
	assert.EqualValues(t, len(Catalog), permCount)

	expectedGrants := 0
	for _, grants := range roleMatrix {
		expectedGrants += len(grants)
	}
	var grantCount int64
	require.NoError(t, db.Model(&models.RolePermission{}).Count(&grantCount).Error)
	assert.EqualValues(t, expectedGrants, grantCount)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := newSeedDB(t)
	require.NoError(t, Apply(db))
	require.NoError(t, Apply(db))

	expectedGrants := 0
	for _, grants := range roleMatrix {
		expectedGrants += len(grants)
	}

	var permCount, grantCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permCount).Error)
	require.NoError(t, db.Model(&models.RolePermission{}).Count(&grantCount).Error)
	assert.EqualValues(t, len(Catalog), permCount)
	assert.EqualValues(t, expectedGrants, grantCount)

	var dupes int64
	require.NoError(t, db.Raw(`
		SELECT COUNT(*) FROM (
			SELECT role, permission_id, COUNT(*) AS c
			FROM role_permissions
			GROUP BY role, permission_id
			HAVING c > 1
		)`).Scan(&dupes).Error)
	assert.Zero(t, dupes)
}

func TestMatrixReferencesOnlyCatalogPermissions(t *testing.T) {
	known := map[string]bool{}
	for _, def := range Catalog {
		known[def.Name] = true
	}
	for role, grants := range roleMatrix {
		for _, name := range grants {
			assert.True(t, known[name], "role %s references unknown permission %s", role, name)
		}
	}
}
