package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gatekeeper/internal/entities"
)

// setupTestDB creates a fresh file database in a temp dir
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDatabase_Migrates(t *testing.T) {
	db := setupTestDB(t)

	assert.True(t, db.DB.Migrator().HasTable(&entities.User{}))
	assert.True(t, db.DB.Migrator().HasTable("audit_events"))
}

func TestDatabase_CountUsers(t *testing.T) {
	db := setupTestDB(t)

	count, err := db.CountUsers()
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, db.DB.Create(&entities.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "x",
		Role:         entities.UserRoleViewer,
	}).Error)

	count, err = db.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDatabase_PingAndSQL(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Ping(context.Background()))

	sqlDB, err := db.SQL()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
}

func TestNewDatabase_InMemory(t *testing.T) {
	db, err := NewDatabase(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.DB.Create(&entities.AuditEvent{Action: "login"}).Error)

	var count int64
	require.NoError(t, db.DB.Model(&entities.AuditEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:", dsn(":memory:"))
	assert.Equal(t, "app.db?"+sqlitePragmas, dsn("app.db"))
	assert.Equal(t, "app.db?cache=shared&"+sqlitePragmas, dsn("app.db?cache=shared"))
}
