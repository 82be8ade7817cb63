package database

import (
	"testing"

	"github.com/chachabrian/rescuelink-backend/internal/models"
	"github.com/chachabrian/rescuelink-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	db := testutil.OpenDB(t)
	require.NoError(t, RunMigrations(db))
	// Idempotent on an already-migrated schema.
	require.NoError(t, RunMigrations(db))

	m := db.Migrator()
	assert.True(t, m.HasTable(&models.User{}))
	assert.True(t, m.HasTable(&models.OTP{}))
	assert.True(t, m.HasTable(&models.Review{}))
	assert.True(t, m.HasColumn(&models.OTP{}, "used_at"))
	assert.True(t, m.HasIndex(&models.OTP{}, "idx_otps_user_issued"))
}

func TestUserEmailIsStoredNormalized(t *testing.T) {
	db := testutil.OpenDB(t)
	require.NoError(t, RunMigrations(db))

	user := models.User{Name: "Ada", Email: "  Ada@Example.COM "}
	require.NoError(t, db.Create(&user).Error)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, "ada@example.com", stored.Email)
}

func TestMigrationFoldsLegacyEmails(t *testing.T) {
	db := testutil.OpenDB(t)
	require.NoError(t, RunMigrations(db))

	// Raw inserts skip the model hook, as rows written by older builds did.
	insert := `INSERT INTO users (name, email, created_at, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	require.NoError(t, db.Exec(insert, "Solo", " Solo@Example.com").Error)
	require.NoError(t, db.Exec(insert, "First", "dup@example.com").Error)
	require.NoError(t, db.Exec(insert, "Second", "DUP@example.com").Error)

	require.NoError(t, RunMigrations(db))

	var emails []string
	require.NoError(t, db.Model(&models.User{}).Order("id").Pluck("email", &emails).Error)
	assert.Equal(t, []string{"solo@example.com", "dup@example.com", "DUP@example.com"}, emails)
}
