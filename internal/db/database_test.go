package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/office_requests/internal/models"
)

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	db, err := Open(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestOpen_SQLiteMigrates(t *testing.T) {
	t.Parallel()

	db, err := Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.User{Username: "alice", PasswordHash: "x", Role: models.RoleEmployee}).Error)
	err = db.Create(&models.User{Username: "alice", PasswordHash: "y", Role: models.RoleEmployee}).Error
	assert.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDialector_SelectsDriver(t *testing.T) {
	t.Parallel()

	_, isSQLite := dialector("sqlite://office.db")
	assert.True(t, isSQLite)

	_, isSQLite = dialector("postgres://u:p@localhost:5432/office?sslmode=disable")
	assert.False(t, isSQLite)
}
