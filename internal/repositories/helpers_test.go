package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"dm-service/internal/db"
	"dm-service/internal/models"
)

var baseTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Connect("sqlite", filepath.Join(t.TempDir(), "dm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func seedUser(t *testing.T, repo *UserRepo, id, email, name string) {
	t.Helper()
	user := models.User{ID: id, DisplayName: name, LastSeenAt: baseTime}
	if email != "" {
		user.Email = &email
	}
	require.NoError(t, repo.UpsertUser(context.Background(), user))
}
