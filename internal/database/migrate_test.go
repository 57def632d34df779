package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreGooseAnnotated(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		body, readErr := fs.ReadFile(migrations, "migrations/"+entry.Name())
		require.NoError(t, readErr)
		require.Contains(t, string(body), "-- +goose Up", entry.Name())
		require.Contains(t, string(body), "-- +goose Down", entry.Name())
	}
}

func TestUsersMigrationKeepsRefreshTokenNullable(t *testing.T) {
	t.Parallel()

	body, err := fs.ReadFile(migrations, "migrations/00001_users.sql")
	require.NoError(t, err)

	for _, line := range strings.Split(string(body), "\n") {
		if strings.Contains(line, "refresh_token") {
			require.NotContains(t, line, "NOT NULL")
		}
	}
}

func TestMigrateRequiresPool(t *testing.T) {
	t.Parallel()

	var db *DB
	require.Error(t, db.Migrate(t.Context()))
}
