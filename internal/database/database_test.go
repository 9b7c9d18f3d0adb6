package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lore.db")

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Ping())
}

func TestMigrateCreatesSchema(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "lore.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))

	for _, table := range []string{"sessions", "messages"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %s must exist", table)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "lore.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	assert.NoError(t, Migrate(db))
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "lore.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(
		"INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, datetime('now'))",
		"no-such-session", "user", "hello",
	)
	assert.Error(t, err, "orphan message insert must violate the foreign key")
}
