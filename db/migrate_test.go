package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/scribe/errors"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openMemory(t)

	require.NoError(t, Migrate(db, nil))
	require.NoError(t, Migrate(db, nil), "second run should skip applied migrations")

	var versions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 3, versions)
}

func TestIsDatabaseClosed(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, db.Close())

	_, err := db.Exec("SELECT 1")
	require.Error(t, err)
	assert.True(t, IsDatabaseClosed(err))

	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "save")))
	assert.True(t, IsDatabaseClosed(errors.Wrap(sql.ErrConnDone, "lookup")))
	assert.False(t, IsDatabaseClosed(errors.New("constraint failed")))
	assert.False(t, IsDatabaseClosed(nil))
}
