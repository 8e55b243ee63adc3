package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenMemory()
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"tasks",
		"task_requests",
		"habits",
		"habit_completions",
		"activity_log",
		"api_keys",
		"schema_migrations",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

func TestMigrations_Rerun(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	require.Equal(t, 1, applied)
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")

	_, err = db.ExecContext(context.Background(),
		`INSERT INTO habit_completions (habit_id, user_id, day) VALUES (?, ?, ?)`,
		"missing", 1, "2024-03-01")
	require.Error(t, err)
}

func TestTasksTable_Constraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, recurrence_type, recurrence_interval) VALUES (?, ?, ?, ?, ?)`,
		"t1", 1, "Bad", "hourly", 1)
	require.Error(t, err, "should fail with invalid recurrence type")

	_, err = db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, recurrence_type, recurrence_interval) VALUES (?, ?, ?, ?, ?)`,
		"t2", 1, "Bad", "daily", 0)
	require.Error(t, err, "should fail with interval below 1")
}
