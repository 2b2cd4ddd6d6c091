package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite state database for testing
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS chat_state (
		subject TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create chat_state table: %v", err)
	}

	return db
}

// InsertState inserts a raw state record for a subject
func InsertState(t *testing.T, db *sql.DB, subject, state string) {
	t.Helper()
	insertSQL := "INSERT INTO chat_state (subject, state, updated_at) VALUES (?, ?, 0)"
	if _, err := db.Exec(insertSQL, subject, state); err != nil {
		t.Fatalf("Failed to insert state: %v", err)
	}
}
