package internal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const createStateTableSQL = `
CREATE TABLE IF NOT EXISTS chat_state (
	subject TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// OpenDatabase opens (or creates) the SQLite state database
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(createStateTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chat_state table: %w", err)
	}

	return db, nil
}
