package store

import (
	"testing"

	"github.com/jmoiron/sqlx"
)

// NewTestDB creates a migrated in-memory database for tests. Never point
// tests at a file-based database.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := Migrate(db.DB); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return &DB{DB: db, path: ":memory:"}
}
