// Package dbtest opens throwaway migrated databases for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/georgemunganga/materialive/internal/config"
	"github.com/georgemunganga/materialive/internal/database"
)

// Open returns a migrated SQLite database in a per-test temp directory.
// It is closed automatically when the test finishes.
func Open(t testing.TB) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite3", DSN: path})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
