package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"
)

// schemaVersion is bumped whenever either schema file changes shape.
const schemaVersion = 1

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// Migrate applies the embedded schema for the open dialect. Every statement
// is idempotent, so running it against an up-to-date database is a no-op.
func (db *DB) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if db.Dialect == SQLite {
		schema = sqliteSchema
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = $1`, schemaVersion,
	).Scan(&n); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if n > 0 {
		return nil
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`,
		schemaVersion, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// SchemaVersion returns the highest applied schema version, or 0.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&v)
	return v, err
}
