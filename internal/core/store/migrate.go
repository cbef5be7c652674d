package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS metrics_cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		stored_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_cache_stored ON metrics_cache(stored_at);`,
}

// Migrate applies the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
