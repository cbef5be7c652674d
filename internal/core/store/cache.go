package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cohortlens/cohortlens/internal/core/cache"
)

// Get returns the stored entry for key, or nil when absent. Expiry is not
// judged here; the cache layer evaluates TTLs at lookup time.
func (s *Store) Get(ctx context.Context, key string) (*cache.Entry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		payload  string
		storedAt int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT payload, stored_at FROM metrics_cache WHERE key = ?
	`, key)
	if err := row.Scan(&payload, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached metrics: %w", err)
	}

	entry := &cache.Entry{StoredAt: time.Unix(storedAt, 0).UTC()}
	if err := json.Unmarshal([]byte(payload), &entry.Value); err != nil {
		return nil, fmt.Errorf("decode cached metrics: %w", err)
	}
	return entry, nil
}

// Set stores the entry under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, entry cache.Entry) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("encode cached metrics: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO metrics_cache (key, payload, stored_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			stored_at = excluded.stored_at
	`, key, string(payload), entry.StoredAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store cached metrics: %w", err)
	}
	return nil
}

// Keys lists every stored cache key.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT key FROM metrics_cache`)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on result rows

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Clear removes every cached entry.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM metrics_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
