package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Memory is an in-process backend with optional JSON snapshot persistence.
// The snapshot is written in full at controlled checkpoints, not on every
// Set.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Get returns the entry for key, or nil when absent.
func (m *Memory) Get(ctx context.Context, key string) (*Entry, error) {
	if m == nil {
		return nil, errors.New("memory backend is not initialized")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Set stores the entry under key, replacing any previous value.
func (m *Memory) Set(ctx context.Context, key string, entry Entry) error {
	if m == nil {
		return errors.New("memory backend is not initialized")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil {
		m.entries = make(map[string]Entry)
	}
	m.entries[key] = entry
	return nil
}

// Keys lists every stored key.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	if m == nil {
		return nil, errors.New("memory backend is not initialized")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear removes every entry.
func (m *Memory) Clear(ctx context.Context) error {
	if m == nil {
		return errors.New("memory backend is not initialized")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]Entry)
	return nil
}

// LoadSnapshot builds a memory backend from a snapshot file. A missing or
// corrupt file yields an empty backend rather than an error; a stale cache
// is never worth failing a run over.
func LoadSnapshot(path string) *Memory {
	m := NewMemory()

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return m
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return m
	}
	if entries != nil {
		m.entries = entries
	}
	return m
}

// WriteSnapshot persists every entry to path, replacing the previous
// snapshot atomically via a temp file and rename.
func (m *Memory) WriteSnapshot(path string) error {
	if m == nil {
		return errors.New("memory backend is not initialized")
	}

	m.mu.RLock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode cache snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace cache snapshot: %w", err)
	}
	return nil
}
