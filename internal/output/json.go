package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cohortlens/cohortlens/internal/core"
)

// FormatResultsJSON renders results as indented JSON.
func FormatResultsJSON(results []core.AggregateResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	return string(data), nil
}

// WriteSnapshot persists the full result sequence to path, replacing the
// previous snapshot atomically so a crash mid-write cannot corrupt it.
func WriteSnapshot(path string, results []core.AggregateResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a previously persisted result sequence.
func ReadSnapshot(path string) ([]core.AggregateResult, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator input
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var results []core.AggregateResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return results, nil
}
