// Package roster loads the cohort input: the ordered list of entities to
// be measured. An unreadable or malformed roster is fatal to the run;
// missing per-platform handles are not, and are resolved to zero metrics
// downstream.
package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cohortlens/cohortlens/internal/core"
)

// Load reads entities from a JSON or YAML file, keyed by extension.
// Input order is preserved; it is the order results are emitted in.
func Load(path string) ([]core.Entity, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator input
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var entities []core.Entity
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entities); err != nil {
			return nil, fmt.Errorf("parse roster %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &entities); err != nil {
			return nil, fmt.Errorf("parse roster %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster format %q", filepath.Ext(path))
	}

	if err := validate(entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func validate(entities []core.Entity) error {
	if len(entities) == 0 {
		return fmt.Errorf("roster is empty")
	}

	seen := make(map[string]struct{}, len(entities))
	for i, entity := range entities {
		id := strings.TrimSpace(entity.ID)
		if id == "" {
			return fmt.Errorf("roster entry %d has no id", i+1)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("roster entry %d duplicates id %q", i+1, id)
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(entity.Name) == "" {
			return fmt.Errorf("roster entry %q has no name", id)
		}
	}
	return nil
}
