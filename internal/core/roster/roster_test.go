package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cohortlens/cohortlens/internal/core"
)

func writeRoster(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONRoster(t *testing.T) {
	path := writeRoster(t, "roster.json", `[
		{
			"id": "s001",
			"name": "Ada Lovelace",
			"handles": {
				"leetcode": {"handle": "ada"},
				"codeforces": {"handle": "ada", "user_id": 42, "api_key": "key"},
				"github": {"handle": "ada-dev"}
			}
		},
		{"id": "s002", "name": "Grace Hopper"}
	]`)

	entities, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	require.Equal(t, "s001", entities[0].ID)

	cf, ok := entities[0].Identity(core.PlatformCodeforces)
	require.True(t, ok)
	require.Equal(t, 42, cf.UserID)
	require.Equal(t, "key", cf.APIKey)

	_, ok = entities[1].Identity(core.PlatformLeetCode)
	require.False(t, ok)
}

func TestLoadYAMLRoster(t *testing.T) {
	path := writeRoster(t, "roster.yaml", `
- id: s001
  name: Ada Lovelace
  handles:
    leetcode:
      handle: ada
    codechef:
      handle: ada_chef
`)

	entities, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	cc, ok := entities[0].Identity(core.PlatformCodeChef)
	require.True(t, ok)
	require.Equal(t, "ada_chef", cc.Handle)
}

func TestLoadPreservesOrder(t *testing.T) {
	path := writeRoster(t, "roster.json", `[
		{"id": "c", "name": "C"},
		{"id": "a", "name": "A"},
		{"id": "b", "name": "B"}
	]`)

	entities, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "c", entities[0].ID)
	require.Equal(t, "a", entities[1].ID)
	require.Equal(t, "b", entities[2].ID)
}

func TestLoadRejectsEmptyRoster(t *testing.T) {
	path := writeRoster(t, "roster.json", `[]`)
	_, err := Load(path)
	require.ErrorContains(t, err, "roster is empty")
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	path := writeRoster(t, "roster.json", `[
		{"id": "s001", "name": "Ada"},
		{"id": "s001", "name": "Grace"}
	]`)
	_, err := Load(path)
	require.ErrorContains(t, err, `duplicates id "s001"`)
}

func TestLoadRejectsMissingName(t *testing.T) {
	path := writeRoster(t, "roster.json", `[{"id": "s001", "name": "  "}]`)
	_, err := Load(path)
	require.ErrorContains(t, err, "has no name")
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeRoster(t, "roster.csv", `id,name`)
	_, err := Load(path)
	require.ErrorContains(t, err, "unsupported roster format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "read roster")
}
