package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDocument_ParsesVersionAndRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	writeFile(t, path, `{
		"version": "1",
		"default_rules": {
			"status_code": {"expr": "a == b"}
		},
		"operation_rules": {
			"createUser": {
				"body": {"field_rules": {"$.id": {"predefined": "uuid_format"}}}
			}
		}
	}`)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	require.Equal(t, "1", doc.Version)
	require.NotNil(t, doc.DefaultRules.StatusCode)
	require.Contains(t, doc.OperationRules, "createUser")
}

func TestLoadDocument_MissingVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	writeFile(t, path, `{"default_rules": {}}`)

	_, err := LoadDocument(path)
	require.Error(t, err)
}

func TestLoadDocument_MissingFile(t *testing.T) {
	_, err := LoadDocument("/nonexistent/rules.json")
	require.Error(t, err)
}

func TestLoadDocument_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	writeFile(t, path, `{not json`)

	_, err := LoadDocument(path)
	require.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
