package fuzzconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("APIDIFF_TARGET_A_URL", "https://a.example.com")
	path := writeConfig(t, `
targets:
  a:
    base_url: ${APIDIFF_TARGET_A_URL}
  b:
    base_url: https://b.example.com
comparison_rules: rules.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://a.example.com", cfg.Targets["a"].BaseURL)
}

func TestLoad_UnresolvedVariableIsAnError(t *testing.T) {
	path := writeConfig(t, `
targets:
  a:
    base_url: ${DEFINITELY_NOT_SET_12345}
comparison_rules: rules.json
`)

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DEFINITELY_NOT_SET_12345")
}

func TestLoad_EmptyButSetVariableIsNotAnError(t *testing.T) {
	t.Setenv("APIDIFF_EMPTY_VAR", "")
	path := writeConfig(t, `
targets:
  a:
    base_url: https://a.example.com
    headers:
      X-Empty: "${APIDIFF_EMPTY_VAR}value"
comparison_rules: rules.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "value", cfg.Targets["a"].Headers["X-Empty"])
}

func TestLoad_MissingTargetsIsInvalid(t *testing.T) {
	path := writeConfig(t, `
targets: {}
comparison_rules: rules.json
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingBaseURLIsInvalid(t *testing.T) {
	path := writeConfig(t, `
targets:
  a:
    base_url: ""
comparison_rules: rules.json
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_NonPositiveRateLimitIsInvalid(t *testing.T) {
	path := writeConfig(t, `
targets:
  a:
    base_url: https://a.example.com
comparison_rules: rules.json
rate_limit:
  requests_per_second: 0
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_Target_UnknownNameIsAnError(t *testing.T) {
	path := writeConfig(t, `
targets:
  a:
    base_url: https://a.example.com
comparison_rules: rules.json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Target("c")
	require.Error(t, err)
}
