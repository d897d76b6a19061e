package artifact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactBody_ReplacesMatchedPath(t *testing.T) {
	body := map[string]any{"id": "u-1", "password": "hunter2"}

	redacted := redactBody(body, []string{"$.password"})
	m, ok := redacted.(map[string]any)
	require.True(t, ok)
	require.Equal(t, redactedSentinel, m["password"])
	require.Equal(t, "u-1", m["id"])
}

func TestRedactBody_DoesNotMutateOriginal(t *testing.T) {
	body := map[string]any{"password": "hunter2"}

	_ = redactBody(body, []string{"$.password"})
	require.Equal(t, "hunter2", body["password"])
}

func TestRedactBody_NilBodyOrNoFields(t *testing.T) {
	require.Nil(t, redactBody(nil, []string{"$.password"}))

	body := map[string]any{"password": "hunter2"}
	same := redactBody(body, nil)
	require.Equal(t, body, same)
}

func TestRedactBody_SkipsInvalidPathSilently(t *testing.T) {
	body := map[string]any{"id": "u-1"}
	redacted := redactBody(body, []string{"$[invalid"})
	require.Equal(t, map[string]any{"id": "u-1"}, redacted)
}

func TestRedactBody_SkipsPathWithNoMatch(t *testing.T) {
	body := map[string]any{"id": "u-1"}
	redacted := redactBody(body, []string{"$.missing"})
	require.Equal(t, map[string]any{"id": "u-1"}, redacted)
}

func TestDeepCopyJSON_IndependentCopy(t *testing.T) {
	original := map[string]any{"nested": map[string]any{"value": "a"}}
	copyOf := deepCopyJSON(original)

	m, ok := copyOf.(map[string]any)
	require.True(t, ok)
	nested := m["nested"].(map[string]any)
	nested["value"] = "changed"

	require.Equal(t, "a", original["nested"].(map[string]any)["value"])
}
