package ruleset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLibrary_Expand_NoParams(t *testing.T) {
	lib := NewLibrary()
	expr, err := lib.Expand("exact_match", nil)
	require.NoError(t, err)
	require.Equal(t, "a == b", expr)
}

func TestLibrary_Expand_NumericTolerance(t *testing.T) {
	lib := NewLibrary()
	expr, err := lib.Expand("numeric_tolerance", map[string]any{"tolerance": float64(2)})
	require.NoError(t, err)
	require.Equal(t, "math.abs(double(a) - double(b)) <= 2", expr)
}

func TestLibrary_Expand_StringParam_IsJSONEscaped(t *testing.T) {
	lib := NewLibrary()
	expr, err := lib.Expand("string_prefix", map[string]any{"prefix": `usr_"1"`})
	require.NoError(t, err)
	require.Equal(t, `a.startsWith("usr_\"1\"") && b.startsWith("usr_\"1\"")`, expr)
}

func TestLibrary_Expand_MissingRequiredParam(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Expand("numeric_tolerance", nil)
	require.Error(t, err)
}

func TestLibrary_Expand_UnknownPredefined(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Expand("does_not_exist", nil)
	require.Error(t, err)
}

func TestLibrary_Expand_WrongParamType(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Expand("numeric_tolerance", map[string]any{"tolerance": "not-a-number"})
	require.Error(t, err)
}

func TestLibrary_Register_Overrides(t *testing.T) {
	lib := NewLibrary()
	lib.Register(Template{Name: "exact_match", Expr: "a == b || true"})
	expr, err := lib.Expand("exact_match", nil)
	require.NoError(t, err)
	require.Equal(t, "a == b || true", expr)
}

func TestLibrary_Names_IncludesFundamentals(t *testing.T) {
	lib := NewLibrary()
	names := lib.Names()
	require.Contains(t, names, "uuid_format")
	require.Contains(t, names, "unordered_array")
	require.Contains(t, names, "same_keys")
}
