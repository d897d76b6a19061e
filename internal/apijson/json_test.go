package apijson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	in := payload{Name: "getUser", Count: 3}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, Unmarshal(data, &out))
	require.Equal(t, in, out)
}

func TestMarshalIndent_IsPrettyPrinted(t *testing.T) {
	data, err := MarshalIndent(map[string]any{"a": 1})
	require.NoError(t, err)
	require.Contains(t, string(data), "\n")
	require.Contains(t, string(data), "  ")
}

func TestUnmarshal_InvalidJSON(t *testing.T) {
	var out map[string]any
	err := Unmarshal([]byte("{not valid"), &out)
	require.Error(t, err)
}
