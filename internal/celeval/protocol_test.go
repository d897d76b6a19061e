package celeval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequest_RoundTrip(t *testing.T) {
	req := Request{ID: "7", Expr: "target_a.status_code == target_b.status_code", Data: map[string]any{"target_a": map[string]any{"status_code": 200.0}}}

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded Request
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, req.ID, decoded.ID)
	require.Equal(t, req.Expr, decoded.Expr)
}

func TestResponse_ErrorOmitsResult(t *testing.T) {
	resp := Response{ID: "7", OK: false, Error: "no such field"}
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	require.NotContains(t, string(raw), `"result"`)
}

func TestReadyMessage_RoundTrip(t *testing.T) {
	raw, err := json.Marshal(ReadyMessage{Ready: true})
	require.NoError(t, err)
	require.JSONEq(t, `{"ready":true}`, string(raw))
}
