package fuzzcase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderedMap_CaseInsensitiveAndOrderPreserving(t *testing.T) {
	m := NewOrderedMap()
	m.Add("X-Request-Id", "abc")
	m.Add("Content-Type", "application/json")
	m.Add("x-request-id", "def")

	require.Equal(t, []string{"x-request-id", "content-type"}, m.Keys())

	vals, ok := m.Values("X-REQUEST-ID")
	require.True(t, ok)
	require.Equal(t, []string{"abc", "def"}, vals)

	v, ok := m.Get("content-type")
	require.True(t, ok)
	require.Equal(t, "application/json", v)
}

func TestOrderedMap_Set_ReplacesAllValues(t *testing.T) {
	m := NewOrderedMap()
	m.Add("k", "1")
	m.Add("k", "2")
	m.Set("k", "3")

	vals, ok := m.Values("k")
	require.True(t, ok)
	require.Equal(t, []string{"3"}, vals)
}

func TestOrderedMap_JSONRoundTrip_PreservesOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Add("b", "1")
	m.Add("a", "2")
	m.Add("b", "3")

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded OrderedMap
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, m.Keys(), decoded.Keys())
	bVals, _ := decoded.Values("b")
	require.Equal(t, []string{"1", "3"}, bVals)
}

func TestOrderedMap_Clone_IsIndependent(t *testing.T) {
	m := NewOrderedMap()
	m.Add("k", "v")
	clone := m.Clone()
	clone.Add("k", "v2")

	orig, _ := m.Values("k")
	cloned, _ := clone.Values("k")
	require.Equal(t, []string{"v"}, orig)
	require.Equal(t, []string{"v", "v2"}, cloned)
}

func TestBody_StructuredAndBinaryAreMutuallyExclusive(t *testing.T) {
	sb := StructuredBody(map[string]any{"a": 1})
	require.False(t, sb.HasBinary)
	require.False(t, sb.IsEmpty())

	bb := BinaryBody([]byte("hello"))
	require.True(t, bb.HasBinary)
	require.Equal(t, "aGVsbG8=", bb.Base64())

	require.True(t, Body{}.IsEmpty())
}

func TestRequestCase_RenderPathAndMissingParams(t *testing.T) {
	rc := NewRequestCase("case-1", "getUser", "GET", "/users/{userId}/posts/{postId}")
	require.Equal(t, []string{"userId", "postId"}, rc.MissingPathParams())

	rc.SetPathParam("userId", "42")
	require.Equal(t, "/users/42/posts/{postId}", rc.Path)
	require.Equal(t, []string{"postId"}, rc.MissingPathParams())

	rc.SetPathParam("postId", "7")
	require.Equal(t, "/users/42/posts/7", rc.Path)
	require.Empty(t, rc.MissingPathParams())
}

func TestRequestCase_Clone_IsDeepAndIndependent(t *testing.T) {
	rc := NewRequestCase("case-1", "getUser", "GET", "/users/{id}")
	rc.SetPathParam("id", "1")
	rc.Query.Add("filter", "active")
	rc.Headers.Add("Accept", "application/json")

	clone := rc.Clone()
	clone.SetPathParam("id", "2")
	clone.Query.Add("filter", "inactive")

	require.Equal(t, "/users/1", rc.Path)
	require.Equal(t, "/users/2", clone.Path)

	origFilter, _ := rc.Query.Values("filter")
	cloneFilter, _ := clone.Query.Values("filter")
	require.Equal(t, []string{"active"}, origFilter)
	require.Equal(t, []string{"active", "inactive"}, cloneFilter)
}

func TestResponseCase_IsInfraError(t *testing.T) {
	var nilResp *ResponseCase
	require.False(t, nilResp.IsInfraError())

	require.False(t, (&ResponseCase{StatusCode: 200}).IsInfraError())
	require.True(t, (&ResponseCase{Error: "connection refused"}).IsInfraError())
}
