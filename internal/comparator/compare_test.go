package comparator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apidiff/apidiff/internal/fuzzcase"
	"github.com/apidiff/apidiff/internal/ruleset"
)

func newTestComparator() *Comparator {
	return New(&ruleset.Document{}, ruleset.NewLibrary(), nil, nil)
}

func TestCompare_InfraErrorIsSkipped(t *testing.T) {
	c := newTestComparator()

	respA := &fuzzcase.ResponseCase{Error: "connection refused"}
	respB := &fuzzcase.ResponseCase{StatusCode: 200}

	result, err := c.Compare(context.Background(), "getUser", respA, respB)
	require.NoError(t, err)
	require.True(t, result.Match)
	require.Equal(t, MismatchNone, result.MismatchType)
}

func TestCompare_Both5xxIsSkipped(t *testing.T) {
	c := newTestComparator()

	respA := &fuzzcase.ResponseCase{StatusCode: 500}
	respB := &fuzzcase.ResponseCase{StatusCode: 503}

	result, err := c.Compare(context.Background(), "getUser", respA, respB)
	require.NoError(t, err)
	require.True(t, result.Match)
}

func TestCompare_StatusCodeMismatch_ShortCircuits(t *testing.T) {
	c := newTestComparator()

	respA := &fuzzcase.ResponseCase{StatusCode: 200}
	respB := &fuzzcase.ResponseCase{StatusCode: 404}

	result, err := c.Compare(context.Background(), "getUser", respA, respB)
	require.NoError(t, err)
	require.False(t, result.Match)
	require.Equal(t, MismatchStatusCode, result.MismatchType)
	require.Nil(t, result.Body)
}

func TestCompare_UnresolvableOperation_ReturnsError(t *testing.T) {
	doc := &ruleset.Document{
		OperationRules: map[string]ruleset.RawRuleSet{
			"getUser": {StatusCode: &ruleset.RawRule{Predefined: "does_not_exist"}},
		},
	}
	c := New(doc, ruleset.NewLibrary(), nil, nil)

	respA := &fuzzcase.ResponseCase{StatusCode: 200}
	respB := &fuzzcase.ResponseCase{StatusCode: 200}

	_, err := c.Compare(context.Background(), "getUser", respA, respB)
	require.Error(t, err)
}

func TestCompare_NonJSONSuccessResponses_SkipBodyPhase(t *testing.T) {
	c := newTestComparator()

	respA := &fuzzcase.ResponseCase{StatusCode: 200, Body: fuzzcase.BinaryBody([]byte{0x01})}
	respB := &fuzzcase.ResponseCase{StatusCode: 200, Body: fuzzcase.BinaryBody([]byte{0x01})}

	result, err := c.Compare(context.Background(), "downloadFile", respA, respB)
	require.NoError(t, err)
	require.True(t, result.Match)
	require.Nil(t, result.Body)
}
