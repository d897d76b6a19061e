package comparator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apidiff/apidiff/internal/fuzzcase"
	"github.com/apidiff/apidiff/internal/ruleset"
)

func TestCompareStatus_DefaultExactMatch(t *testing.T) {
	c := &Comparator{}

	phase, err := c.compareStatus(context.Background(), nil, 200, 200)
	require.NoError(t, err)
	require.True(t, phase.Match)

	phase, err = c.compareStatus(context.Background(), nil, 200, 404)
	require.NoError(t, err)
	require.False(t, phase.Match)
	require.Equal(t, "exact_match", phase.Differences[0].Rule)
}

func TestCompareHeaders_ParityPresence(t *testing.T) {
	c := &Comparator{}

	headersA := fuzzcase.NewOrderedMap()
	headersA.Add("X-Trace-Id", "abc")
	headersB := fuzzcase.NewOrderedMap()

	rules := map[string]ruleset.Rule{"X-Trace-Id": {Presence: ruleset.PresenceParity}}

	phase, err := c.compareHeaders(context.Background(), rules, headersA, headersB)
	require.NoError(t, err)
	require.False(t, phase.Match)
	require.Equal(t, "presence:parity", phase.Differences[0].Rule)
}

func TestCompareHeaders_ForbiddenPresence(t *testing.T) {
	c := &Comparator{}

	headersA := fuzzcase.NewOrderedMap()
	headersA.Add("X-Debug", "1")
	headersB := fuzzcase.NewOrderedMap()

	rules := map[string]ruleset.Rule{"X-Debug": {Presence: ruleset.PresenceForbidden}}

	phase, err := c.compareHeaders(context.Background(), rules, headersA, headersB)
	require.NoError(t, err)
	require.False(t, phase.Match)
	require.Equal(t, "presence:forbidden", phase.Differences[0].Rule)
}

func TestCompareHeaders_RequiredPresence(t *testing.T) {
	c := &Comparator{}

	headersA := fuzzcase.NewOrderedMap()
	headersB := fuzzcase.NewOrderedMap()
	headersB.Add("X-Required", "1")

	rules := map[string]ruleset.Rule{"X-Required": {Presence: ruleset.PresenceRequired}}

	phase, err := c.compareHeaders(context.Background(), rules, headersA, headersB)
	require.NoError(t, err)
	require.False(t, phase.Match)
	require.Equal(t, "presence:required", phase.Differences[0].Rule)
}

func TestCompareHeaders_OptionalPresence_SkippedWhenEitherMissing(t *testing.T) {
	c := &Comparator{}

	headersA := fuzzcase.NewOrderedMap()
	headersB := fuzzcase.NewOrderedMap()
	headersB.Add("X-Optional", "1")

	rules := map[string]ruleset.Rule{"X-Optional": {Presence: ruleset.PresenceOptional}}

	phase, err := c.compareHeaders(context.Background(), rules, headersA, headersB)
	require.NoError(t, err)
	require.True(t, phase.Match)
}

func TestCompareHeaders_CaseInsensitiveLookup(t *testing.T) {
	c := &Comparator{}

	headersA := fuzzcase.NewOrderedMap()
	headersA.Add("Content-Type", "application/json")
	headersB := fuzzcase.NewOrderedMap()
	headersB.Add("content-type", "application/json")

	rules := map[string]ruleset.Rule{"CONTENT-TYPE": {Presence: ruleset.PresenceParity}}

	phase, err := c.compareHeaders(context.Background(), rules, headersA, headersB)
	require.NoError(t, err)
	require.True(t, phase.Match)
}
