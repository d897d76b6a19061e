package genapi

import (
	"math/rand"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

func TestBuildStateMachine_IndexesLinksBySource(t *testing.T) {
	s := sampleSpec()
	sm := s.buildStateMachine()

	require.Len(t, sm.bySource["createUser"], 1)
	require.Equal(t, "getUser", sm.bySource["createUser"][0].TargetOp)
	require.Empty(t, sm.bySource["getUser"])
}

func TestEntryOperations_ExcludesOrphansIncludesLinkSourcesAndFreeEntries(t *testing.T) {
	s := sampleSpec()
	sm := s.buildStateMachine()

	entries := s.entryOperations(sm)
	require.Contains(t, entries, "createUser")
	require.NotContains(t, entries, "listUsers")
}

func TestEntryOperations_RequiredPathParamWithoutLinkIsExcluded(t *testing.T) {
	s := &Spec{
		Operations: map[string]*Operation{
			"getUser": {
				ID: "getUser",
				Parameters: []Parameter{
					{Name: "id", In: "path", Required: true},
				},
			},
		},
		LinkedOps: map[string]bool{"getUser": true},
	}
	sm := s.buildStateMachine()
	require.Empty(t, s.entryOperations(sm))
}

func TestParamIn(t *testing.T) {
	op := &Operation{Parameters: []Parameter{{Name: "id", In: "path"}}}
	require.Equal(t, "path", paramIn(op, "id"))
	require.Equal(t, "", paramIn(op, "missing"))
}

func TestCoveragePct(t *testing.T) {
	s := &Spec{LinkedOps: map[string]bool{"a": true, "b": true}}

	require.Equal(t, 50.0, coveragePct(s, map[string]int{"a": 1}, 1))
	require.Equal(t, 100.0, coveragePct(s, map[string]int{"a": 1, "b": 1}, 1))
	require.Equal(t, 100.0, coveragePct(&Spec{}, nil, 1))
}

func TestWalkChain_FollowsLinksAndStopsAtDeadEnd(t *testing.T) {
	s := sampleSpec()
	sm := s.buildStateMachine()
	rng := rand.New(rand.NewSource(1))

	chain := s.walkChain(sm, "createUser", rng, 5)
	require.Equal(t, []string{"createUser", "getUser"}, chain.OperationSignature())
	require.Nil(t, chain.Steps[0].LinkSource)
	require.NotNil(t, chain.Steps[1].LinkSource)
	require.Equal(t, "id", chain.Steps[1].LinkSource.ParamName)
	require.Equal(t, "path", chain.Steps[1].LinkSource.ParamIn)
}

func TestWalkChain_StopsAtMaxSteps(t *testing.T) {
	s := &Spec{
		Operations: map[string]*Operation{
			"a": {ID: "a"},
			"b": {ID: "b"},
		},
		Links: []Link{
			{SourceOp: "a", TargetOp: "b", TargetParam: "id"},
			{SourceOp: "b", TargetOp: "a", TargetParam: "id"},
		},
		LinkedOps: map[string]bool{"a": true, "b": true},
	}
	sm := s.buildStateMachine()
	rng := rand.New(rand.NewSource(1))

	chain := s.walkChain(sm, "a", rng, 3)
	require.Len(t, chain.Steps, 3)
}

func TestGenerateChains_NoEntriesReturnsNil(t *testing.T) {
	s := &Spec{Operations: map[string]*Operation{}, LinkedOps: map[string]bool{}}
	require.Nil(t, s.GenerateChains(Config{}))
}

func TestGenerateChains_ProducesDedupedChains(t *testing.T) {
	s := sampleSpec()
	chains := s.GenerateChains(Config{Seed: 1, MaxSeeds: 3, MaxSteps: 5, MaxChains: 10})

	require.NotEmpty(t, chains)
	seen := make(map[string]bool)
	for _, c := range chains {
		sig := ""
		for _, id := range c.OperationSignature() {
			sig += id + ">"
		}
		require.False(t, seen[sig], "chain signature %q duplicated", sig)
		seen[sig] = true
	}
}

func TestGenerateChains_RespectsExclusion(t *testing.T) {
	s := sampleSpec()
	chains := s.GenerateChains(Config{Seed: 1, MaxSeeds: 3, Excluded: map[string]bool{"createUser": true}})
	require.Empty(t, chains)
}

func TestGenerateChains_RespectsMaxChains(t *testing.T) {
	s := &Spec{
		Operations: map[string]*Operation{
			"a": {ID: "a"},
			"b": {ID: "b", Parameters: []Parameter{{Name: "id", In: "path", Required: true,
				Schema: &openapi3.Schema{Type: &openapi3.Types{"string"}}}}},
		},
		Links:     []Link{{SourceOp: "a", TargetOp: "b", TargetParam: "id"}},
		LinkedOps: map[string]bool{"a": true, "b": true},
	}
	chains := s.GenerateChains(Config{Seed: 1, MaxSeeds: 5, MaxChains: 1})
	require.Len(t, chains, 1)
}
