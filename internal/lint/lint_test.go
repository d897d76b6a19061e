package lint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apidiff/apidiff/internal/genapi"
)

func specWithChain() *genapi.Spec {
	return &genapi.Spec{
		Operations: map[string]*genapi.Operation{
			"createUser": {ID: "createUser"},
			"getUser": {ID: "getUser", Parameters: []genapi.Parameter{
				{Name: "id", In: "path", Required: true},
			}},
			"deleteUser": {ID: "deleteUser", Parameters: []genapi.Parameter{
				{Name: "id", In: "path", Required: true},
			}},
			"listUsers": {ID: "listUsers"},
		},
		Links: []genapi.Link{
			{SourceOp: "createUser", TargetOp: "getUser", TargetParam: "id", Expression: "$response.body#/id"},
			{SourceOp: "getUser", TargetOp: "deleteUser", TargetParam: "id", Expression: "$response.body#/id"},
		},
		LinkedOps: map[string]bool{"createUser": true, "getUser": true, "deleteUser": true},
	}
}

func TestLint_Stats(t *testing.T) {
	spec := specWithChain()
	report := Lint(spec, Config{})

	require.Equal(t, 4, report.Stats.TotalOperations)
	require.Equal(t, 3, report.Stats.LinkedOperations)
	require.Equal(t, 1, report.Stats.OrphanOperations)
	require.Equal(t, 2, report.Stats.TotalLinks)
	require.Equal(t, 1, report.Stats.EntryPoints)
	require.Equal(t, 2, report.Stats.MaxDepth)
	require.False(t, report.Stats.HasCycles)
}

func TestLint_OrphanFinding(t *testing.T) {
	spec := specWithChain()
	report := Lint(spec, Config{})

	var found bool
	for _, f := range report.Findings {
		if f.Rule == "orphan_operation" && f.OperationID == "listUsers" {
			found = true
		}
	}
	require.True(t, found)
}

func TestCheckDanglingTargets(t *testing.T) {
	spec := &genapi.Spec{
		Operations: map[string]*genapi.Operation{"createUser": {ID: "createUser"}},
		Links:      []genapi.Link{{SourceOp: "createUser", TargetOp: "ghostOp", TargetParam: "id"}},
	}
	findings := checkDanglingTargets(spec)
	require.Len(t, findings, 1)
	require.Equal(t, SeverityError, findings[0].Severity)
	require.Equal(t, "dangling_link_target", findings[0].Rule)
}

func TestCheckDanglingParams(t *testing.T) {
	spec := &genapi.Spec{
		Operations: map[string]*genapi.Operation{
			"createUser": {ID: "createUser"},
			"getUser":    {ID: "getUser", Parameters: []genapi.Parameter{{Name: "userId", In: "path"}}},
		},
		Links: []genapi.Link{{SourceOp: "createUser", TargetOp: "getUser", TargetParam: "id"}},
	}
	findings := checkDanglingParams(spec)
	require.Len(t, findings, 1)
	require.Equal(t, "dangling_link_parameter", findings[0].Rule)
	require.Equal(t, "getUser", findings[0].OperationID)
}

func TestCheckExpressions(t *testing.T) {
	spec := &genapi.Spec{
		Links: []genapi.Link{
			{SourceOp: "createUser", Expression: "$response.body#/id"},
			{SourceOp: "createUser", Expression: "$response.header.Location"},
			{SourceOp: "createUser", Expression: "$request.body#/id"},
		},
	}
	findings := checkExpressions(spec)
	require.Len(t, findings, 1)
	require.Equal(t, "unsupported_link_expression", findings[0].Rule)
}

func TestCheckOrphans(t *testing.T) {
	spec := specWithChain()
	findings := checkOrphans(spec)
	require.Len(t, findings, 1)
	require.Equal(t, "listUsers", findings[0].OperationID)
}

func TestFindCycles_DetectsTwoNodeCycle(t *testing.T) {
	spec := &genapi.Spec{
		Operations: map[string]*genapi.Operation{
			"a": {ID: "a"},
			"b": {ID: "b"},
		},
		Links: []genapi.Link{
			{SourceOp: "a", TargetOp: "b", TargetParam: "id"},
			{SourceOp: "b", TargetOp: "a", TargetParam: "id"},
		},
		LinkedOps: map[string]bool{"a": true, "b": true},
	}
	g := buildGraph(spec)
	cycles := findCycles(g)
	require.NotEmpty(t, cycles)

	report := Lint(spec, Config{})
	require.True(t, report.Stats.HasCycles)
}

func TestDepthAnalysis_EmitsDeepChainWarning(t *testing.T) {
	spec := specWithChain()
	g := buildGraph(spec)
	entries := entryPoints(spec, g)

	maxDepth, findings := depthAnalysis(g, entries, 1)
	require.Equal(t, 2, maxDepth)
	require.Len(t, findings, 1)
	require.Equal(t, "deep_chain", findings[0].Rule)
}

func TestDepthAnalysis_DisabledWhenZero(t *testing.T) {
	spec := specWithChain()
	g := buildGraph(spec)
	entries := entryPoints(spec, g)

	_, findings := depthAnalysis(g, entries, 0)
	require.Empty(t, findings)
}

func TestUnreachableTargets(t *testing.T) {
	spec := &genapi.Spec{
		Operations: map[string]*genapi.Operation{
			"a": {ID: "a"},
			"b": {ID: "b", Parameters: []genapi.Parameter{{Name: "id", In: "path", Required: true}}},
			"c": {ID: "c", Parameters: []genapi.Parameter{{Name: "id", In: "path", Required: true}}},
		},
		Links: []genapi.Link{
			{SourceOp: "b", TargetOp: "c", TargetParam: "id"},
		},
		LinkedOps: map[string]bool{"b": true, "c": true},
	}
	g := buildGraph(spec)
	entries := entryPoints(spec, g)
	require.Empty(t, entries)

	unreachable := unreachableTargets(spec, g, entries)
	require.Equal(t, []string{"c"}, unreachable)
}

func TestReport_HasErrors(t *testing.T) {
	report := &Report{Findings: []Finding{{Severity: SeverityWarning}}}
	require.False(t, report.HasErrors())

	report.Findings = append(report.Findings, Finding{Severity: SeverityError})
	require.True(t, report.HasErrors())
}
