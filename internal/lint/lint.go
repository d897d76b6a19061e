/*
Copyright 2025 The apidiff Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package lint statically analyzes an OpenAPI document's link graph for
// connectivity, depth, and reachability, independent of running any
// request (§2 "Spec Linter" row).
package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apidiff/apidiff/internal/genapi"
)

// Severity classifies a Finding's impact on chain exploration.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one static-analysis result.
type Finding struct {
	Severity    Severity `json:"severity"`
	Rule        string   `json:"rule"`
	OperationID string   `json:"operation_id,omitempty"`
	Message     string   `json:"message"`
}

// Stats summarizes the link graph's shape.
type Stats struct {
	TotalOperations int     `json:"total_operations"`
	LinkedOperations int    `json:"linked_operations"`
	OrphanOperations int     `json:"orphan_operations"`
	TotalLinks      int     `json:"total_links"`
	EntryPoints     int     `json:"entry_points"`
	MaxDepth        int     `json:"max_depth"`
	HasCycles       bool    `json:"has_cycles"`
}

// Report is the full result of linting a Spec.
type Report struct {
	Stats    Stats     `json:"stats"`
	Findings []Finding `json:"findings"`
}

// HasErrors reports whether any finding is of Error severity.
func (r *Report) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Config bounds the depth warning threshold.
type Config struct {
	// MaxRecommendedDepth is the chain length above which a WARNING
	// ("deep chain") finding is emitted. Zero disables the check.
	MaxRecommendedDepth int
}

// Lint runs every static check against spec and returns a Report sorted
// by operation id.
func Lint(spec *genapi.Spec, cfg Config) *Report {
	report := &Report{}

	report.Findings = append(report.Findings, checkDanglingTargets(spec)...)
	report.Findings = append(report.Findings, checkDanglingParams(spec)...)
	report.Findings = append(report.Findings, checkExpressions(spec)...)
	report.Findings = append(report.Findings, checkOrphans(spec)...)

	graph := buildGraph(spec)
	entries := entryPoints(spec, graph)
	maxDepth, deepChains := depthAnalysis(graph, entries, cfg.MaxRecommendedDepth)
	report.Findings = append(report.Findings, deepChains...)

	cyclic := findCycles(graph)
	for _, cyc := range cyclic {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityInfo,
			Rule:     "link_cycle",
			Message:  fmt.Sprintf("link cycle detected: %s", strings.Join(cyc, " -> ")),
		})
	}

	unreachable := unreachableTargets(spec, graph, entries)
	for _, id := range unreachable {
		report.Findings = append(report.Findings, Finding{
			Severity:    SeverityWarning,
			Rule:        "unreachable_operation",
			OperationID: id,
			Message:     fmt.Sprintf("operation %q is a link target but unreachable from any entry point", id),
		})
	}

	sort.Slice(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.OperationID != b.OperationID {
			return a.OperationID < b.OperationID
		}
		return a.Rule < b.Rule
	})

	report.Stats = Stats{
		TotalOperations:  len(spec.Operations),
		LinkedOperations: len(spec.LinkedOps),
		OrphanOperations: len(spec.OrphanOperations()),
		TotalLinks:       len(spec.Links),
		EntryPoints:      len(entries),
		MaxDepth:         maxDepth,
		HasCycles:        len(cyclic) > 0,
	}

	return report
}

// checkDanglingTargets flags links whose target operation id is not
// enumerated in the document at all.
func checkDanglingTargets(spec *genapi.Spec) []Finding {
	var findings []Finding
	for _, l := range spec.Links {
		if _, ok := spec.Operations[l.TargetOp]; !ok {
			findings = append(findings, Finding{
				Severity:    SeverityError,
				Rule:        "dangling_link_target",
				OperationID: l.SourceOp,
				Message:     fmt.Sprintf("link from %q targets unknown operation %q", l.SourceOp, l.TargetOp),
			})
		}
	}
	return findings
}

// checkDanglingParams flags links whose target parameter is not declared
// on the target operation, so bindLinkParam at execution time would have
// nothing to bind into.
func checkDanglingParams(spec *genapi.Spec) []Finding {
	var findings []Finding
	for _, l := range spec.Links {
		targetOp, ok := spec.Operations[l.TargetOp]
		if !ok {
			continue
		}
		found := false
		for _, p := range targetOp.Parameters {
			if p.Name == l.TargetParam {
				found = true
				break
			}
		}
		if !found {
			findings = append(findings, Finding{
				Severity:    SeverityError,
				Rule:        "dangling_link_parameter",
				OperationID: l.TargetOp,
				Message:     fmt.Sprintf("link targets parameter %q on %q, which declares no such parameter", l.TargetParam, l.TargetOp),
			})
		}
	}
	return findings
}

// checkExpressions flags link expressions using a runtime prefix other
// than the two supported by variable extraction (§4.6).
func checkExpressions(spec *genapi.Spec) []Finding {
	var findings []Finding
	for _, l := range spec.Links {
		expr := l.Expression
		if strings.HasPrefix(expr, "$response.body#") || strings.HasPrefix(expr, "$response.header.") {
			continue
		}
		findings = append(findings, Finding{
			Severity:    SeverityWarning,
			Rule:        "unsupported_link_expression",
			OperationID: l.SourceOp,
			Message:     fmt.Sprintf("link expression %q is not a recognized $response.body#/... or $response.header.NAME form", expr),
		})
	}
	return findings
}

// checkOrphans flags operations participating in no link: they are still
// covered by single-case generation, but never appear in a chain.
func checkOrphans(spec *genapi.Spec) []Finding {
	var findings []Finding
	for _, id := range spec.OrphanOperations() {
		findings = append(findings, Finding{
			Severity:    SeverityInfo,
			Rule:        "orphan_operation",
			OperationID: id,
			Message:     fmt.Sprintf("operation %q has no inbound or outbound link", id),
		})
	}
	return findings
}

type graph struct {
	edges map[string][]string
}

func buildGraph(spec *genapi.Spec) *graph {
	g := &graph{edges: make(map[string][]string)}
	for _, l := range spec.Links {
		if _, ok := spec.Operations[l.TargetOp]; !ok {
			continue
		}
		g.edges[l.SourceOp] = append(g.edges[l.SourceOp], l.TargetOp)
	}
	return g
}

// entryPoints returns the linked operations with no required path
// parameter, i.e. those callable without a link-supplied value. Unlike
// genapi's chain-entry rule, being a link source alone does not make an
// operation an entry point here.
func entryPoints(spec *genapi.Spec, g *graph) []string {
	var entries []string
	for _, id := range spec.SortedOperationIDs() {
		if !spec.LinkedOps[id] {
			continue
		}
		op := spec.Operations[id]
		if !op.HasRequiredPathParams() {
			entries = append(entries, id)
		}
	}
	return entries
}

// depthAnalysis computes the longest simple path reachable from any
// entry point (cycles bound the walk to avoid infinite recursion) and
// emits a WARNING finding per entry point whose longest chain exceeds
// maxRecommended (0 disables the check).
func depthAnalysis(g *graph, entries []string, maxRecommended int) (int, []Finding) {
	overall := 0
	var findings []Finding

	for _, entry := range entries {
		depth := longestPath(g, entry, map[string]bool{})
		if depth > overall {
			overall = depth
		}
		if maxRecommended > 0 && depth > maxRecommended {
			findings = append(findings, Finding{
				Severity:    SeverityWarning,
				Rule:        "deep_chain",
				OperationID: entry,
				Message:     fmt.Sprintf("longest chain from %q reaches depth %d, exceeding the recommended %d", entry, depth, maxRecommended),
			})
		}
	}

	return overall, findings
}

func longestPath(g *graph, node string, visiting map[string]bool) int {
	if visiting[node] {
		return 0
	}
	visiting[node] = true
	defer delete(visiting, node)

	best := 0
	for _, next := range g.edges[node] {
		if d := longestPath(g, next, visiting); d+1 > best {
			best = d + 1
		}
	}
	return best
}

// findCycles returns one representative path for each cycle found via
// DFS, each ending by repeating its first element.
func findCycles(g *graph) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	var path []string
	onPath := make(map[string]bool)

	var ids []string
	for id := range g.edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var visit func(node string)
	visit = func(node string) {
		if onPath[node] {
			start := -1
			for i, n := range path {
				if n == node {
					start = i
					break
				}
			}
			if start >= 0 {
				cyc := append([]string(nil), path[start:]...)
				cyc = append(cyc, node)
				cycles = append(cycles, cyc)
			}
			return
		}
		if visited[node] {
			return
		}
		visited[node] = true
		onPath[node] = true
		path = append(path, node)

		targets := append([]string(nil), g.edges[node]...)
		sort.Strings(targets)
		for _, next := range targets {
			visit(next)
		}

		path = path[:len(path)-1]
		onPath[node] = false
	}

	for _, id := range ids {
		if !visited[id] {
			visit(id)
		}
	}

	return cycles
}

// unreachableTargets returns link-target operations that no entry point
// can reach, sorted.
func unreachableTargets(spec *genapi.Spec, g *graph, entries []string) []string {
	reachable := make(map[string]bool)
	for _, entry := range entries {
		markReachable(g, entry, reachable)
	}

	targets := make(map[string]bool)
	for _, l := range spec.Links {
		if _, ok := spec.Operations[l.TargetOp]; ok {
			targets[l.TargetOp] = true
		}
	}

	var out []string
	for id := range targets {
		if !reachable[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func markReachable(g *graph, node string, reachable map[string]bool) {
	if reachable[node] {
		return
	}
	reachable[node] = true
	for _, next := range g.edges[node] {
		markReachable(g, next, reachable)
	}
}
