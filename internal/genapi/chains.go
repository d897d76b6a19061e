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

package genapi

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/apidiff/apidiff/internal/fuzzcase"
)

// stateMachine indexes links by source operation, one transition per
// explicit link (§4.4 step 1). Never inferred from parameter names or
// Location headers.
type stateMachine struct {
	bySource map[string][]Link
}

func (s *Spec) buildStateMachine() *stateMachine {
	sm := &stateMachine{bySource: make(map[string][]Link)}
	for _, l := range s.Links {
		sm.bySource[l.SourceOp] = append(sm.bySource[l.SourceOp], l)
	}
	return sm
}

// entryOperations returns every linked operation that can start a chain:
// sources of at least one link, or operations with no required path
// parameters ("free entry", §4.4 step 1). Orphans are excluded — they
// are covered separately by EnsureCoverage (§4.4 step 4).
func (s *Spec) entryOperations(sm *stateMachine) []string {
	var entries []string
	for _, id := range s.SortedOperationIDs() {
		if !s.LinkedOps[id] {
			continue
		}
		op := s.Operations[id]
		if len(sm.bySource[id]) > 0 || !op.HasRequiredPathParams() {
			entries = append(entries, id)
		}
	}
	return entries
}

// GenerateChains produces ChainCase templates whose steps correspond to
// explicit OpenAPI links, using seed-walked exploration until the
// coverage target is met or the seed/chain-count budget is exhausted
// (§4.4 steps 2-3).
func (s *Spec) GenerateChains(cfg Config) []*fuzzcase.ChainCase {
	sm := s.buildStateMachine()
	entries := s.entryOperations(sm)
	if len(entries) == 0 {
		return nil
	}

	maxSeeds := cfg.MaxSeeds
	if maxSeeds <= 0 {
		maxSeeds = 100
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 20
	}
	maxChains := cfg.MaxChains
	if maxChains <= 0 {
		maxChains = 10000
	}
	minHits := cfg.MinHitsPerOp
	if minHits <= 0 {
		minHits = 1
	}
	minCoverage := cfg.MinCoveragePct
	if minCoverage <= 0 {
		minCoverage = 100
	}

	seenSignatures := make(map[string]bool)
	hits := make(map[string]int)
	var chains []*fuzzcase.ChainCase

	for seedOffset := int64(0); seedOffset < int64(maxSeeds); seedOffset++ {
		seed := cfg.Seed + seedOffset
		rng := rand.New(rand.NewSource(seed))

		for _, entry := range entries {
			if cfg.Excluded[entry] {
				continue
			}
			if len(chains) >= maxChains {
				return chains
			}
			chain := s.walkChain(sm, entry, rng, maxSteps)
			sig := strings.Join(chain.OperationSignature(), ">")
			if seenSignatures[sig] {
				continue
			}
			seenSignatures[sig] = true
			chains = append(chains, chain)
			for _, opID := range chain.OperationSignature() {
				hits[opID]++
			}
		}

		if coveragePct(s, hits, minHits) >= minCoverage {
			break
		}
	}

	return chains
}

func coveragePct(s *Spec, hits map[string]int, minHits int) float64 {
	total := 0
	covered := 0
	for id := range s.LinkedOps {
		total++
		if hits[id] >= minHits {
			covered++
		}
	}
	if total == 0 {
		return 100
	}
	return 100 * float64(covered) / float64(total)
}

// walkChain draws one chain from the state machine starting at entry,
// following one randomly chosen outgoing link per step until a dead end
// or maxSteps. Each linked step's link-supplied parameter is left unbound
// in its template; no synthetic upstream response is generated.
func (s *Spec) walkChain(sm *stateMachine, entry string, rng *rand.Rand, maxSteps int) *fuzzcase.ChainCase {
	chain := &fuzzcase.ChainCase{ID: uuid.NewString()}

	curOp := entry
	var pendingLinkSource *fuzzcase.LinkSource
	var pendingParamName string

	for step := 0; step < maxSteps; step++ {
		op := s.Operations[curOp]
		req := s.buildCase(op, rng, pendingParamName)

		chain.Steps = append(chain.Steps, fuzzcase.ChainStep{
			Request:    req,
			LinkSource: pendingLinkSource,
		})

		transitions := sm.bySource[curOp]
		if len(transitions) == 0 {
			break
		}
		link := transitions[rng.Intn(len(transitions))]
		targetOp, ok := s.Operations[link.TargetOp]
		if !ok {
			break
		}

		pendingLinkSource = &fuzzcase.LinkSource{
			Step:      step,
			Field:     link.Expression,
			ParamName: link.TargetParam,
			ParamIn:   paramIn(targetOp, link.TargetParam),
		}
		pendingParamName = link.TargetParam
		curOp = link.TargetOp
	}

	return chain
}

func paramIn(op *Operation, name string) string {
	for _, p := range op.Parameters {
		if p.Name == name {
			return p.In
		}
	}
	return ""
}
