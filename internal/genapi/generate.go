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
	"fmt"
	"iter"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/apidiff/apidiff/internal/fuzzcase"
)

// Config controls case/chain generation (§4.4).
type Config struct {
	Excluded        map[string]bool
	MaxCases        int
	Seed            int64
	MinHitsPerOp    int
	MinCoveragePct  float64
	MaxSeeds        int
	MaxChains       int
	MaxSteps        int
}

// DefaultConfig returns the defaults named in §4.4 step 3 and §6.
func DefaultConfig() Config {
	return Config{
		MaxCases:       1000,
		MinHitsPerOp:   1,
		MinCoveragePct: 100,
		MaxSeeds:       100,
		MaxChains:      10000,
		MaxSteps:       20,
	}
}

// GenerateSingleCases emits a lazy, schema-valid, positive-mode request
// case per non-excluded operation, capped by cfg.MaxCases (§4.4
// "Generate single cases").
func (s *Spec) GenerateSingleCases(cfg Config) iter.Seq[*fuzzcase.RequestCase] {
	return func(yield func(*fuzzcase.RequestCase) bool) {
		rng := rand.New(rand.NewSource(cfg.Seed))
		count := 0
		for _, id := range s.SortedOperationIDs() {
			if cfg.Excluded[id] {
				continue
			}
			if cfg.MaxCases > 0 && count >= cfg.MaxCases {
				return
			}
			op := s.Operations[id]
			rc := s.buildCase(op, rng, "")
			count++
			if !yield(rc) {
				return
			}
		}
	}
}

// buildCase constructs one schema-valid positive-mode RequestCase for op.
// skipParam, when non-empty, names a parameter left unbound in the
// returned template because a chain link will supply its value from an
// upstream response at execution time (§3 "Chain template").
func (s *Spec) buildCase(op *Operation, rng *rand.Rand, skipParam string) *fuzzcase.RequestCase {
	rc := fuzzcase.NewRequestCase(uuid.NewString(), op.ID, op.Method, op.Path)
	for _, p := range op.Parameters {
		if p.Name == skipParam {
			continue
		}
		value := formatParamValue(SynthesizeSchema(p.Schema, rng))
		switch p.In {
		case "path":
			rc.SetPathParam(p.Name, value)
		case "query":
			if p.Required {
				rc.Query.Add(p.Name, value)
			}
		case "header":
			if p.Required {
				rc.Headers.Add(p.Name, value)
			}
		}
	}
	if op.RequestBodySchema != nil {
		rc.Body = fuzzcase.StructuredBody(SynthesizeSchema(op.RequestBodySchema, rng))
		rc.MediaType = "application/json"
	}
	return rc
}

func formatParamValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// EnsureCoverage returns single-request cases for every orphan operation
// (§4.4 step 4), so operations invisible to chain discovery still get
// exercised.
func (s *Spec) EnsureCoverage(cfg Config) []*fuzzcase.RequestCase {
	rng := rand.New(rand.NewSource(cfg.Seed))
	orphans := s.OrphanOperations()
	cases := make([]*fuzzcase.RequestCase, 0, len(orphans))
	for _, id := range orphans {
		if cfg.Excluded[id] {
			continue
		}
		cases = append(cases, s.buildCase(s.Operations[id], rng, ""))
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].OperationID < cases[j].OperationID })
	return cases
}
