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

package comparator

import (
	"context"
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/apidiff/apidiff/internal/ruleset"
)

// compareBody applies each JSONPath field rule, detecting wildcard
// expansion mismatches before any value comparison (§4.7 phase 3).
func (c *Comparator) compareBody(ctx context.Context, rules map[string]ruleset.Rule, bodyA, bodyB any) (*PhaseResult, error) {
	var diffs []Difference

	for path, rule := range rules {
		expr, err := jp.ParseString(path)
		if err != nil {
			diffs = append(diffs, Difference{Path: path, Rule: fmt.Sprintf("error: invalid JSONPath: %v", err)})
			continue
		}

		matchesA := expr.Get(bodyA)
		matchesB := expr.Get(bodyB)
		nA, nB := len(matchesA), len(matchesB)

		if nA != nB {
			diffs = append(diffs, Difference{Path: path, TargetAValue: nA, TargetBValue: nB, Rule: "wildcard_count_mismatch"})
			continue
		}
		if nA == 0 {
			// Both sides expand to nothing: still subject to presence
			// (§3 required/forbidden), but never a wildcard error (§8
			// boundary behavior for empty bodies / "$.*" field rules).
			mismatch, diff, err := c.applyFieldRule(ctx, rule, path, false, false, nil, nil)
			if err != nil {
				return nil, err
			}
			if mismatch {
				diffs = append(diffs, diff)
			}
			continue
		}

		if nA == 1 {
			mismatch, diff, err := c.applyFieldRule(ctx, rule, path, true, true, matchesA[0], matchesB[0])
			if err != nil {
				return nil, err
			}
			if mismatch {
				diffs = append(diffs, diff)
			}
			continue
		}

		// Multiple matches on both sides with equal count: pairwise
		// evaluation in array order, stopping at the first failing pair.
		for i := 0; i < nA; i++ {
			elemPath := fmt.Sprintf("%s[%d]", path, i)
			mismatch, diff, err := c.applyFieldRule(ctx, rule, elemPath, true, true, matchesA[i], matchesB[i])
			if err != nil {
				return nil, err
			}
			if mismatch {
				diffs = append(diffs, diff)
				break
			}
		}
	}

	return &PhaseResult{Match: len(diffs) == 0, Differences: diffs}, nil
}
