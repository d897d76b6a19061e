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

	"github.com/apidiff/apidiff/internal/fuzzcase"
	"github.com/apidiff/apidiff/internal/ruleset"
)

// compareStatus applies rule (or exact-match default) to a pair of status
// codes (§4.7 phase 1).
func (c *Comparator) compareStatus(ctx context.Context, rule *ruleset.Rule, a, b int) (*PhaseResult, error) {
	if rule == nil || rule.Expr == "" {
		if a == b {
			return &PhaseResult{Match: true}, nil
		}
		return &PhaseResult{Match: false, Differences: []Difference{
			{Path: "$.status_code", TargetAValue: a, TargetBValue: b, Rule: "exact_match"},
		}}, nil
	}

	ok, err := c.cel.Eval(ctx, rule.Expr, map[string]any{"a": a, "b": b})
	if err != nil {
		return &PhaseResult{Match: false, Differences: []Difference{
			{Path: "$.status_code", TargetAValue: a, TargetBValue: b, Rule: fmt.Sprintf("error: %v", err)},
		}}, nil
	}
	if !ok {
		return &PhaseResult{Match: false, Differences: []Difference{
			{Path: "$.status_code", TargetAValue: a, TargetBValue: b, Rule: rule.Expr},
		}}, nil
	}
	return &PhaseResult{Match: true}, nil
}

// compareHeaders applies each header rule case-insensitively, comparing
// only the first value of a multi-value header (§4.7 phase 2).
func (c *Comparator) compareHeaders(ctx context.Context, rules map[string]ruleset.Rule, headersA, headersB *fuzzcase.OrderedMap) (*PhaseResult, error) {
	var diffs []Difference
	for name, rule := range rules {
		aVal, aOk := "", false
		bVal, bOk := "", false
		if headersA != nil {
			aVal, aOk = headersA.Get(name)
		}
		if headersB != nil {
			bVal, bOk = headersB.Get(name)
		}

		mismatch, diff, err := c.applyFieldRule(ctx, rule, "$."+name, aOk, bOk, aVal, bVal)
		if err != nil {
			return nil, err
		}
		if mismatch {
			diffs = append(diffs, diff)
		}
	}
	return &PhaseResult{Match: len(diffs) == 0, Differences: diffs}, nil
}

// applyFieldRule runs presence logic then, if both sides are in scope for
// value comparison, the rule's expression (§4.7 phase 2/3, §3 RULE).
func (c *Comparator) applyFieldRule(ctx context.Context, rule ruleset.Rule, path string, aPresent, bPresent bool, aVal, bVal any) (bool, Difference, error) {
	presence := rule.Presence
	if presence == "" {
		presence = ruleset.PresenceParity
	}

	switch presence {
	case ruleset.PresenceParity:
		if aPresent != bPresent {
			return true, Difference{Path: path, TargetAValue: presenceValue(aPresent, aVal), TargetBValue: presenceValue(bPresent, bVal), Rule: "presence:parity"}, nil
		}
		if !aPresent && !bPresent {
			return false, Difference{}, nil
		}
	case ruleset.PresenceRequired:
		if !aPresent || !bPresent {
			return true, Difference{Path: path, TargetAValue: presenceValue(aPresent, aVal), TargetBValue: presenceValue(bPresent, bVal), Rule: "presence:required"}, nil
		}
	case ruleset.PresenceForbidden:
		if aPresent || bPresent {
			return true, Difference{Path: path, TargetAValue: presenceValue(aPresent, aVal), TargetBValue: presenceValue(bPresent, bVal), Rule: "presence:forbidden"}, nil
		}
		return false, Difference{}, nil
	case ruleset.PresenceOptional:
		if !aPresent || !bPresent {
			return false, Difference{}, nil
		}
	}

	if rule.Expr == "" {
		return false, Difference{}, nil
	}

	ok, err := c.cel.Eval(ctx, rule.Expr, map[string]any{"a": aVal, "b": bVal})
	if err != nil {
		return true, Difference{Path: path, TargetAValue: aVal, TargetBValue: bVal, Rule: fmt.Sprintf("error: %v", err)}, nil
	}
	if !ok {
		return true, Difference{Path: path, TargetAValue: aVal, TargetBValue: bVal, Rule: rule.Expr}, nil
	}
	return false, Difference{}, nil
}

func presenceValue(present bool, v any) any {
	if !present {
		return nil
	}
	return v
}
