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

// Package ruleset expands named rule templates into CEL expression
// strings at config load time and models the resulting comparison rules
// (§4.2 Rule Library, §3 "Rule set").
package ruleset

import (
	"encoding/json"
	"fmt"
)

// Presence is the presence mode of a comparison rule (§3).
type Presence string

const (
	// PresenceParity requires both responses to agree on field presence:
	// either both present or both absent. This is the default.
	PresenceParity Presence = "parity"
	// PresenceRequired requires the field on both responses; its absence
	// on either side is itself a mismatch.
	PresenceRequired Presence = "required"
	// PresenceForbidden requires the field be absent from both responses.
	PresenceForbidden Presence = "forbidden"
	// PresenceOptional only compares the field's value when both
	// responses carry it; otherwise the rule is skipped.
	PresenceOptional Presence = "optional"
)

// Rule is a fully expanded comparison predicate: a bare CEL expression
// string plus a presence mode. By the time the runtime sees a Rule, any
// "predefined" shorthand has already been resolved (§4.2 step 4).
type Rule struct {
	Expr         string
	Presence     Presence
	BinaryRule   *Rule
	IsBinaryRule bool
}

// RawRule is the as-parsed form of a user rule from the JSON rule file,
// before predefined expansion.
type RawRule struct {
	Presence   Presence       `json:"presence,omitempty"`
	Predefined string         `json:"predefined,omitempty"`
	Expr       string         `json:"expr,omitempty"`
	Params     map[string]any `json:"-"`
	BinaryRule *RawRule       `json:"binary_rule,omitempty"`
}

// knownRuleFields are the named RULE keys that are not part of a
// predefined template's params (§6 RULE grammar).
var knownRuleFields = map[string]bool{
	"presence":    true,
	"predefined":  true,
	"expr":        true,
	"binary_rule": true,
}

// UnmarshalJSON captures the named fields plus every remaining key as a
// template parameter, matching the open-ended "...params..." shape of
// RULE in §6.
func (r *RawRule) UnmarshalJSON(data []byte) error {
	type alias struct {
		Presence   Presence `json:"presence,omitempty"`
		Predefined string   `json:"predefined,omitempty"`
		Expr       string   `json:"expr,omitempty"`
		BinaryRule *RawRule `json:"binary_rule,omitempty"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	params := make(map[string]any)
	for k, v := range extra {
		if !knownRuleFields[k] {
			params[k] = v
		}
	}

	r.Presence = a.Presence
	r.Predefined = a.Predefined
	r.Expr = a.Expr
	r.BinaryRule = a.BinaryRule
	r.Params = params
	return nil
}

// Resolve expands r against the rule library, producing the runtime
// Rule the Comparator/Evaluator consume. An unknown predefined name is a
// configuration error (§4.2 step 1, §7).
func (r RawRule) Resolve(lib *Library) (Rule, error) {
	presence := r.Presence
	if presence == "" {
		presence = PresenceParity
	}

	if r.BinaryRule != nil {
		inner, err := r.BinaryRule.Resolve(lib)
		if err != nil {
			return Rule{}, fmt.Errorf("binary_rule: %w", err)
		}
		return Rule{Presence: presence, BinaryRule: &inner, IsBinaryRule: true}, nil
	}

	if r.Predefined != "" {
		expr, err := lib.Expand(r.Predefined, r.Params)
		if err != nil {
			return Rule{}, err
		}
		return Rule{Expr: expr, Presence: presence}, nil
	}

	if r.Expr == "" {
		if r.Presence != "" {
			return Rule{Presence: presence}, nil
		}
		return Rule{}, fmt.Errorf("rule has neither predefined nor expr")
	}
	return Rule{Expr: r.Expr, Presence: presence}, nil
}

// RuleSet is the three independent comparison blocks resolved for a
// single operation id, or the default fallback (§3). An operation-level
// RuleSet fully replaces the default for any block it defines; there is
// no deep merge (§3 invariant, §9).
type RuleSet struct {
	StatusCode *Rule
	Headers    map[string]Rule
	FieldRules map[string]Rule
}

// Resolved combines default and operation-specific rule sets for a given
// operation id, honoring block-level replacement semantics.
func Resolved(defaults, operation *RawRuleSet, lib *Library) (*RuleSet, error) {
	rs := &RuleSet{}

	statusSrc := defaults.StatusCode
	headersSrc := defaults.Headers
	var fieldsSrc map[string]RawRule
	if defaults.Body != nil {
		fieldsSrc = defaults.Body.FieldRules
	}
	if operation != nil {
		if operation.StatusCode != nil {
			statusSrc = operation.StatusCode
		}
		if operation.Headers != nil {
			headersSrc = operation.Headers
		}
		if operation.Body != nil {
			fieldsSrc = operation.Body.FieldRules
		}
	}

	if statusSrc != nil {
		resolved, err := statusSrc.Resolve(lib)
		if err != nil {
			return nil, fmt.Errorf("status_code rule: %w", err)
		}
		rs.StatusCode = &resolved
	}

	if headersSrc != nil {
		rs.Headers = make(map[string]Rule, len(headersSrc))
		for name, raw := range headersSrc {
			resolved, err := raw.Resolve(lib)
			if err != nil {
				return nil, fmt.Errorf("headers[%s] rule: %w", name, err)
			}
			rs.Headers[name] = resolved
		}
	}

	if fieldsSrc != nil {
		rs.FieldRules = make(map[string]Rule, len(fieldsSrc))
		for path, raw := range fieldsSrc {
			resolved, err := raw.Resolve(lib)
			if err != nil {
				return nil, fmt.Errorf("body.field_rules[%s] rule: %w", path, err)
			}
			rs.FieldRules[path] = resolved
		}
	}

	return rs, nil
}

// RawRuleSet is the as-parsed per-operation (or default) rule block
// (§6 RULESET).
type RawRuleSet struct {
	StatusCode *RawRule   `json:"status_code,omitempty"`
	Headers    map[string]RawRule `json:"headers,omitempty"`
	Body       *RawBody   `json:"body,omitempty"`
}

// RawBody is the `body` block of a RULESET: JSONPath-keyed field rules.
type RawBody struct {
	FieldRules map[string]RawRule `json:"field_rules,omitempty"`
}

// Document is the top-level rule file (§6).
type Document struct {
	Version         string                 `json:"version"`
	DefaultRules    RawRuleSet             `json:"default_rules"`
	OperationRules  map[string]RawRuleSet  `json:"operation_rules,omitempty"`
}

// ResolveOperation resolves the effective RuleSet for operationID,
// falling back to DefaultRules when no operation-specific entry exists.
func (d *Document) ResolveOperation(operationID string, lib *Library) (*RuleSet, error) {
	op, ok := d.OperationRules[operationID]
	if !ok {
		return Resolved(&d.DefaultRules, nil, lib)
	}
	return Resolved(&d.DefaultRules, &op, lib)
}
