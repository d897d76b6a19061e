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

// Package comparator applies a resolved rule set to a pair of responses,
// short-circuiting on the first failing phase: schema validation, status
// code, headers, body (§4.7).
package comparator

import (
	"context"
	"fmt"

	"github.com/apidiff/apidiff/internal/celeval"
	"github.com/apidiff/apidiff/internal/fuzzcase"
	"github.com/apidiff/apidiff/internal/ruleset"
	"github.com/apidiff/apidiff/internal/schemavalidate"
)

// MismatchType names which comparison phase first failed (§4.7).
type MismatchType string

const (
	MismatchNone            MismatchType = "none"
	MismatchSchemaViolation MismatchType = "schema_violation"
	MismatchStatusCode      MismatchType = "status_code"
	MismatchHeaders         MismatchType = "headers"
	MismatchBody            MismatchType = "body"
)

// Difference is one recorded divergence within a phase.
type Difference struct {
	Path         string `json:"path"`
	TargetAValue any    `json:"target_a_value,omitempty"`
	TargetBValue any    `json:"target_b_value,omitempty"`
	Rule         string `json:"rule,omitempty"`
}

// PhaseResult is the outcome of one comparison phase.
type PhaseResult struct {
	Match       bool         `json:"match"`
	Differences []Difference `json:"differences"`
}

// Result is the comparator's top-level verdict. If Match is true,
// MismatchType is MismatchNone and every phase's Differences is empty; if
// false, exactly one MismatchType is set (§4.7 invariants).
type Result struct {
	Match        bool         `json:"match"`
	MismatchType MismatchType `json:"mismatch_type"`
	Summary      string       `json:"summary"`
	Schema       *PhaseResult `json:"schema,omitempty"`
	StatusCode   *PhaseResult `json:"status_code,omitempty"`
	Headers      *PhaseResult `json:"headers,omitempty"`
	Body         *PhaseResult `json:"body,omitempty"`
}

// Comparator evaluates a resolved RuleSet against a pair of responses,
// consulting the rule library, expression evaluator, and schema
// validator as needed.
type Comparator struct {
	doc        *ruleset.Document
	library    *ruleset.Library
	cel        *celeval.Client
	validators map[string]*schemavalidate.Validator
}

// New builds a Comparator. validators may be nil or incomplete: an
// operation id absent from it skips phase 0 entirely (§4.5 "when spec
// available").
func New(doc *ruleset.Document, library *ruleset.Library, cel *celeval.Client, validators map[string]*schemavalidate.Validator) *Comparator {
	return &Comparator{doc: doc, library: library, cel: cel, validators: validators}
}

// Compare runs every phase for operationID against respA/respB, stopping
// at the first failing one (§4.7).
func (c *Comparator) Compare(ctx context.Context, operationID string, respA, respB *fuzzcase.ResponseCase) (*Result, error) {
	if respA.IsInfraError() || respB.IsInfraError() {
		return &Result{Match: true, MismatchType: MismatchNone, Summary: "infrastructure skip: transport error"}, nil
	}

	rules, err := c.doc.ResolveOperation(operationID, c.library)
	if err != nil {
		return nil, fmt.Errorf("resolving rules for %s: %w", operationID, err)
	}

	if validator, ok := c.validators[operationID]; ok {
		if phase := validateSchemaPhase(validator, respA, respB); phase != nil {
			return &Result{
				Match:        false,
				MismatchType: MismatchSchemaViolation,
				Summary:      "response failed schema validation",
				Schema:       phase,
			}, nil
		}
	}

	classA, classB := respA.StatusCode/100, respB.StatusCode/100
	if classA == 5 && classB == 5 {
		return &Result{Match: true, MismatchType: MismatchNone, Summary: "infrastructure skip: both targets returned 5xx"}, nil
	}

	statusPhase, err := c.compareStatus(ctx, rules.StatusCode, respA.StatusCode, respB.StatusCode)
	if err != nil {
		return nil, err
	}
	if !statusPhase.Match {
		return &Result{Match: false, MismatchType: MismatchStatusCode, Summary: "status code mismatch", StatusCode: statusPhase}, nil
	}

	headerPhase, err := c.compareHeaders(ctx, rules.Headers, respA.Headers, respB.Headers)
	if err != nil {
		return nil, err
	}
	if !headerPhase.Match {
		return &Result{Match: false, MismatchType: MismatchHeaders, Summary: "header mismatch", StatusCode: statusPhase, Headers: headerPhase}, nil
	}

	if classA == 2 && classB == 2 && !respA.Body.HasBinary && !respB.Body.HasBinary {
		bodyPhase, err := c.compareBody(ctx, rules.FieldRules, respA.Body.Structured, respB.Body.Structured)
		if err != nil {
			return nil, err
		}
		if !bodyPhase.Match {
			return &Result{Match: false, MismatchType: MismatchBody, Summary: "body mismatch", StatusCode: statusPhase, Headers: headerPhase, Body: bodyPhase}, nil
		}
		return &Result{Match: true, MismatchType: MismatchNone, Summary: "match", StatusCode: statusPhase, Headers: headerPhase, Body: bodyPhase}, nil
	}

	return &Result{Match: true, MismatchType: MismatchNone, Summary: "match", StatusCode: statusPhase, Headers: headerPhase}, nil
}

func validateSchemaPhase(v *schemavalidate.Validator, respA, respB *fuzzcase.ResponseCase) *PhaseResult {
	var diffs []Difference

	ra := v.Validate(respA.StatusCode, respA.Body.Structured)
	if !ra.Valid {
		for _, msg := range ra.Violations {
			diffs = append(diffs, Difference{Path: msg, Rule: "schema_violation", TargetAValue: "violation"})
		}
		for _, path := range ra.ExtraFields {
			diffs = append(diffs, Difference{Path: path, Rule: "schema_violation: additionalProperties", TargetAValue: "extra field"})
		}
	}

	rb := v.Validate(respB.StatusCode, respB.Body.Structured)
	if !rb.Valid {
		for _, msg := range rb.Violations {
			diffs = append(diffs, Difference{Path: msg, Rule: "schema_violation", TargetBValue: "violation"})
		}
		for _, path := range rb.ExtraFields {
			diffs = append(diffs, Difference{Path: path, Rule: "schema_violation: additionalProperties", TargetBValue: "extra field"})
		}
	}

	if len(diffs) == 0 {
		return nil
	}
	return &PhaseResult{Match: false, Differences: diffs}
}
