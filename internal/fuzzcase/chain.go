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

package fuzzcase

import "sort"

// LinkSource records which prior chain step supplied a step's bound
// parameter values (§3). Exactly one of Field or Parameters is set,
// matching the single-parameter / multiple-parameter link shapes.
type LinkSource struct {
	Step int `json:"step"`

	// Field is used for the single-parameter shape:
	// {step, field: expression}.
	Field string `json:"field,omitempty"`

	// Parameters is used for the multiple-parameter shape:
	// {step, parameters: {name: expression}}.
	Parameters map[string]string `json:"parameters,omitempty"`

	// ParamName and ParamIn record which request field Field's resolved
	// value is bound into ("path", "query", or "header"). Carried
	// alongside the documented shapes so the executor can bind a link
	// value without consulting the OpenAPI document at replay time.
	ParamName string `json:"param_name,omitempty"`
	ParamIn   string `json:"param_in,omitempty"`
}

// IsEntryPoint reports whether a step with this LinkSource has no
// upstream dependency (nil LinkSource means entry point, per §3).
func (ls *LinkSource) IsEntryPoint() bool { return ls == nil }

// Expressions returns every link expression this source references,
// in a stable order (Field first if set, then Parameters by name).
func (ls *LinkSource) Expressions() []string {
	if ls == nil {
		return nil
	}
	if ls.Field != "" {
		return []string{ls.Field}
	}
	names := make([]string, 0, len(ls.Parameters))
	for name := range ls.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	exprs := make([]string, 0, len(names))
	for _, name := range names {
		exprs = append(exprs, ls.Parameters[name])
	}
	return exprs
}

// ChainStep is one step of a ChainCase template: a request template plus
// an optional record of where its bound values come from.
type ChainStep struct {
	Request    *RequestCase `json:"request"`
	LinkSource *LinkSource  `json:"link_source,omitempty"`
}

// ChainCase is an ordered sequence of steps derived from explicit OpenAPI
// links (§3, §4.4). It is reused, unmutated, across targets and replays.
type ChainCase struct {
	ID    string      `json:"id"`
	Steps []ChainStep `json:"steps"`
}

// OperationSignature returns the ordered operation ids of the chain,
// used to deduplicate chains discovered during seed walking (§4.4 step 2).
func (c *ChainCase) OperationSignature() []string {
	sig := make([]string, len(c.Steps))
	for i, step := range c.Steps {
		sig[i] = step.Request.OperationID
	}
	return sig
}

// ChainStepExecution is one step of a per-target chain run: the bound
// request actually sent, the response received, and the values extracted
// from that response for downstream steps.
type ChainStepExecution struct {
	Request         *RequestCase    `json:"request"`
	Response        *ResponseCase   `json:"response"`
	ExtractedValues map[string]any  `json:"extracted_values,omitempty"`
}

// ChainExecution is the per-target record of running a ChainCase (§3).
// Target A and Target B each get an independent ChainExecution; they are
// never folded into a single record (§9 "Chain template vs execution
// separation").
type ChainExecution struct {
	ChainID     string               `json:"chain_id"`
	Steps       []ChainStepExecution `json:"steps"`
	Interrupted bool                 `json:"interrupted"`
}

// StoppedAtStep returns the index of the first step whose response did
// not pass comparison (for use by the first-mismatch-stops-the-chain rule
// in §4.6), or -1 if every step executed.
func (e *ChainExecution) StoppedAtStep(totalPlanned int) int {
	if len(e.Steps) < totalPlanned {
		return len(e.Steps) - 1
	}
	return -1
}
