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

package executor

import (
	"context"
	"strings"

	"github.com/apidiff/apidiff/internal/fuzzcase"
)

// ExecuteChain runs chain against both targets, maintaining two parallel
// variable environments extracted from each target's own responses
// (§4.6 "execute_chain"). onStep is invoked after every step's pair of
// responses; returning false stops the chain early (the first-mismatch
// rule of §4.7).
func (e *Executor) ExecuteChain(
	ctx context.Context,
	chain *fuzzcase.ChainCase,
	onStep func(respA, respB *fuzzcase.ResponseCase) bool,
) (*fuzzcase.ChainExecution, *fuzzcase.ChainExecution) {
	bodyPointers, headerRefs := fuzzcase.DeriveLinkFields(chain)

	envA := make(map[string]any)
	envB := make(map[string]any)
	execA := &fuzzcase.ChainExecution{ChainID: chain.ID}
	execB := &fuzzcase.ChainExecution{ChainID: chain.ID}

	for _, step := range chain.Steps {
		if ctx.Err() != nil {
			execA.Interrupted = true
			execB.Interrupted = true
			return execA, execB
		}

		reqA := step.Request.Clone()
		reqB := step.Request.Clone()
		bindLinkParam(reqA, step.LinkSource, envA)
		bindLinkParam(reqB, step.LinkSource, envB)

		timeout := e.timeoutFor(reqA.OperationID)

		e.limiter.wait()
		respA := e.send(ctx, e.targetA, reqA, timeout)
		e.limiter.wait()
		respB := e.send(ctx, e.targetB, reqB, timeout)

		extractedA := extractValues(respA, bodyPointers, headerRefs)
		extractedB := extractValues(respB, bodyPointers, headerRefs)
		execA.Steps = append(execA.Steps, fuzzcase.ChainStepExecution{Request: reqA, Response: respA, ExtractedValues: extractedA})
		execB.Steps = append(execB.Steps, fuzzcase.ChainStepExecution{Request: reqB, Response: respB, ExtractedValues: extractedB})

		for k, v := range extractedA {
			envA[k] = v
		}
		for k, v := range extractedB {
			envB[k] = v
		}

		if !onStep(respA, respB) {
			break
		}
	}

	return execA, execB
}

// bindLinkParam resolves ls's expression(s) against env and binds the
// result into req, producing the fully bound per-target request for this
// step (§4.6 step (a)/(b)). Unresolvable expressions leave the parameter
// unbound; buildRequest then surfaces a missing-path-parameter error,
// which send turns into a captured transport error for that step.
func bindLinkParam(req *fuzzcase.RequestCase, ls *fuzzcase.LinkSource, env map[string]any) {
	if ls == nil {
		return
	}

	if ls.Field != "" && ls.ParamName != "" {
		if value, ok := resolveExpression(ls.Field, env); ok {
			bindParam(req, ls.ParamName, ls.ParamIn, value)
		}
	}

	for name, expr := range ls.Parameters {
		value, ok := resolveExpression(expr, env)
		if !ok {
			continue
		}
		in := "query"
		if strings.Contains(req.PathTemplate, "{"+name+"}") {
			in = "path"
		}
		bindParam(req, name, in, value)
	}
}

func bindParam(req *fuzzcase.RequestCase, name, in, value string) {
	switch in {
	case "path":
		req.SetPathParam(name, value)
	case "header":
		req.Headers.Set(name, value)
	default:
		req.Query.Set(name, value)
	}
}
