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

// Command apidiff-evaluator is the sandboxed CEL expression evaluator
// child process described in §4.1 of the engine spec. It reads
// newline-delimited JSON requests on stdin and writes responses on
// stdout, compiling and caching CEL programs keyed by (expression,
// sorted variable-name set).
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/apidiff/apidiff/internal/celeval"
)

// evalTimeout is the evaluator's own internal budget for one evaluation,
// independent of (and shorter than) the §4.1 caller-side timeout.
const evalTimeout = 5 * time.Second

// maxCacheEntries bounds the compiled-program cache; overflow silently
// drops new entries rather than evicting (§4.1).
const maxCacheEntries = 256

func main() {
	out := bufio.NewWriter(os.Stdout)
	encodeLine(out, celeval.ReadyMessage{Ready: true})
	out.Flush()

	cache := newProgramCache(maxCacheEntries)
	env, err := buildEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "apidiff-evaluator: building CEL env: %v\n", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var req celeval.Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		resp := handle(env, cache, req)
		encodeLine(out, resp)
		out.Flush()
	}
}

func encodeLine(w *bufio.Writer, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	w.Write(data)
	w.WriteByte('\n')
}

func handle(env *cel.Env, cache *programCache, req celeval.Request) celeval.Response {
	varNames := make([]string, 0, len(req.Data))
	for name := range req.Data {
		varNames = append(varNames, name)
	}
	sort.Strings(varNames)

	prg, err := cache.get(env, req.Expr, varNames)
	if err != nil {
		return celeval.Response{ID: req.ID, OK: false, Error: err.Error()}
	}

	done := make(chan celeval.Response, 1)
	go func() {
		activation := make(map[string]any, len(req.Data))
		for k, v := range req.Data {
			activation[k] = v
		}
		out, _, err := prg.Eval(activation)
		if err != nil {
			done <- celeval.Response{ID: req.ID, OK: false, Error: fmt.Sprintf("evaluation error: %v", err)}
			return
		}
		b, ok := out.Value().(bool)
		if !ok {
			done <- celeval.Response{ID: req.ID, OK: false, Error: fmt.Sprintf("expression did not yield a boolean (got %s)", out.Type())}
			return
		}
		done <- celeval.Response{ID: req.ID, OK: true, Result: b}
	}()

	select {
	case resp := <-done:
		return resp
	case <-time.After(evalTimeout):
		return celeval.Response{ID: req.ID, OK: false, Error: "evaluation timed out"}
	}
}

// buildEnv constructs the CEL environment shared by every compiled
// program, with dynamic-typed `a`/`b` bindings plus the extra predicates
// the Rule Library's fundamental templates rely on (§4.2).
func buildEnv() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Math(),
		cel.Variable("a", cel.DynType),
		cel.Variable("b", cel.DynType),
		cel.Function("isUUID",
			cel.Overload("isUUID_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(checkDyn(isUUID)))),
		cel.Function("isISOTimestamp",
			cel.Overload("isISOTimestamp_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(checkDyn(isISOTimestamp)))),
		cel.Function("isISODate",
			cel.Overload("isISODate_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(checkDyn(isISODate)))),
		cel.Function("isURL",
			cel.Overload("isURL_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(checkDyn(isURL)))),
		cel.Function("sameElements",
			cel.Overload("sameElements_dyn_dyn", []*cel.Type{cel.DynType, cel.DynType}, cel.BoolType,
				cel.BinaryBinding(sameElements))),
		cel.Function("sameKeys",
			cel.Overload("sameKeys_dyn_dyn", []*cel.Type{cel.DynType, cel.DynType}, cel.BoolType,
				cel.BinaryBinding(sameKeys))),
	)
}

func checkDyn(f func(string) bool) func(ref.Val) ref.Val {
	return func(v ref.Val) ref.Val {
		s, ok := v.Value().(string)
		if !ok {
			return types.Bool(false)
		}
		return types.Bool(f(s))
	}
}

func sameElements(a, b ref.Val) ref.Val {
	la, lb, ok := toAnySlices(a, b)
	if !ok {
		return types.Bool(false)
	}
	if len(la) != len(lb) {
		return types.Bool(false)
	}
	remaining := append([]any(nil), lb...)
	for _, item := range la {
		found := -1
		for i, cand := range remaining {
			if deepEqualJSON(item, cand) {
				found = i
				break
			}
		}
		if found < 0 {
			return types.Bool(false)
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return types.Bool(true)
}

func sameKeys(a, b ref.Val) ref.Val {
	ma, ok1 := a.Value().(map[string]any)
	mb, ok2 := b.Value().(map[string]any)
	if !ok1 || !ok2 {
		return types.Bool(false)
	}
	if len(ma) != len(mb) {
		return types.Bool(false)
	}
	for k := range ma {
		if _, ok := mb[k]; !ok {
			return types.Bool(false)
		}
	}
	return types.Bool(true)
}

func toAnySlices(a, b ref.Val) ([]any, []any, bool) {
	la, ok1 := a.Value().([]any)
	lb, ok2 := b.Value().([]any)
	return la, lb, ok1 && ok2
}

func deepEqualJSON(a, b any) bool {
	encA, errA := json.Marshal(a)
	encB, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(encA) == string(encB)
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, c := range s {
		if i == 8 || i == 13 || i == 18 || i == 23 {
			if c != '-' {
				return false
			}
			continue
		}
		if !isHex(byte(c)) {
			return false
		}
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isISOTimestamp(s string) bool {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func isURL(s string) bool {
	return strings.Contains(s, "://") && !strings.Contains(s, " ")
}
