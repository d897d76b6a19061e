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

package bundle

import (
	"context"
	"fmt"
	"sort"

	"github.com/apidiff/apidiff/internal/artifact"
	"github.com/apidiff/apidiff/internal/comparator"
	"github.com/apidiff/apidiff/internal/executor"
	"github.com/apidiff/apidiff/internal/fuzzcase"
)

// Replay re-executes b against exec and re-compares under cmp's current
// rules, classifying the outcome relative to b.Diff (§4.10 "replay_bundle").
func Replay(ctx context.Context, exec *executor.Executor, cmp *comparator.Comparator, b *Bundle) (artifact.ReplayClassification, *comparator.Result, error) {
	switch b.Kind {
	case KindChain:
		return replayChain(ctx, exec, cmp, b)
	default:
		return replaySingle(ctx, exec, cmp, b)
	}
}

func replaySingle(ctx context.Context, exec *executor.Executor, cmp *comparator.Comparator, b *Bundle) (artifact.ReplayClassification, *comparator.Result, error) {
	if b.Case == nil {
		return artifact.ReplayError, nil, fmt.Errorf("bundle %s: no request case to replay", b.Path)
	}

	respA, respB := exec.Execute(ctx, b.Case)
	result, err := cmp.Compare(ctx, b.Case.OperationID, respA, respB)
	if err != nil {
		return artifact.ReplayError, nil, fmt.Errorf("bundle %s: re-comparison failed: %w", b.Path, err)
	}

	return classify(b.Diff, result), result, nil
}

// replayChain re-runs every step of the chain against both targets,
// re-comparing step by step and stopping at the first mismatch, matching
// the original explore-time semantics (§4.6, §4.7).
func replayChain(ctx context.Context, exec *executor.Executor, cmp *comparator.Comparator, b *Bundle) (artifact.ReplayClassification, *comparator.Result, error) {
	if b.Chain == nil {
		return artifact.ReplayError, nil, fmt.Errorf("bundle %s: no chain to replay", b.Path)
	}

	stepIdx := 0
	var last *comparator.Result
	var compareErr error

	exec.ExecuteChain(ctx, b.Chain, func(respA, respB *fuzzcase.ResponseCase) bool {
		if stepIdx >= len(b.Chain.Steps) {
			stepIdx++
			return false
		}
		operationID := b.Chain.Steps[stepIdx].Request.OperationID
		stepIdx++

		result, err := cmp.Compare(ctx, operationID, respA, respB)
		if err != nil {
			compareErr = fmt.Errorf("bundle %s: re-comparison failed at step %d: %w", b.Path, stepIdx-1, err)
			return false
		}
		last = result
		return result.Match
	})

	if compareErr != nil {
		return artifact.ReplayError, nil, compareErr
	}
	return classify(b.Diff, last), last, nil
}

func classify(original, fresh *comparator.Result) artifact.ReplayClassification {
	if fresh == nil {
		return artifact.ReplayError
	}
	if fresh.Match {
		return artifact.ReplayFixed
	}
	if original == nil {
		return artifact.ReplayDifferentMismatch
	}
	if original.MismatchType != fresh.MismatchType {
		return artifact.ReplayDifferentMismatch
	}
	if original.MismatchType == comparator.MismatchBody {
		if samePaths(diffPaths(original.Body), diffPaths(fresh.Body)) {
			return artifact.ReplayStillMismatch
		}
		return artifact.ReplayDifferentMismatch
	}
	return artifact.ReplayStillMismatch
}

func diffPaths(phase *comparator.PhaseResult) []string {
	if phase == nil {
		return nil
	}
	paths := make([]string, 0, len(phase.Differences))
	for _, d := range phase.Differences {
		paths = append(paths, d.Path)
	}
	sort.Strings(paths)
	return paths
}

func samePaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
