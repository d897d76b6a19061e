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

// Package artifact writes mismatch bundles and run summaries to disk
// (§4.8). Every file is written via write-then-rename to guarantee no
// partial file is ever visible to a concurrent reader or an interrupted
// run's own next start.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apidiff/apidiff/internal/apijson"
	"github.com/apidiff/apidiff/internal/comparator"
	"github.com/apidiff/apidiff/internal/fuzzcase"
)

// Metadata identifies the run that produced a bundle (§4.8).
type Metadata struct {
	ToolVersion    string `json:"tool_version"`
	Timestamp      string `json:"timestamp"`
	Seed           int64  `json:"seed"`
	TargetAName    string `json:"target_a_name"`
	TargetABaseURL string `json:"target_a_base_url"`
	TargetBName    string `json:"target_b_name"`
	TargetBBaseURL string `json:"target_b_base_url"`
	RuleFile       string `json:"rule_file"`
}

// Writer persists mismatch bundles under a root mismatches directory.
type Writer struct {
	root         string
	redactFields []string
	meta         Metadata
}

// NewWriter builds a Writer rooted at outDir/mismatches, creating the
// directory if necessary.
func NewWriter(outDir string, redactFields []string, meta Metadata) (*Writer, error) {
	root := filepath.Join(outDir, "mismatches")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating mismatch directory: %w", err)
	}
	return &Writer{root: root, redactFields: redactFields, meta: meta}, nil
}

type requestResponse struct {
	Request  *fuzzcase.RequestCase  `json:"request"`
	Response *redactedResponse      `json:"response"`
}

type redactedResponse struct {
	StatusCode int            `json:"status_code"`
	Headers    map[string]any `json:"headers,omitempty"`
	Body       any            `json:"body,omitempty"`
	ElapsedMS  int64          `json:"elapsed_ms"`
	Error      string         `json:"error,omitempty"`
}

func (w *Writer) redact(resp *fuzzcase.ResponseCase) *redactedResponse {
	if resp == nil {
		return nil
	}
	var headers map[string]any
	if resp.Headers != nil {
		headers = make(map[string]any)
		for _, k := range resp.Headers.Keys() {
			values, _ := resp.Headers.Values(k)
			headers[k] = values
		}
	}
	return &redactedResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       redactBody(resp.Body.Structured, w.redactFields),
		ElapsedMS:  resp.ElapsedMS,
		Error:      resp.Error,
	}
}

// WriteSingleMismatch persists a single-request mismatch bundle and
// returns its directory path.
func (w *Writer) WriteSingleMismatch(
	operationID, caseID string,
	req *fuzzcase.RequestCase,
	respA, respB *fuzzcase.ResponseCase,
	diff *comparator.Result,
	now time.Time,
) (string, error) {
	dir, err := reserveBundleDir(w.root, now, operationID, caseID)
	if err != nil {
		return "", err
	}

	if err := writeJSONFile(filepath.Join(dir, "case.json"), req); err != nil {
		return "", err
	}
	if err := writeJSONFile(filepath.Join(dir, "target_a.json"), requestResponse{Request: req, Response: w.redact(respA)}); err != nil {
		return "", err
	}
	if err := writeJSONFile(filepath.Join(dir, "target_b.json"), requestResponse{Request: req, Response: w.redact(respB)}); err != nil {
		return "", err
	}
	if err := writeJSONFile(filepath.Join(dir, "diff.json"), diffEnvelope{Type: "single", Result: diff}); err != nil {
		return "", err
	}
	meta := w.meta
	meta.Timestamp = now.UTC().Format(time.RFC3339Nano)
	if err := writeJSONFile(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return "", err
	}

	return dir, nil
}

// diffEnvelope wraps a comparator.Result with the bundle kind, so the
// bundle loader can classify SINGLE vs CHAIN from diff.json.type without
// re-deriving it from file presence (§4.9 "load_bundle").
type diffEnvelope struct {
	Type string `json:"type"`
	*comparator.Result
}

// WriteChainMismatch persists a chain mismatch bundle: target_a.json /
// target_b.json hold the full ChainExecution instead of a single
// request/response pair.
func (w *Writer) WriteChainMismatch(
	operationID, caseID string,
	chain *fuzzcase.ChainCase,
	execA, execB *fuzzcase.ChainExecution,
	diff *comparator.Result,
	now time.Time,
) (string, error) {
	dir, err := reserveBundleDir(w.root, now, operationID, caseID)
	if err != nil {
		return "", err
	}

	if err := writeJSONFile(filepath.Join(dir, "chain.json"), chain); err != nil {
		return "", err
	}
	if err := writeJSONFile(filepath.Join(dir, "target_a.json"), w.redactExecution(execA)); err != nil {
		return "", err
	}
	if err := writeJSONFile(filepath.Join(dir, "target_b.json"), w.redactExecution(execB)); err != nil {
		return "", err
	}
	if err := writeJSONFile(filepath.Join(dir, "diff.json"), diffEnvelope{Type: "chain", Result: diff}); err != nil {
		return "", err
	}
	meta := w.meta
	meta.Timestamp = now.UTC().Format(time.RFC3339Nano)
	if err := writeJSONFile(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return "", err
	}

	return dir, nil
}

type redactedStep struct {
	Request         *fuzzcase.RequestCase `json:"request"`
	Response        *redactedResponse     `json:"response"`
	ExtractedValues map[string]any        `json:"extracted_values,omitempty"`
}

type redactedExecution struct {
	ChainID     string         `json:"chain_id"`
	Steps       []redactedStep `json:"steps"`
	Interrupted bool           `json:"interrupted"`
}

func (w *Writer) redactExecution(exec *fuzzcase.ChainExecution) redactedExecution {
	out := redactedExecution{ChainID: exec.ChainID, Interrupted: exec.Interrupted}
	for _, step := range exec.Steps {
		out.Steps = append(out.Steps, redactedStep{
			Request:         step.Request,
			Response:        w.redact(step.Response),
			ExtractedValues: step.ExtractedValues,
		})
	}
	return out
}

// writeJSONFile marshals v and writes it via a temp-file-then-rename, so
// an interrupted write never leaves a partial file at the final path
// (§4.8, §5 "Artifact directory").
func writeJSONFile(path string, v any) error {
	data, err := apijson.MarshalIndent(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}
