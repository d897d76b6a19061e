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

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/apidiff/apidiff/internal/logx"
)

// newLogger builds a zap logger from the --log-style/--log-level flags
// (§6, §7): terminal, json, logfmt, or noop.
func newLogger(style, level string) (*zap.Logger, error) {
	return logx.New(&logx.Config{Style: logx.Style(style), Level: level})
}

// resolveEvaluatorPath locates the apidiff-evaluator subprocess binary:
// explicit flag, then a binary named apidiff-evaluator next to this
// executable, then PATH lookup. The evaluator is a separate program by
// design (§4.1), so apidiff never links cel-go evaluation into its own
// process image.
func resolveEvaluatorPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "apidiff-evaluator")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath("apidiff-evaluator"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("could not locate apidiff-evaluator binary: pass --evaluator-path, place it next to apidiff, or put it on PATH")
}
