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

package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// bundleDirName computes the bundle directory name: a microsecond-precise
// UTC timestamp, the sanitized operation id, and the first 8 hex
// characters of the case id (§4.8).
func bundleDirName(ts time.Time, operationID, caseID string) string {
	stamp := ts.UTC().Format("20060102T150405.000000Z")
	caseTag := caseID
	if len(caseTag) > 8 {
		caseTag = caseTag[:8]
	}
	return fmt.Sprintf("%s__%s__%s", stamp, sanitizeComponent(operationID), caseTag)
}

// sanitizeComponent makes s safe as a single path component: path
// separators are replaced, and bare "." / ".." are rejected outright
// (§4.8 "sanitizer for filename components").
func sanitizeComponent(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, string(os.PathSeparator), "_")
	if s == "" || s == "." || s == ".." {
		return "op"
	}
	return s
}

// reserveBundleDir creates a fresh, non-colliding bundle directory under
// root named per bundleDirName, appending a numeric suffix on collision
// (§4.8).
func reserveBundleDir(root string, ts time.Time, operationID, caseID string) (string, error) {
	base := bundleDirName(ts, operationID, caseID)
	candidate := filepath.Join(root, base)

	for suffix := 0; ; suffix++ {
		path := candidate
		if suffix > 0 {
			path = fmt.Sprintf("%s-%d", candidate, suffix)
		}
		if err := os.Mkdir(path, 0o755); err == nil {
			return path, nil
		} else if !os.IsExist(err) {
			return "", fmt.Errorf("creating bundle directory %s: %w", path, err)
		}
	}
}
