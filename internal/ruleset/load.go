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

package ruleset

import (
	"fmt"
	"os"

	"github.com/apidiff/apidiff/internal/apijson"
)

// LoadDocument reads and parses the JSON rule file at path (§6 "Rule
// file"). It does not resolve templates; call Document.ResolveOperation
// per operation once a Library is available.
func LoadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}

	var doc Document
	if err := apijson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing rule file %s: %w", path, err)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("rule file %s: missing version", path)
	}
	return &doc, nil
}
