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

import (
	"sort"
	"strings"
)

// DeriveLinkFields returns the JSON-pointer body paths and header
// references a chain's link expressions touch. Used both by the
// generator (to know what to extract during discovery) and by the
// replay pipeline, which has no OpenAPI spec at hand (§4.4 "Derive link
// fields", §4.9).
func DeriveLinkFields(chain *ChainCase) (bodyPointers []string, headerRefs []string) {
	seenBody := make(map[string]bool)
	seenHeader := make(map[string]bool)
	for _, step := range chain.Steps {
		for _, expr := range step.LinkSource.Expressions() {
			if ptr, ok := strings.CutPrefix(expr, "$response.body#"); ok {
				if !seenBody[ptr] {
					seenBody[ptr] = true
					bodyPointers = append(bodyPointers, ptr)
				}
				continue
			}
			if rest, ok := strings.CutPrefix(expr, "$response.header."); ok {
				name := rest
				if idx := strings.IndexByte(rest, '['); idx >= 0 {
					name = rest[:idx]
				}
				if !seenHeader[name] {
					seenHeader[name] = true
					headerRefs = append(headerRefs, name)
				}
			}
		}
	}
	sort.Strings(bodyPointers)
	sort.Strings(headerRefs)
	return bodyPointers, headerRefs
}
