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
	"fmt"
	"strconv"
	"strings"

	"github.com/apidiff/apidiff/internal/fuzzcase"
)

// extractValues walks resp's body at every declared JSON pointer and
// captures every declared response header into a per-target variable
// environment (§4.6 "Variable extraction"). Headers are stored under a
// lowercased compound key header/NAME with the full multi-value list,
// plus header/NAME/INDEX per referenced index.
func extractValues(resp *fuzzcase.ResponseCase, bodyPointers, headerRefs []string) map[string]any {
	env := make(map[string]any)
	if resp == nil {
		return env
	}

	for _, ptr := range bodyPointers {
		if v, ok := walkPointer(resp.Body.Structured, ptr); ok {
			env["body#"+ptr] = v
		}
	}

	if resp.Headers != nil {
		for _, name := range headerRefs {
			values, ok := resp.Headers.Values(name)
			if !ok {
				continue
			}
			key := "header/" + strings.ToLower(name)
			env[key] = values
			for i, v := range values {
				env[fmt.Sprintf("%s/%d", key, i)] = v
			}
		}
	}

	return env
}

// walkPointer resolves an RFC 6901 JSON pointer against root, decoding
// "~1" to "/" and "~0" to "~" in each token. An empty pointer resolves to
// root itself (§4.6).
func walkPointer(root any, pointer string) (any, bool) {
	if pointer == "" {
		return root, true
	}

	cur := root
	for _, raw := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		tok := decodePointerToken(raw)
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func decodePointerToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")
	return tok
}

// resolveExpression looks up a link expression's value in a target's
// accumulated environment, returning the string form suitable for
// binding into a path/query/header parameter.
func resolveExpression(expr string, env map[string]any) (string, bool) {
	if ptr, ok := strings.CutPrefix(expr, "$response.body#"); ok {
		v, ok := env["body#"+ptr]
		if !ok {
			return "", false
		}
		return formatValue(v), true
	}

	if rest, ok := strings.CutPrefix(expr, "$response.header."); ok {
		name := rest
		index := ""
		if i := strings.IndexByte(rest, '['); i >= 0 {
			name = rest[:i]
			index = strings.TrimSuffix(rest[i+1:], "]")
		}
		key := "header/" + strings.ToLower(name)
		if index != "" {
			key += "/" + index
		}
		v, ok := env[key]
		if !ok && index != "" {
			if values, isList := env["header/"+strings.ToLower(name)].([]string); isList {
				if i, err := strconv.Atoi(index); err == nil && i >= 0 && i < len(values) {
					v, ok = values[i], true
				}
			}
		}
		if !ok {
			return "", false
		}
		if values, ok := v.([]string); ok {
			if len(values) == 0 {
				return "", false
			}
			return values[0], true
		}
		return formatValue(v), true
	}

	return "", false
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
