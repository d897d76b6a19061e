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
	"github.com/ohler55/ojg/jp"

	"github.com/apidiff/apidiff/internal/apijson"
)

// redactedSentinel replaces any value matched by a redaction JSONPath
// before serialization (§4.8 "Secret redaction").
const redactedSentinel = "***REDACTED***"

// redactBody returns a deep copy of body with every JSONPath in
// redactFields replaced by the sentinel. Paths that fail to parse or
// find no match are skipped silently: redaction is best-effort and must
// never fail the artifact write.
func redactBody(body any, redactFields []string) any {
	if body == nil || len(redactFields) == 0 {
		return body
	}

	copyOf := deepCopyJSON(body)
	for _, path := range redactFields {
		expr, err := jp.ParseString(path)
		if err != nil {
			continue
		}
		if len(expr.Get(copyOf)) == 0 {
			continue
		}
		_ = expr.Set(copyOf, redactedSentinel)
	}
	return copyOf
}

// deepCopyJSON round-trips v through JSON to obtain an independent copy,
// since redaction must not mutate the response the comparator already
// consumed.
func deepCopyJSON(v any) any {
	raw, err := apijson.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := apijson.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
