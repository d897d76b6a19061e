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

package genapi

import (
	"fmt"
	"math/rand"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// seen tracks $ref cycles during schema-driven synthesis (§4.4.1).
type seen map[*openapi3.SchemaRef]bool

// SynthesizeValue produces a schema-valid positive-mode value for schema,
// following the priority order in §4.4.1: enum, const, format, type,
// falling back to a UUID string. Enums always yield their first member
// and arrays always hold a single element; rng is consulted only when
// synthesizing string values.
func SynthesizeValue(schemaRef *openapi3.SchemaRef, rng *rand.Rand) any {
	return synthesize(schemaRef, rng, seen{})
}

// SynthesizeSchema is SynthesizeValue for a bare (non-ref) schema, as
// produced by kin-openapi for flattened parameter/request-body schemas.
func SynthesizeSchema(schema *openapi3.Schema, rng *rand.Rand) any {
	if schema == nil {
		return uuid.NewString()
	}
	return synthesize(openapi3.NewSchemaRef("", schema), rng, seen{})
}

func synthesize(schemaRef *openapi3.SchemaRef, rng *rand.Rand, visited seen) any {
	if schemaRef == nil || schemaRef.Value == nil {
		return uuid.NewString()
	}
	if visited[schemaRef] {
		// Cycle: return the innermost unresolved form rather than recursing.
		return map[string]any{}
	}
	visited[schemaRef] = true
	defer delete(visited, schemaRef)

	schema := schemaRef.Value

	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}
	if schema.Const != nil {
		return schema.Const
	}
	if schema.Format != "" {
		if v, ok := synthesizeFormat(schema.Format); ok {
			return v
		}
	}

	types := schema.Type
	if types == nil || len(*types) == 0 {
		return uuid.NewString()
	}

	switch (*types)[0] {
	case "integer":
		return synthesizeInteger(schema)
	case "number":
		return 1.0
	case "boolean":
		return true
	case "string":
		return synthesizeString(schema, rng)
	case "array":
		if schema.Items == nil {
			return []any{}
		}
		// Items is a single schema ref in kin-openapi's model, so tuple
		// validation (a list of sub-schemas) never reaches this branch;
		// the array holds one element synthesized from Items.
		return []any{synthesize(schema.Items, rng, visited)}
	case "object":
		obj := make(map[string]any, len(schema.Required))
		for _, name := range schema.Required {
			propRef, ok := schema.Properties[name]
			if !ok {
				obj[name] = uuid.NewString()
				continue
			}
			obj[name] = synthesize(propRef, rng, visited)
		}
		return obj
	default:
		return uuid.NewString()
	}
}

func synthesizeInteger(schema *openapi3.Schema) any {
	v := int64(1)
	if schema.Min != nil && v < int64(*schema.Min) {
		v = int64(*schema.Min) + 1
	}
	if schema.Max != nil && v > int64(*schema.Max) {
		v = int64(*schema.Max)
	}
	return v
}

func synthesizeString(schema *openapi3.Schema, rng *rand.Rand) string {
	if schema.MinLength > 0 && schema.Pattern == "" {
		return fmt.Sprintf("s%d", rng.Intn(1_000_000))
	}
	return uuid.NewString()
}

func synthesizeFormat(format string) (any, bool) {
	switch format {
	case "uuid":
		return uuid.NewString(), true
	case "date-time":
		return "2024-01-01T00:00:00Z", true
	case "date":
		return "2024-01-01", true
	case "uri", "url":
		return "https://example.invalid/resource", true
	case "email":
		return "fuzzer@example.invalid", true
	default:
		return nil, false
	}
}
