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

// Package schemavalidate validates response bodies against the OpenAPI
// schema declared for (operation, status), including additionalProperties
// extra-field detection (§4.5).
package schemavalidate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Result is the outcome of validating one response body.
type Result struct {
	Valid       bool
	Violations  []string
	ExtraFields []string
}

// Validator validates response bodies against an operation's declared
// responses.
type Validator struct {
	responses map[string]*openapi3.Response
}

// NewValidator builds a Validator over the status-keyed response map of
// one operation (as produced by genapi.Operation.Responses).
func NewValidator(responses map[string]*openapi3.Response) *Validator {
	return &Validator{responses: responses}
}

// Validate checks body against the schema resolved for status, with
// wildcard fallback to NXX patterns and finally "default" (§4.5). Both
// "2xx" and "2XX" are accepted on lookup (§9 open question).
func (v *Validator) Validate(status int, body any) Result {
	schema := v.resolveSchema(status)
	if schema == nil {
		return Result{Valid: true}
	}

	var violations []string
	var extra []string
	validateValue(schema, body, "$", &violations, &extra, seen{})

	return Result{
		Valid:       len(violations) == 0 && len(extra) == 0,
		Violations:  violations,
		ExtraFields: extra,
	}
}

func (v *Validator) resolveSchema(status int) *openapi3.Schema {
	candidates := []string{
		strconv.Itoa(status),
		fmt.Sprintf("%dXX", status/100),
		fmt.Sprintf("%dxx", status/100),
		"default",
	}
	for _, key := range candidates {
		resp, ok := v.responses[key]
		if !ok {
			continue
		}
		if mt := resp.Content.Get("application/json"); mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

type seen map[*openapi3.Schema]bool

// validateValue walks schema/value in lockstep, appending JSONPath-ish
// violation/extra-field locations. Composition keywords (allOf/anyOf/
// oneOf) have their properties flattened into the defined-field set for
// extra-field detection (§4.5).
func validateValue(schema *openapi3.Schema, value any, path string, violations, extra *[]string, visited seen) {
	if schema == nil || visited[schema] {
		return
	}
	visited[schema] = true
	defer delete(visited, schema)

	defined, additionalAllowed := flattenObjectShape(schema)

	obj, isObj := value.(map[string]any)
	if !isObj {
		if schema.Type != nil && len(*schema.Type) > 0 && (*schema.Type)[0] == "object" {
			*violations = append(*violations, fmt.Sprintf("%s: expected object, got %T", path, value))
		}
		return
	}

	for _, name := range schema.Required {
		if _, ok := obj[name]; !ok {
			*violations = append(*violations, fmt.Sprintf("%s.%s: required field missing", path, name))
		}
	}

	if len(defined) > 0 && !additionalAllowed {
		for key := range obj {
			if !defined[key] {
				*extra = append(*extra, fmt.Sprintf("%s.%s", path, key))
			}
		}
	}

	for name, propRef := range schema.Properties {
		if propRef == nil || propRef.Value == nil {
			continue
		}
		if v, ok := obj[name]; ok {
			validateValue(propRef.Value, v, path+"."+name, violations, extra, visited)
		}
	}
}

// flattenObjectShape collects every property name defined directly on
// schema or via allOf/anyOf/oneOf, and whether additionalProperties is
// permitted anywhere in that composition. additionalProperties:false at
// any level visible after flattening is most-restrictive-wins: it forbids
// extras for the whole composition even if another branch allows or is
// silent on them (§4.5).
func flattenObjectShape(schema *openapi3.Schema) (defined map[string]bool, additionalAllowed bool) {
	defined = make(map[string]bool)
	additionalAllowed = true

	var collect func(s *openapi3.Schema)
	collect = func(s *openapi3.Schema) {
		if s == nil {
			return
		}
		for name := range s.Properties {
			defined[name] = true
		}
		if explicitlyForbidsAdditional(s) {
			additionalAllowed = false
		}
		for _, sub := range [][]*openapi3.SchemaRef{s.AllOf, s.AnyOf, s.OneOf} {
			for _, ref := range sub {
				if ref != nil && ref.Value != nil {
					collect(ref.Value)
				}
			}
		}
	}
	collect(schema)
	return defined, additionalAllowed
}

// explicitlyForbidsAdditional reports whether schema explicitly sets
// additionalProperties:false. Absent or true is permissive and never
// overrides a false found elsewhere in the composition (§4.5).
func explicitlyForbidsAdditional(schema *openapi3.Schema) bool {
	if schema == nil {
		return false
	}
	return schema.AdditionalProperties.Has != nil && !*schema.AdditionalProperties.Has
}

// Pointer renders a validator-internal "$" . ... path back as an RFC 6901
// JSON pointer for diagnostics.
func Pointer(path string) string {
	trimmed := strings.TrimPrefix(path, "$.")
	trimmed = strings.TrimPrefix(trimmed, "$")
	return "/" + strings.ReplaceAll(trimmed, ".", "/")
}
