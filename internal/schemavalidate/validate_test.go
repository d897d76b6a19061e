package schemavalidate

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

func objectSchema(required []string, properties map[string]*openapi3.Schema, additionalAllowed *bool) *openapi3.Schema {
	props := make(openapi3.Schemas, len(properties))
	for name, s := range properties {
		props[name] = &openapi3.SchemaRef{Value: s}
	}
	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Required:   required,
		Properties: props,
	}
	if additionalAllowed != nil {
		schema.AdditionalProperties = openapi3.AdditionalProperties{Has: additionalAllowed}
	}
	return schema
}

func responseWithSchema(schema *openapi3.Schema) *openapi3.Response {
	return &openapi3.Response{
		Content: openapi3.Content{
			"application/json": &openapi3.MediaType{Schema: &openapi3.SchemaRef{Value: schema}},
		},
	}
}

func TestValidator_MissingRequiredField(t *testing.T) {
	falseVal := false
	schema := objectSchema([]string{"id"}, map[string]*openapi3.Schema{
		"id": {Type: &openapi3.Types{"string"}},
	}, &falseVal)

	v := NewValidator(map[string]*openapi3.Response{"200": responseWithSchema(schema)})

	result := v.Validate(200, map[string]any{})
	require.False(t, result.Valid)
	require.Contains(t, result.Violations[0], "id")
}

func TestValidator_ExtraFieldDetected_WhenAdditionalPropertiesFalse(t *testing.T) {
	falseVal := false
	schema := objectSchema(nil, map[string]*openapi3.Schema{
		"id": {Type: &openapi3.Types{"string"}},
	}, &falseVal)

	v := NewValidator(map[string]*openapi3.Response{"200": responseWithSchema(schema)})

	result := v.Validate(200, map[string]any{"id": "u-1", "secret": "leaked"})
	require.False(t, result.Valid)
	require.Equal(t, []string{"$.secret"}, result.ExtraFields)
}

func TestValidator_ExtraFieldAllowed_WhenAdditionalPropertiesUnset(t *testing.T) {
	schema := objectSchema(nil, map[string]*openapi3.Schema{
		"id": {Type: &openapi3.Types{"string"}},
	}, nil)

	v := NewValidator(map[string]*openapi3.Response{"200": responseWithSchema(schema)})

	result := v.Validate(200, map[string]any{"id": "u-1", "extra": "field"})
	require.True(t, result.Valid)
}

func TestValidator_ExtraFieldDetected_AllOfSiblingSilentOnAdditionalProperties(t *testing.T) {
	falseVal := false
	schema := objectSchema(nil, map[string]*openapi3.Schema{
		"id": {Type: &openapi3.Types{"string"}},
	}, &falseVal)
	// A composed allOf branch that says nothing about additionalProperties
	// must not relax the top-level false (most-restrictive-wins, §4.5).
	schema.AllOf = openapi3.SchemaRefs{
		{Value: objectSchema(nil, map[string]*openapi3.Schema{"x": {Type: &openapi3.Types{"string"}}}, nil)},
	}

	v := NewValidator(map[string]*openapi3.Response{"200": responseWithSchema(schema)})

	result := v.Validate(200, map[string]any{"id": "u-1", "x": "v", "secret": "leaked"})
	require.False(t, result.Valid)
	require.Equal(t, []string{"$.secret"}, result.ExtraFields)
}

func TestValidator_StatusFallsBackToWildcardThenDefault(t *testing.T) {
	falseVal := false
	wildcardSchema := objectSchema([]string{"id"}, map[string]*openapi3.Schema{
		"id": {Type: &openapi3.Types{"string"}},
	}, &falseVal)

	v := NewValidator(map[string]*openapi3.Response{"2XX": responseWithSchema(wildcardSchema)})

	result := v.Validate(201, map[string]any{"id": "u-1"})
	require.True(t, result.Valid)

	resultMissing := v.Validate(201, map[string]any{})
	require.False(t, resultMissing.Valid)
}

func TestValidator_NoSchemaForStatus_IsValid(t *testing.T) {
	v := NewValidator(map[string]*openapi3.Response{})
	result := v.Validate(404, map[string]any{"error": "not found"})
	require.True(t, result.Valid)
}

func TestValidator_NestedObjectValidation(t *testing.T) {
	falseVal := false
	inner := objectSchema([]string{"street"}, map[string]*openapi3.Schema{
		"street": {Type: &openapi3.Types{"string"}},
	}, &falseVal)
	outer := objectSchema(nil, map[string]*openapi3.Schema{
		"address": inner,
	}, nil)

	v := NewValidator(map[string]*openapi3.Response{"200": responseWithSchema(outer)})

	result := v.Validate(200, map[string]any{"address": map[string]any{}})
	require.False(t, result.Valid)
	require.Contains(t, result.Violations[0], "address.street")
}

func TestPointer_ConvertsDotPathToJSONPointer(t *testing.T) {
	require.Equal(t, "/address/street", Pointer("$.address.street"))
	require.Equal(t, "/", Pointer("$"))
}
