package genapi

import (
	"math/rand"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeValue_EnumTakesPriority(t *testing.T) {
	schema := &openapi3.Schema{
		Type: &openapi3.Types{"string"},
		Enum: []any{"active", "inactive"},
	}
	v := SynthesizeValue(openapi3.NewSchemaRef("", schema), rand.New(rand.NewSource(1)))
	require.Equal(t, "active", v)
}

func TestSynthesizeValue_FormatUUID(t *testing.T) {
	schema := &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}
	v := SynthesizeValue(openapi3.NewSchemaRef("", schema), rand.New(rand.NewSource(1)))
	s, ok := v.(string)
	require.True(t, ok)
	require.Len(t, s, 36)
}

func TestSynthesizeValue_RequiredObjectFields(t *testing.T) {
	schema := &openapi3.Schema{
		Type:     &openapi3.Types{"object"},
		Required: []string{"id"},
		Properties: openapi3.Schemas{
			"id": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}},
		},
	}
	v := SynthesizeValue(openapi3.NewSchemaRef("", schema), rand.New(rand.NewSource(1)))
	obj, ok := v.(map[string]any)
	require.True(t, ok)
	require.Contains(t, obj, "id")
}

func TestSynthesizeValue_CycleDetection(t *testing.T) {
	schema := &openapi3.Schema{Type: &openapi3.Types{"object"}, Required: []string{"self"}}
	ref := openapi3.NewSchemaRef("", schema)
	schema.Properties = openapi3.Schemas{"self": ref}

	v := SynthesizeValue(ref, rand.New(rand.NewSource(1)))
	obj, ok := v.(map[string]any)
	require.True(t, ok)
	// The cyclic property resolves to an empty placeholder, not infinite recursion.
	require.Equal(t, map[string]any{}, obj["self"])
}

func TestSynthesizeValue_NoTypeFallsBackToUUID(t *testing.T) {
	schema := &openapi3.Schema{}
	v := SynthesizeValue(openapi3.NewSchemaRef("", schema), rand.New(rand.NewSource(1)))
	s, ok := v.(string)
	require.True(t, ok)
	require.Len(t, s, 36)
}

func TestSynthesizeSchema_NilSchema(t *testing.T) {
	v := SynthesizeSchema(nil, rand.New(rand.NewSource(1)))
	_, ok := v.(string)
	require.True(t, ok)
}

func TestSynthesizeValue_ArrayWrapsItemSchema(t *testing.T) {
	schema := &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: openapi3.NewSchemaRef("", &openapi3.Schema{Type: &openapi3.Types{"integer"}}),
	}
	v := SynthesizeValue(openapi3.NewSchemaRef("", schema), rand.New(rand.NewSource(1)))
	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
}

func TestSynthesizeValue_BooleanAndNumber(t *testing.T) {
	boolSchema := &openapi3.Schema{Type: &openapi3.Types{"boolean"}}
	require.Equal(t, true, SynthesizeValue(openapi3.NewSchemaRef("", boolSchema), rand.New(rand.NewSource(1))))

	numSchema := &openapi3.Schema{Type: &openapi3.Types{"number"}}
	require.Equal(t, 1.0, SynthesizeValue(openapi3.NewSchemaRef("", numSchema), rand.New(rand.NewSource(1))))
}
