package genapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperation_HasRequiredPathParams(t *testing.T) {
	withPath := &Operation{Parameters: []Parameter{{Name: "id", In: "path"}}}
	require.True(t, withPath.HasRequiredPathParams())

	withoutPath := &Operation{Parameters: []Parameter{{Name: "filter", In: "query"}}}
	require.False(t, withoutPath.HasRequiredPathParams())
}

func TestSpec_SortedOperationIDs(t *testing.T) {
	s := &Spec{Operations: map[string]*Operation{
		"zebra":  {ID: "zebra"},
		"apple":  {ID: "apple"},
		"mango":  {ID: "mango"},
	}}
	require.Equal(t, []string{"apple", "mango", "zebra"}, s.SortedOperationIDs())
}

func TestSpec_OrphanOperations(t *testing.T) {
	s := &Spec{
		Operations: map[string]*Operation{
			"createUser": {ID: "createUser"},
			"getUser":    {ID: "getUser"},
			"listUsers":  {ID: "listUsers"},
		},
		LinkedOps: map[string]bool{"createUser": true, "getUser": true},
	}
	require.Equal(t, []string{"listUsers"}, s.OrphanOperations())
}

func TestSpec_LinksFrom(t *testing.T) {
	s := &Spec{Links: []Link{
		{SourceOp: "createUser", TargetOp: "getUser", TargetParam: "userId", Expression: "$response.body#/id"},
		{SourceOp: "createOrder", TargetOp: "getOrder", TargetParam: "orderId", Expression: "$response.body#/id"},
	}}

	links := s.LinksFrom("createUser")
	require.Len(t, links, 1)
	require.Equal(t, "getUser", links[0].TargetOp)

	require.Empty(t, s.LinksFrom("noSuchOp"))
}
