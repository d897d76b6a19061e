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

// Package genapi turns an OpenAPI document into a coverage-driven stream
// of concrete HTTP requests: operation enumeration, single-case
// generation, and link-derived chain discovery (§4.4).
package genapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// Parameter describes one operation parameter relevant to case generation.
type Parameter struct {
	Name     string
	In       string // "path", "query", "header"
	Required bool
	Schema   *openapi3.Schema
}

// Link is an explicit OpenAPI link from a response field/header of
// SourceOp to a parameter of TargetOp (§3 "Link fields", GLOSSARY).
type Link struct {
	SourceOp     string
	TargetOp     string
	TargetParam  string
	Expression   string // e.g. "$response.body#/id" or "$response.header.Location"
}

// Operation is one enumerated OpenAPI operation (§4.4 "Enumerate
// operations").
type Operation struct {
	ID         string
	Method     string
	Path       string
	Parameters []Parameter
	RequestBodySchema *openapi3.Schema
	RequestBodyRequired bool
	Responses  map[string]*openapi3.Response // status pattern -> response ("200", "2XX", "default")
}

// HasRequiredPathParams reports whether the operation requires any path
// parameter to be supplied before it can be invoked — operations with
// none gain a "free entry" transition in the chain state machine (§4.4
// step 1).
func (o *Operation) HasRequiredPathParams() bool {
	for _, p := range o.Parameters {
		if p.In == "path" {
			return true
		}
	}
	return false
}

// Spec wraps a loaded OpenAPI document plus the operation/link index
// derived from it.
type Spec struct {
	Doc        *openapi3.T
	Operations map[string]*Operation
	Links      []Link
	// LinkedOps is the set of operation ids participating as source or
	// target of at least one explicit link (GLOSSARY "Orphan").
	LinkedOps map[string]bool
}

// Load parses an OpenAPI 3.x document (YAML or JSON) from path and builds
// the operation/link index.
func Load(ctx context.Context, path string) (*Spec, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading OpenAPI document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument builds a Spec from an already-parsed document, used both
// by Load and by tests that construct documents in-memory.
func FromDocument(doc *openapi3.T) (*Spec, error) {
	s := &Spec{
		Doc:        doc,
		Operations: make(map[string]*Operation),
		LinkedOps:  make(map[string]bool),
	}

	if doc.Paths != nil {
		for path, item := range doc.Paths.Map() {
			for method, op := range item.Operations() {
				if op.OperationID == "" {
					continue
				}
				o := &Operation{
					ID:     op.OperationID,
					Method: method,
					Path:   path,
				}
				for _, pref := range op.Parameters {
					if pref.Value == nil {
						continue
					}
					p := pref.Value
					var schema *openapi3.Schema
					if p.Schema != nil {
						schema = p.Schema.Value
					}
					o.Parameters = append(o.Parameters, Parameter{
						Name:     p.Name,
						In:       p.In,
						Required: p.Required,
						Schema:   schema,
					})
				}
				if op.RequestBody != nil && op.RequestBody.Value != nil {
					o.RequestBodyRequired = op.RequestBody.Value.Required
					if mt := op.RequestBody.Value.Content.Get("application/json"); mt != nil && mt.Schema != nil {
						o.RequestBodySchema = mt.Schema.Value
					}
				}
				if op.Responses != nil {
					o.Responses = make(map[string]*openapi3.Response)
					for status, rref := range op.Responses.Map() {
						if rref.Value != nil {
							o.Responses[status] = rref.Value
						}
					}
				}
				s.Operations[o.ID] = o

				if op.Responses != nil {
					for _, rref := range op.Responses.Map() {
						if rref.Value == nil {
							continue
						}
						for name, lref := range rref.Value.Links {
							if lref.Value == nil {
								continue
							}
							s.addLink(o.ID, lref.Value, name)
						}
					}
				}
			}
		}
	}

	return s, nil
}

func (s *Spec) addLink(sourceOp string, l *openapi3.Link, linkName string) {
	if l.OperationID == "" {
		return
	}
	for paramName, expr := range l.Parameters {
		exprStr := fmt.Sprintf("%v", expr)
		link := Link{
			SourceOp:    sourceOp,
			TargetOp:    l.OperationID,
			TargetParam: paramName,
			Expression:  exprStr,
		}
		s.Links = append(s.Links, link)
		s.LinkedOps[sourceOp] = true
		s.LinkedOps[l.OperationID] = true
	}
}

// SortedOperationIDs returns every enumerated operation id, sorted, for
// deterministic iteration (list-operations, seed walking).
func (s *Spec) SortedOperationIDs() []string {
	ids := make([]string, 0, len(s.Operations))
	for id := range s.Operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OrphanOperations returns operation ids that participate in no link
// (GLOSSARY "Orphan"), sorted.
func (s *Spec) OrphanOperations() []string {
	var orphans []string
	for _, id := range s.SortedOperationIDs() {
		if !s.LinkedOps[id] {
			orphans = append(orphans, id)
		}
	}
	return orphans
}

// LinksFrom returns every link whose source is operationID.
func (s *Spec) LinksFrom(operationID string) []Link {
	var out []Link
	for _, l := range s.Links {
		if l.SourceOp == operationID {
			out = append(out, l)
		}
	}
	return out
}
