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

// Package fuzzcase holds the typed in-memory representation of requests,
// responses, chain templates and chain executions (§3 of the engine spec).
package fuzzcase

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// OrderedMap is an ordered multi-map: each key may carry several values,
// and keys are stored case-insensitively (lowercased) for both query
// parameters and headers, per §4.3.
type OrderedMap struct {
	keys   []string
	values map[string][]string
}

// NewOrderedMap returns an empty ordered multi-map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string][]string)}
}

func normKey(k string) string { return strings.ToLower(k) }

// Add appends a value under key, preserving first-seen key order.
func (m *OrderedMap) Add(key, value string) {
	nk := normKey(key)
	if _, ok := m.values[nk]; !ok {
		m.keys = append(m.keys, nk)
	}
	m.values[nk] = append(m.values[nk], value)
}

// Set replaces all values under key with a single value.
func (m *OrderedMap) Set(key, value string) {
	nk := normKey(key)
	if _, ok := m.values[nk]; !ok {
		m.keys = append(m.keys, nk)
	}
	m.values[nk] = []string{value}
}

// Get returns the first value for key, if any.
func (m *OrderedMap) Get(key string) (string, bool) {
	vals, ok := m.values[normKey(key)]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Values returns every value for key in insertion order.
func (m *OrderedMap) Values(key string) ([]string, bool) {
	vals, ok := m.values[normKey(key)]
	return vals, ok
}

// Keys returns keys in first-seen order.
func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// orderedMapEntry is the wire form of one OrderedMap key: its values in
// insertion order. Encoded as a JSON array of entries, rather than an
// object, so key order survives a marshal/unmarshal round trip — used by
// the artifact writer and bundle loader (§4.8, §4.9).
type orderedMapEntry struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// MarshalJSON encodes the map as an ordered array of {key, values}.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	entries := make([]orderedMapEntry, 0, len(m.keys))
	for _, k := range m.keys {
		entries = append(entries, orderedMapEntry{Key: k, Values: m.values[k]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the {key, values} array form back into order.
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	var entries []orderedMapEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m.keys = nil
	m.values = make(map[string][]string, len(entries))
	for _, e := range entries {
		nk := normKey(e.Key)
		if _, ok := m.values[nk]; !ok {
			m.keys = append(m.keys, nk)
		}
		m.values[nk] = e.Values
	}
	return nil
}

// Clone deep-copies the map.
func (m *OrderedMap) Clone() *OrderedMap {
	if m == nil {
		return NewOrderedMap()
	}
	clone := &OrderedMap{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string][]string, len(m.values)),
	}
	for k, v := range m.values {
		clone.values[k] = append([]string(nil), v...)
	}
	return clone
}

// Body holds either a structured JSON-compatible value or a base64-encoded
// binary payload. The two are mutually exclusive (§3 invariant).
type Body struct {
	Structured any    `json:"structured,omitempty"`
	Binary     []byte `json:"binary,omitempty"`
	HasBinary  bool   `json:"has_binary,omitempty"`
}

// StructuredBody wraps a decoded JSON value as a request/response Body.
func StructuredBody(v any) Body { return Body{Structured: v} }

// BinaryBody wraps raw bytes as a request/response Body.
func BinaryBody(b []byte) Body { return Body{Binary: b, HasBinary: true} }

// IsEmpty reports whether neither a structured nor binary payload is set.
func (b Body) IsEmpty() bool { return !b.HasBinary && b.Structured == nil }

// Base64 returns the binary body base64-encoded, or "" when absent.
func (b Body) Base64() string {
	if !b.HasBinary {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b.Binary)
}

// RequestCase is a single concrete (or templated) HTTP request.
//
// When used as a ChainStep template, PathParams may be incomplete and
// Path is left unrendered until bound (§3).
type RequestCase struct {
	ID           string            `json:"id"`
	OperationID  string            `json:"operation_id"`
	Method       string            `json:"method"`
	PathTemplate string            `json:"path_template"`
	PathParams   map[string]string `json:"path_params"`
	Path         string            `json:"path"`
	Query        *OrderedMap       `json:"query"`
	Headers      *OrderedMap       `json:"headers"`
	Body         Body              `json:"body"`
	MediaType    string            `json:"media_type,omitempty"`
}

// NewRequestCase builds an empty request case for operationID, rendering
// Path immediately from an empty parameter set.
func NewRequestCase(id, operationID, method, pathTemplate string) *RequestCase {
	rc := &RequestCase{
		ID:           id,
		OperationID:  operationID,
		Method:       method,
		PathTemplate: pathTemplate,
		PathParams:   make(map[string]string),
		Query:        NewOrderedMap(),
		Headers:      NewOrderedMap(),
	}
	rc.RenderPath()
	return rc
}

// SetPathParam records a path parameter value and re-renders Path.
func (rc *RequestCase) SetPathParam(name, value string) {
	if rc.PathParams == nil {
		rc.PathParams = make(map[string]string)
	}
	rc.PathParams[name] = value
	rc.RenderPath()
}

// RenderPath recomputes Path from PathTemplate and PathParams. It must be
// invoked after any mutation of either field (§3 invariant).
func (rc *RequestCase) RenderPath() {
	path := rc.PathTemplate
	for name, value := range rc.PathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", value)
	}
	rc.Path = path
}

// MissingPathParams returns every `{name}` placeholder in PathTemplate
// that has no entry in PathParams, violating the §3 execution invariant.
func (rc *RequestCase) MissingPathParams() []string {
	var missing []string
	rest := rc.PathTemplate
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			break
		}
		name := rest[start+1 : start+end]
		if _, ok := rc.PathParams[name]; !ok {
			missing = append(missing, name)
		}
		rest = rest[start+end+1:]
	}
	return missing
}

// Clone deep-copies the request case, suitable for binding a chain
// template's shared RequestCase independently per target.
func (rc *RequestCase) Clone() *RequestCase {
	clone := *rc
	clone.PathParams = make(map[string]string, len(rc.PathParams))
	for k, v := range rc.PathParams {
		clone.PathParams[k] = v
	}
	clone.Query = rc.Query.Clone()
	clone.Headers = rc.Headers.Clone()
	return &clone
}

func (rc *RequestCase) String() string {
	return fmt.Sprintf("%s %s (%s)", rc.Method, rc.Path, rc.OperationID)
}

// ResponseCase is a captured HTTP response, or a transport failure when
// Error is non-empty (§3, §4.6).
type ResponseCase struct {
	StatusCode int         `json:"status_code"`
	Headers    *OrderedMap `json:"headers"`
	Body       Body        `json:"body"`
	ElapsedMS  int64       `json:"elapsed_ms"`
	Proto      string      `json:"proto,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// IsInfraError reports whether the request never produced a response.
func (r *ResponseCase) IsInfraError() bool {
	return r != nil && r.Error != ""
}
