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

package ruleset

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/bytedance/sonic"
)

// ParamType is the declared type of a predefined template parameter.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamNumber ParamType = "number"
	ParamBool   ParamType = "bool"
)

// ParamSpec declares one parameter a predefined template accepts.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
}

// Template is a named predefined comparison, expanded to a CEL expression
// string at config load (§4.2). Placeholders in Expr are of the form
// "{{name}}".
type Template struct {
	Name   string
	Params []ParamSpec
	Expr   string
}

// Library is the table of named predefined templates (§4.2).
type Library struct {
	templates map[string]Template
}

// NewLibrary returns the Rule Library seeded with the fundamental
// templates named in §4.2.
func NewLibrary() *Library {
	lib := &Library{templates: make(map[string]Template)}
	for _, t := range fundamentalTemplates() {
		lib.templates[t.Name] = t
	}
	return lib
}

// Register adds or overrides a predefined template.
func (l *Library) Register(t Template) { l.templates[t.Name] = t }

// Expand resolves a user rule of the form {predefined: name, ...params}
// into its expression string (§4.2 steps 1-3).
func (l *Library) Expand(name string, params map[string]any) (string, error) {
	tmpl, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown predefined rule %q", name)
	}

	expr := tmpl.Expr
	for _, p := range tmpl.Params {
		raw, present := params[p.Name]
		if !present {
			if p.Required {
				return "", fmt.Errorf("predefined %q: missing required parameter %q", name, p.Name)
			}
			continue
		}
		lit, err := substituteLiteral(p.Type, raw)
		if err != nil {
			return "", fmt.Errorf("predefined %q: parameter %q: %w", name, p.Name, err)
		}
		expr = replacePlaceholder(expr, p.Name, lit)
	}
	return expr, nil
}

func replacePlaceholder(expr, name, literal string) string {
	placeholder := "{{" + name + "}}"
	out := make([]byte, 0, len(expr))
	for {
		idx := indexOf(expr, placeholder)
		if idx < 0 {
			out = append(out, expr...)
			break
		}
		out = append(out, expr[:idx]...)
		out = append(out, literal...)
		expr = expr[idx+len(placeholder):]
	}
	return string(out)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// substituteLiteral renders a predefined-template parameter value as a
// CEL literal: numbers/booleans inline, strings JSON-escaped and quoted
// (§4.2 step 3).
func substituteLiteral(t ParamType, v any) (string, error) {
	switch t {
	case ParamNumber:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'g', -1, 64), nil
		case int:
			return strconv.Itoa(n), nil
		default:
			return "", fmt.Errorf("expected number, got %T", v)
		}
	case ParamBool:
		b, ok := v.(bool)
		if !ok {
			return "", fmt.Errorf("expected bool, got %T", v)
		}
		if b {
			return "true", nil
		}
		return "false", nil
	case ParamString:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", v)
		}
		encoded, err := sonic.Marshal(s)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	default:
		return "", fmt.Errorf("unsupported parameter type %q", t)
	}
}

// Names returns every registered predefined name, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fundamentalTemplates() []Template {
	return []Template{
		{Name: "exact_match", Expr: "a == b"},
		{Name: "ignore", Expr: "true"},
		{
			Name:   "numeric_tolerance",
			Params: []ParamSpec{{Name: "tolerance", Type: ParamNumber, Required: true}},
			Expr:   "math.abs(double(a) - double(b)) <= {{tolerance}}",
		},
		{
			Name:   "epoch_seconds_tolerance",
			Params: []ParamSpec{{Name: "amount", Type: ParamNumber, Required: true}},
			Expr:   "math.abs(double(a) - double(b)) <= {{amount}}",
		},
		{
			Name:   "epoch_millis_tolerance",
			Params: []ParamSpec{{Name: "amount", Type: ParamNumber, Required: true}},
			Expr:   "math.abs(double(a) - double(b)) <= {{amount}}",
		},
		{Name: "uuid_format", Expr: "isUUID(a) && isUUID(b)"},
		{Name: "iso_timestamp_format", Expr: "isISOTimestamp(a) && isISOTimestamp(b)"},
		{Name: "iso_date_format", Expr: "isISODate(a) && isISODate(b)"},
		{Name: "url_format", Expr: "isURL(a) && isURL(b)"},
		{Name: "both_positive", Expr: "double(a) > 0.0 && double(b) > 0.0"},
		{Name: "both_non_negative", Expr: "double(a) >= 0.0 && double(b) >= 0.0"},
		{
			Name: "both_in_range",
			Params: []ParamSpec{
				{Name: "min", Type: ParamNumber, Required: true},
				{Name: "max", Type: ParamNumber, Required: true},
			},
			Expr: "double(a) >= {{min}} && double(a) <= {{max}} && double(b) >= {{min}} && double(b) <= {{max}}",
		},
		{
			Name:   "string_prefix",
			Params: []ParamSpec{{Name: "prefix", Type: ParamString, Required: true}},
			Expr:   "a.startsWith({{prefix}}) && b.startsWith({{prefix}})",
		},
		{
			Name:   "string_suffix",
			Params: []ParamSpec{{Name: "suffix", Type: ParamString, Required: true}},
			Expr:   "a.endsWith({{suffix}}) && b.endsWith({{suffix}})",
		},
		{
			Name:   "string_contains",
			Params: []ParamSpec{{Name: "substr", Type: ParamString, Required: true}},
			Expr:   "a.contains({{substr}}) && b.contains({{substr}})",
		},
		{Name: "string_length_match", Expr: "a.size() == b.size()"},
		{Name: "string_nonempty", Expr: "a.size() > 0 && b.size() > 0"},
		{Name: "unordered_array", Expr: "sameElements(a, b)"},
		{Name: "array_length", Expr: "a.size() == b.size()"},
		{
			Name:   "array_length_tolerance",
			Params: []ParamSpec{{Name: "tolerance", Type: ParamNumber, Required: true}},
			Expr:   "math.abs(double(a.size()) - double(b.size())) <= {{tolerance}}",
		},
		{Name: "same_keys", Expr: "sameKeys(a, b)"},
		{Name: "type_match", Expr: "type(a) == type(b)"},
		{Name: "both_null", Expr: "a == null && b == null"},
		{Name: "same_nullity", Expr: "(a == null) == (b == null)"},
		{Name: "binary_exact_match", Expr: "a == b"},
		{Name: "binary_length_match", Expr: "a.size() == b.size()"},
	}
}
