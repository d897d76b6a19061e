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

// Package bundle discovers and loads mismatch bundles written by the
// artifact writer, for replay (§4.9).
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/apidiff/apidiff/internal/apijson"
	"github.com/apidiff/apidiff/internal/comparator"
	"github.com/apidiff/apidiff/internal/fuzzcase"
)

// Kind classifies a bundle as carrying a single request or a chain.
type Kind string

const (
	KindSingle Kind = "SINGLE"
	KindChain  Kind = "CHAIN"
)

// Bundle is one loaded mismatch bundle.
type Bundle struct {
	Path     string
	Kind     Kind
	Case     *fuzzcase.RequestCase
	Chain    *fuzzcase.ChainCase
	Diff     *comparator.Result
	Metadata map[string]any
}

// DiscoverBundles enumerates bundle directories under dir or
// dir/mismatches, sorted by name. Entries lacking case.json or
// chain.json are skipped (§4.9 "discover_bundles").
func DiscoverBundles(dir string) ([]string, error) {
	root := dir
	if _, err := os.Stat(filepath.Join(dir, "mismatches")); err == nil {
		root = filepath.Join(dir, "mismatches")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading bundle directory %s: %w", root, err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(root, e.Name())
		if fileExists(filepath.Join(p, "case.json")) || fileExists(filepath.Join(p, "chain.json")) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadBundle parses a bundle directory's diff.json, its case.json or
// chain.json (chosen by the classified kind), and metadata.json;
// target_a.json and target_b.json are not read. Malformed JSON in the
// files it reads (including a non-object diff.json) surfaces as a single
// error, never an unhandled exception (§4.9).
func LoadBundle(path string) (*Bundle, error) {
	diffRaw, err := os.ReadFile(filepath.Join(path, "diff.json"))
	if err != nil {
		return nil, fmt.Errorf("bundle %s: reading diff.json: %w", path, err)
	}

	var envelope struct {
		Type string `json:"type"`
		*comparator.Result
	}
	if err := apijson.Unmarshal(diffRaw, &envelope); err != nil {
		return nil, fmt.Errorf("bundle %s: parsing diff.json: %w", path, err)
	}

	b := &Bundle{Path: path, Diff: envelope.Result}

	kind := KindSingle
	switch envelope.Type {
	case "chain":
		kind = KindChain
	case "single":
		kind = KindSingle
	default:
		if fileExists(filepath.Join(path, "chain.json")) {
			kind = KindChain
		}
	}
	b.Kind = kind

	if kind == KindChain {
		chain, err := readChain(filepath.Join(path, "chain.json"))
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", path, err)
		}
		b.Chain = chain
	} else {
		rc, err := readRequestCase(filepath.Join(path, "case.json"))
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", path, err)
		}
		b.Case = rc
	}

	metaRaw, err := os.ReadFile(filepath.Join(path, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("bundle %s: reading metadata.json: %w", path, err)
	}
	var meta map[string]any
	if err := apijson.Unmarshal(metaRaw, &meta); err != nil {
		return nil, fmt.Errorf("bundle %s: parsing metadata.json: %w", path, err)
	}
	b.Metadata = meta

	return b, nil
}

func readRequestCase(path string) (*fuzzcase.RequestCase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading case.json: %w", err)
	}
	var rc fuzzcase.RequestCase
	if err := apijson.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("parsing case.json: %w", err)
	}
	return &rc, nil
}

func readChain(path string) (*fuzzcase.ChainCase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chain.json: %w", err)
	}
	var chain fuzzcase.ChainCase
	if err := apijson.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("parsing chain.json: %w", err)
	}
	return &chain, nil
}

// ExtractLinkFieldsFromChain is a thin re-export of
// fuzzcase.DeriveLinkFields for callers that only import bundle (§4.9
// "extract_link_fields_from_chain").
func ExtractLinkFieldsFromChain(chain *fuzzcase.ChainCase) (bodyPointers []string, headerRefs []string) {
	return fuzzcase.DeriveLinkFields(chain)
}
