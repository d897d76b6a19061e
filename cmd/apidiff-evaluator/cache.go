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

package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// programCache caches compiled CEL programs keyed by (expression, sorted
// variable-name set), since wildcard expansion in the Comparator can
// evaluate the same predicate thousands of times with the same variable
// shape but different values (§4.1). It is bounded; once full, new
// entries are silently dropped rather than evicting existing ones.
type programCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]cel.Program
}

func newProgramCache(max int) *programCache {
	return &programCache{max: max, entries: make(map[string]cel.Program)}
}

func cacheKey(expr string, varNames []string) string {
	return expr + "\x00" + strings.Join(varNames, ",")
}

func (c *programCache) get(env *cel.Env, expr string, varNames []string) (cel.Program, error) {
	key := cacheKey(expr, varNames)

	c.mu.Lock()
	if prg, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return prg, nil
	}
	c.mu.Unlock()

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program construction error: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) < c.max {
		c.entries[key] = prg
	}
	return prg, nil
}
