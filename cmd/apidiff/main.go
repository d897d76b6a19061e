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
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "apidiff",
	Short: "Differential HTTP fuzzer for comparing two API deployments",
	Long: `apidiff drives OpenAPI-generated requests at two nominally
identical deployments of a REST API and reports where their responses
diverge.

It supports:
- Exploring a spec: single-operation cases and multi-step link chains
- Replaying previously recorded mismatch bundles against current targets
- Inspecting a spec's operations and its link-derived chain graph
- Linting a spec's link graph for connectivity, depth, and reachability`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(listOperationsCmd)
	rootCmd.AddCommand(graphChainsCmd)
	rootCmd.AddCommand(lintSpecCmd)
}
