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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apidiff/apidiff/internal/apijson"
	"github.com/apidiff/apidiff/internal/genapi"
	"github.com/apidiff/apidiff/internal/lint"
)

var lintSpecFlags struct {
	specPath string
	output   string
}

var lintSpecCmd = &cobra.Command{
	Use:   "lint-spec",
	Short: "Statically analyze a spec's link graph for connectivity, depth, and reachability",
	RunE:  runLintSpec,
}

func init() {
	f := lintSpecCmd.Flags()
	f.StringVar(&lintSpecFlags.specPath, "spec", "", "path to the OpenAPI document (required)")
	f.StringVar(&lintSpecFlags.output, "output", "text", "output format: text or json")
	_ = lintSpecCmd.MarkFlagRequired("spec")
}

func runLintSpec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	spec, err := genapi.Load(ctx, lintSpecFlags.specPath)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}

	report := lint.Lint(spec, lint.Config{MaxRecommendedDepth: 10})

	switch lintSpecFlags.output {
	case "json":
		data, err := apijson.MarshalIndent(report)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "", "text":
		printLintReportText(cmd, report)
	default:
		return fmt.Errorf("unknown --output %q: must be text or json", lintSpecFlags.output)
	}

	if report.HasErrors() {
		return fmt.Errorf("lint found %d error(s)", countErrors(report))
	}
	return nil
}

func countErrors(report *lint.Report) int {
	n := 0
	for _, f := range report.Findings {
		if f.Severity == lint.SeverityError {
			n++
		}
	}
	return n
}

func printLintReportText(cmd *cobra.Command, report *lint.Report) {
	out := cmd.OutOrStdout()
	s := report.Stats
	fmt.Fprintf(out, "operations: %d total, %d linked, %d orphan\n", s.TotalOperations, s.LinkedOperations, s.OrphanOperations)
	fmt.Fprintf(out, "links: %d, entry points: %d, max depth: %d, cycles: %v\n\n", s.TotalLinks, s.EntryPoints, s.MaxDepth, s.HasCycles)

	for _, f := range report.Findings {
		if f.OperationID != "" {
			fmt.Fprintf(out, "[%s] %s: %s (%s)\n", f.Severity, f.Rule, f.Message, f.OperationID)
		} else {
			fmt.Fprintf(out, "[%s] %s: %s\n", f.Severity, f.Rule, f.Message)
		}
	}
	if len(report.Findings) == 0 {
		fmt.Fprintln(out, "no findings")
	}
}
