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

	"github.com/apidiff/apidiff/internal/genapi"
)

var listOperationsFlags struct {
	specPath string
}

var listOperationsCmd = &cobra.Command{
	Use:   "list-operations",
	Short: "List every operation id enumerated from an OpenAPI document",
	RunE:  runListOperations,
}

func init() {
	f := listOperationsCmd.Flags()
	f.StringVar(&listOperationsFlags.specPath, "spec", "", "path to the OpenAPI document (required)")
	_ = listOperationsCmd.MarkFlagRequired("spec")
}

func runListOperations(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	spec, err := genapi.Load(ctx, listOperationsFlags.specPath)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}

	orphans := make(map[string]bool)
	for _, id := range spec.OrphanOperations() {
		orphans[id] = true
	}

	for _, id := range spec.SortedOperationIDs() {
		op := spec.Operations[id]
		tag := ""
		if orphans[id] {
			tag = " (orphan)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-40s %s%s\n", op.Method, op.Path, op.ID, tag)
	}

	return nil
}
