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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apidiff/apidiff/internal/artifact"
	"github.com/apidiff/apidiff/internal/celeval"
	"github.com/apidiff/apidiff/internal/comparator"
	"github.com/apidiff/apidiff/internal/executor"
	"github.com/apidiff/apidiff/internal/fuzzcase"
	"github.com/apidiff/apidiff/internal/fuzzconfig"
	"github.com/apidiff/apidiff/internal/genapi"
	"github.com/apidiff/apidiff/internal/ruleset"
	"github.com/apidiff/apidiff/internal/schemavalidate"
)

var exploreFlags struct {
	specPath        string
	configPath      string
	targetA         string
	targetB         string
	outDir          string
	seed            int64
	maxCases        int
	stateful        bool
	maxChains       int
	maxSteps        int
	ensureCoverage  bool
	minHitsPerOp    int
	minCoverage     float64
	exclude         []string
	timeoutSeconds  int
	operationTimeouts []string
	evaluatorPath   string
	logStyle        string
	logLevel        string
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Generate and execute request cases/chains against two targets",
	RunE:  runExplore,
}

func init() {
	f := exploreCmd.Flags()
	f.StringVar(&exploreFlags.specPath, "spec", "", "path to the OpenAPI document (required)")
	f.StringVar(&exploreFlags.configPath, "config", "", "path to the runtime configuration file (required)")
	f.StringVar(&exploreFlags.targetA, "target-a", "a", "name of target A in the runtime config")
	f.StringVar(&exploreFlags.targetB, "target-b", "b", "name of target B in the runtime config")
	f.StringVar(&exploreFlags.outDir, "out", "", "output directory for mismatch bundles and summary (required)")
	f.Int64Var(&exploreFlags.seed, "seed", 1, "base PRNG seed")
	f.IntVar(&exploreFlags.maxCases, "max-cases", 1000, "maximum number of single-operation cases to generate")
	f.BoolVar(&exploreFlags.stateful, "stateful", false, "also discover and execute link-derived chains")
	f.IntVar(&exploreFlags.maxChains, "max-chains", 10000, "maximum number of chains to generate")
	f.IntVar(&exploreFlags.maxSteps, "max-steps", 20, "maximum steps per chain")
	f.BoolVar(&exploreFlags.ensureCoverage, "ensure-coverage", false, "synthesize extra single cases for operations with no hits")
	f.IntVar(&exploreFlags.minHitsPerOp, "min-hits-per-op", 1, "minimum hits per operation for coverage")
	f.Float64Var(&exploreFlags.minCoverage, "min-coverage", 100, "target link-graph coverage percentage")
	f.StringArrayVar(&exploreFlags.exclude, "exclude", nil, "operation id to exclude from generation (repeatable)")
	f.IntVar(&exploreFlags.timeoutSeconds, "timeout", 30, "default per-request timeout in seconds")
	f.StringArrayVar(&exploreFlags.operationTimeouts, "operation-timeout", nil, "OPID:SECONDS override (repeatable)")
	f.StringVar(&exploreFlags.evaluatorPath, "evaluator-path", "", "path to the apidiff-evaluator binary")
	f.StringVar(&exploreFlags.logStyle, "log-style", "terminal", "log output style: terminal, json, logfmt, or noop")
	f.StringVar(&exploreFlags.logLevel, "log-level", "info", "minimum log level: debug, info, warn, or error")

	_ = exploreCmd.MarkFlagRequired("spec")
	_ = exploreCmd.MarkFlagRequired("config")
	_ = exploreCmd.MarkFlagRequired("out")
}

func parseOperationTimeouts(entries []string) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration, len(entries))
	for _, e := range entries {
		parts := strings.SplitN(e, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --operation-timeout %q: expected OPID:SECONDS", e)
		}
		secs, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid --operation-timeout %q: %w", e, err)
		}
		out[parts[0]] = time.Duration(secs) * time.Second
	}
	return out, nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(exploreFlags.logStyle, exploreFlags.logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	spec, err := genapi.Load(ctx, exploreFlags.specPath)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}

	runtimeCfg, err := fuzzconfig.Load(exploreFlags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	doc, err := ruleset.LoadDocument(runtimeCfg.ComparisonRules)
	if err != nil {
		return fmt.Errorf("loading rule file: %w", err)
	}
	library := ruleset.NewLibrary()

	evaluatorPath, err := resolveEvaluatorPath(exploreFlags.evaluatorPath)
	if err != nil {
		return err
	}
	celClient := celeval.NewClient(evaluatorPath, logger.Named("celeval"))
	defer celClient.Close()

	validators := make(map[string]*schemavalidate.Validator, len(spec.Operations))
	for id, op := range spec.Operations {
		validators[id] = schemavalidate.NewValidator(op.Responses)
	}

	cmp := comparator.New(doc, library, celClient, validators)

	opTimeouts, err := parseOperationTimeouts(exploreFlags.operationTimeouts)
	if err != nil {
		return err
	}

	exec, err := executor.New(runtimeCfg, exploreFlags.targetA, exploreFlags.targetB, executor.Config{
		DefaultTimeout:    time.Duration(exploreFlags.timeoutSeconds) * time.Second,
		OperationTimeouts: opTimeouts,
	})
	if err != nil {
		return fmt.Errorf("building executor: %w", err)
	}
	defer exec.Close()

	var redactFields []string
	if runtimeCfg.Secrets != nil {
		redactFields = runtimeCfg.Secrets.RedactFields
	}
	writer, err := artifact.NewWriter(exploreFlags.outDir, redactFields, artifact.Metadata{
		ToolVersion:    version,
		Seed:           exploreFlags.seed,
		TargetAName:    exploreFlags.targetA,
		TargetABaseURL: runtimeCfg.Targets[exploreFlags.targetA].BaseURL,
		TargetBName:    exploreFlags.targetB,
		TargetBBaseURL: runtimeCfg.Targets[exploreFlags.targetB].BaseURL,
		RuleFile:       runtimeCfg.ComparisonRules,
	})
	if err != nil {
		return fmt.Errorf("creating artifact writer: %w", err)
	}

	excluded := make(map[string]bool, len(exploreFlags.exclude))
	for _, id := range exploreFlags.exclude {
		excluded[id] = true
	}

	genCfg := genapi.Config{
		Excluded:       excluded,
		MaxCases:       exploreFlags.maxCases,
		Seed:           exploreFlags.seed,
		MinHitsPerOp:   exploreFlags.minHitsPerOp,
		MinCoveragePct: exploreFlags.minCoverage,
		MaxSeeds:       100,
		MaxChains:      exploreFlags.maxChains,
		MaxSteps:       exploreFlags.maxSteps,
	}

	summary := artifact.RunSummary{}

	interrupted := false
	for req := range spec.GenerateSingleCases(genCfg) {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if !runSingleCase(ctx, exec, cmp, writer, &summary, logger, req) {
			interrupted = true
			break
		}
	}

	if !interrupted && exploreFlags.ensureCoverage {
		for _, req := range spec.EnsureCoverage(genCfg) {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			if !runSingleCase(ctx, exec, cmp, writer, &summary, logger, req) {
				interrupted = true
				break
			}
		}
	}

	if !interrupted && exploreFlags.stateful {
		for _, chain := range spec.GenerateChains(genCfg) {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			if !runChain(ctx, exec, cmp, writer, &summary, logger, chain) {
				interrupted = true
				break
			}
		}
	}

	summary.Interrupted = interrupted
	if err := writer.WriteRunSummary(exploreFlags.outDir, summary); err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}

	logger.Info("explore finished",
		zap.Int("cases_sent", summary.CasesSent),
		zap.Int("mismatches", summary.Mismatches),
		zap.Int("errors", summary.Errors),
		zap.Bool("interrupted", interrupted),
	)

	return nil
}

// runSingleCase executes one request case, compares it, and writes a
// bundle on mismatch. It returns false if the run should stop (context
// cancelled mid-comparison).
func runSingleCase(
	ctx context.Context,
	exec *executor.Executor,
	cmp *comparator.Comparator,
	writer *artifact.Writer,
	summary *artifact.RunSummary,
	logger *zap.Logger,
	req *fuzzcase.RequestCase,
) bool {
	respA, respB := exec.Execute(ctx, req)
	summary.CasesSent++

	if respA.IsInfraError() || respB.IsInfraError() {
		summary.Errors++
		return true
	}

	result, err := cmp.Compare(ctx, req.OperationID, respA, respB)
	if err != nil {
		logger.Warn("comparison failed", zap.String("operation_id", req.OperationID), zap.Error(err))
		summary.Errors++
		return true
	}

	if result.Match {
		return true
	}

	summary.Mismatches++
	dir, err := writer.WriteSingleMismatch(req.OperationID, req.ID, req, respA, respB, result, time.Now())
	if err != nil {
		logger.Error("failed to write mismatch bundle", zap.Error(err))
		return true
	}
	summary.BundlePaths = append(summary.BundlePaths, dir)
	return true
}

// runChain executes a full chain, stopping at the first mismatching step
// (§4.7 "first-mismatch-stops-the-chain"), and writes a chain bundle if
// one occurred.
func runChain(
	ctx context.Context,
	exec *executor.Executor,
	cmp *comparator.Comparator,
	writer *artifact.Writer,
	summary *artifact.RunSummary,
	logger *zap.Logger,
	chain *fuzzcase.ChainCase,
) bool {
	var mismatch *comparator.Result
	var compareErr error

	stepIdx := 0
	execA, execB := exec.ExecuteChain(ctx, chain, func(respA, respB *fuzzcase.ResponseCase) bool {
		step := stepIdx
		stepIdx++
		summary.CasesSent++
		if respA.IsInfraError() || respB.IsInfraError() {
			summary.Errors++
			return true
		}

		opID := ""
		if step < len(chain.Steps) {
			opID = chain.Steps[step].Request.OperationID
		}
		result, err := cmp.Compare(ctx, opID, respA, respB)
		if err != nil {
			logger.Warn("chain step comparison failed", zap.String("operation_id", opID), zap.Error(err))
			compareErr = err
			summary.Errors++
			return false
		}
		if !result.Match {
			mismatch = result
			return false
		}
		return true
	})

	if compareErr != nil {
		return true
	}
	if mismatch == nil {
		return true
	}

	summary.Mismatches++
	dir, err := writer.WriteChainMismatch("chain", chain.ID, chain, execA, execB, mismatch, time.Now())
	if err != nil {
		logger.Error("failed to write chain mismatch bundle", zap.Error(err))
		return true
	}
	summary.BundlePaths = append(summary.BundlePaths, dir)
	return true
}
