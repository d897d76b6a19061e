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
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apidiff/apidiff/internal/artifact"
	"github.com/apidiff/apidiff/internal/bundle"
	"github.com/apidiff/apidiff/internal/celeval"
	"github.com/apidiff/apidiff/internal/comparator"
	"github.com/apidiff/apidiff/internal/executor"
	"github.com/apidiff/apidiff/internal/fuzzconfig"
	"github.com/apidiff/apidiff/internal/ruleset"
	"github.com/apidiff/apidiff/internal/schemavalidate"
)

var replayFlags struct {
	configPath     string
	targetA        string
	targetB        string
	inDir          string
	outDir         string
	timeoutSeconds int
	evaluatorPath  string
	logStyle       string
	logLevel       string
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-execute recorded mismatch bundles against current targets",
	RunE:  runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.StringVar(&replayFlags.configPath, "config", "", "path to the runtime configuration file (required)")
	f.StringVar(&replayFlags.targetA, "target-a", "a", "name of target A in the runtime config")
	f.StringVar(&replayFlags.targetB, "target-b", "b", "name of target B in the runtime config")
	f.StringVar(&replayFlags.inDir, "in", "", "directory containing mismatch bundles to replay (required)")
	f.StringVar(&replayFlags.outDir, "out", "", "output directory for the replay summary (required)")
	f.IntVar(&replayFlags.timeoutSeconds, "timeout", 30, "default per-request timeout in seconds")
	f.StringVar(&replayFlags.evaluatorPath, "evaluator-path", "", "path to the apidiff-evaluator binary")
	f.StringVar(&replayFlags.logStyle, "log-style", "terminal", "log output style: terminal, json, logfmt, or noop")
	f.StringVar(&replayFlags.logLevel, "log-level", "info", "minimum log level: debug, info, warn, or error")

	_ = replayCmd.MarkFlagRequired("config")
	_ = replayCmd.MarkFlagRequired("in")
	_ = replayCmd.MarkFlagRequired("out")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(replayFlags.logStyle, replayFlags.logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	runtimeCfg, err := fuzzconfig.Load(replayFlags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	doc, err := ruleset.LoadDocument(runtimeCfg.ComparisonRules)
	if err != nil {
		return fmt.Errorf("loading rule file: %w", err)
	}
	library := ruleset.NewLibrary()

	evaluatorPath, err := resolveEvaluatorPath(replayFlags.evaluatorPath)
	if err != nil {
		return err
	}
	celClient := celeval.NewClient(evaluatorPath, logger.Named("celeval"))
	defer celClient.Close()

	// Replay has no OpenAPI document in hand, so schema validation (§4.5
	// "when spec available") is skipped: an empty validator map.
	cmp := comparator.New(doc, library, celClient, map[string]*schemavalidate.Validator{})

	exec, err := executor.New(runtimeCfg, replayFlags.targetA, replayFlags.targetB, executor.Config{
		DefaultTimeout: time.Duration(replayFlags.timeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("building executor: %w", err)
	}
	defer exec.Close()

	paths, err := bundle.DiscoverBundles(replayFlags.inDir)
	if err != nil {
		return fmt.Errorf("discovering bundles: %w", err)
	}

	var redactFields []string
	if runtimeCfg.Secrets != nil {
		redactFields = runtimeCfg.Secrets.RedactFields
	}
	writer, err := artifact.NewWriter(replayFlags.outDir, redactFields, artifact.Metadata{
		ToolVersion:    version,
		TargetAName:    replayFlags.targetA,
		TargetABaseURL: runtimeCfg.Targets[replayFlags.targetA].BaseURL,
		TargetBName:    replayFlags.targetB,
		TargetBBaseURL: runtimeCfg.Targets[replayFlags.targetB].BaseURL,
		RuleFile:       runtimeCfg.ComparisonRules,
	})
	if err != nil {
		return fmt.Errorf("creating artifact writer: %w", err)
	}

	summary := artifact.ReplaySummary{}

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}

		b, err := bundle.LoadBundle(path)
		if err != nil {
			logger.Warn("skipping unreadable bundle", zap.String("path", path), zap.Error(err))
			summary.Results = append(summary.Results, artifact.ReplayBundleResult{
				BundlePath:     path,
				Classification: artifact.ReplayError,
				Detail:         err.Error(),
			})
			continue
		}

		classification, _, err := bundle.Replay(ctx, exec, cmp, b)
		result := artifact.ReplayBundleResult{
			BundlePath:     path,
			Classification: classification,
		}
		if err != nil {
			result.Detail = err.Error()
		}
		summary.Results = append(summary.Results, result)

		logger.Info("replayed bundle", zap.String("path", path), zap.String("classification", string(classification)))
	}

	if err := writer.WriteReplaySummary(replayFlags.outDir, summary); err != nil {
		return fmt.Errorf("writing replay summary: %w", err)
	}

	return nil
}
