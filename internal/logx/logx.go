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

// Package logx builds the *zap.Logger shared by every command and engine
// component, selecting between a terminal, JSON, logfmt, or no-op core.
package logx

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Style selects the zapcore backing a logger.
type Style string

const (
	StyleTerminal Style = "terminal"
	StyleJSON     Style = "json"
	StyleLogfmt   Style = "logfmt"
	StyleNoop     Style = "noop"
)

// Config controls logger construction (§6 --log-style/--log-level flags).
type Config struct {
	Style Style
	Level string
}

// New builds a *zap.Logger from c. A nil or zero-value Config defaults to
// terminal style at info level.
func New(c *Config) (*zap.Logger, error) {
	style := StyleTerminal
	level := zapcore.InfoLevel

	if c != nil {
		if c.Style != "" {
			style = c.Style
		}
		if c.Level != "" {
			lvl, err := zapcore.ParseLevel(c.Level)
			if err != nil {
				return nil, fmt.Errorf("parsing log level %q: %w", c.Level, err)
			}
			level = lvl
		}
	}

	switch style {
	case StyleNoop:
		return zap.NewNop(), nil
	case StyleJSON:
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	case StyleTerminal:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	case StyleLogfmt:
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:       "ts",
			LevelKey:      "lvl",
			NameKey:       "logger",
			CallerKey:     "caller",
			MessageKey:    "msg",
			StacktraceKey: "stacktrace",
			LineEnding:    zapcore.DefaultLineEnding,
		}
		core := zapcore.NewCore(
			newLogfmtEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			level,
		)
		return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)), nil
	default:
		return nil, fmt.Errorf("unknown log style %q: must be one of terminal, json, logfmt, noop", style)
	}
}
