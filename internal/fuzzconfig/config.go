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

// Package fuzzconfig loads the runtime YAML configuration: targets,
// rate limiting, secret redaction, and ${VAR} environment interpolation
// (§6 "Runtime config").
package fuzzconfig

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// TargetConfig describes one comparison endpoint's connection material.
type TargetConfig struct {
	BaseURL     string            `yaml:"base_url"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Cert        string            `yaml:"cert,omitempty"`
	Key         string            `yaml:"key,omitempty"`
	KeyPassword string            `yaml:"key_password,omitempty"`
	CABundle    string            `yaml:"ca_bundle,omitempty"`
	VerifySSL   *bool             `yaml:"verify_ssl,omitempty"`
	Ciphers     []string          `yaml:"ciphers,omitempty"`
}

// RateLimit caps outbound requests per second across both targets.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Secrets configures redaction of sensitive fields in written artifacts
// (§4.8). The JSONPaths are applied to response bodies only; request
// bodies are written unredacted.
type Secrets struct {
	RedactFields []string `yaml:"redact_fields,omitempty"`
}

// Config is the parsed runtime configuration (§6 "Runtime config").
type Config struct {
	Targets         map[string]TargetConfig `yaml:"targets"`
	ComparisonRules string                  `yaml:"comparison_rules"`
	RateLimit       *RateLimit              `yaml:"rate_limit,omitempty"`
	Secrets         *Secrets                `yaml:"secrets,omitempty"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses the YAML configuration at path, substituting
// every "${VAR}" occurrence from the process environment before
// unmarshaling. An unresolved variable is a fatal configuration error
// (§6, §7 "Configuration errors").
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	expanded, err := expandEnv(string(raw))
	if err != nil {
		return nil, fmt.Errorf("expanding config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// expandEnv substitutes every ${VAR} with its environment value, failing
// with a descriptive error if any referenced variable is unset (§6).
// os.Expand alone cannot distinguish "unset" from "empty", so missing
// variables are tracked explicitly.
func expandEnv(s string) (string, error) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved environment variable(s): %v", missing)
	}
	return out, nil
}

// Validate checks structural requirements not expressible in the YAML
// schema itself.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("no targets configured")
	}
	for name, t := range c.Targets {
		if t.BaseURL == "" {
			return fmt.Errorf("target %q: base_url is required", name)
		}
	}
	if c.RateLimit != nil && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	return nil
}

// Target looks up a named target, returning a configuration error if it
// does not exist (§7 "unknown target").
func (c *Config) Target(name string) (TargetConfig, error) {
	t, ok := c.Targets[name]
	if !ok {
		return TargetConfig{}, fmt.Errorf("unknown target %q", name)
	}
	return t, nil
}
