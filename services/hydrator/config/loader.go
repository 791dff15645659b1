// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation and environment parse failure.
var ErrInvalidConfig = errors.New("invalid config")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Environment variables read by ApplyEnv.
const (
	EnvBackendEndpoints       = "HYDRATOR_BACKEND_ENDPOINTS"
	EnvInstrumentationEnabled = "HYDRATOR_INSTRUMENTATION_ENABLED"
	EnvLogLevel               = "HYDRATOR_LOG_LEVEL"
	EnvLogFormat              = "HYDRATOR_LOG_FORMAT"
	EnvTopicsLimit            = "HYDRATOR_TOPICS_LIMIT"
	EnvParallelAuxiliary      = "HYDRATOR_PARALLEL_AUXILIARY"
	EnvTracesExporter         = "OTEL_TRACES_EXPORTER"
	EnvMetricsExporter        = "OTEL_METRICS_EXPORTER"
	EnvOTLPEndpoint           = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Load reads, overrides and validates the configuration at path.
//
// # Inputs
//
//   - path: YAML file. Empty means defaults plus environment only.
//
// # Outputs
//
//   - *Config: The validated configuration.
//   - error: Read failure, YAML syntax error, or ErrInvalidConfig.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse layers data over DefaultConfig, applies the environment and
// validates the result. Empty data yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides cfg from HYDRATOR_* and OTEL_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvBackendEndpoints); ok {
		cfg.Backend.Endpoints = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvInstrumentationEnabled); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvInstrumentationEnabled, v, err)
		}
		cfg.Instrumentation.Enabled = b
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvTopicsLimit); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvTopicsLimit, v, err)
		}
		cfg.Hydration.TopicsLimit = n
	}
	if v, ok := os.LookupEnv(EnvParallelAuxiliary); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvParallelAuxiliary, v, err)
		}
		cfg.Hydration.ParallelAuxiliary = b
	}
	if v, ok := os.LookupEnv(EnvTracesExporter); ok {
		cfg.Telemetry.TraceExporter = v
	}
	if v, ok := os.LookupEnv(EnvMetricsExporter); ok {
		cfg.Telemetry.MetricExporter = v
	}
	if v, ok := os.LookupEnv(EnvOTLPEndpoint); ok {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return nil
}

// Validate checks struct tags and the community pattern.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := regexp.Compile(c.Hydration.CommunityPattern); err != nil {
		return fmt.Errorf("%w: hydration.community_pattern: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CommunityRegexp compiles Hydration.CommunityPattern. Validate guarantees
// it compiles.
func (c *Config) CommunityRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.Hydration.CommunityPattern)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
