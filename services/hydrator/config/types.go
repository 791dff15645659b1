// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and watches the hydrator configuration file.
//
// A configuration is built in three layers: DefaultConfig, then the YAML
// file (fields present in the file replace defaults), then HYDRATOR_* and
// OTEL_* environment variables. The result is validated before use.
package config

import (
	"time"

	"github.com/AleutianAI/hydrator/services/hydrator/telemetry"
)

// DefaultEndpoint is the backend used when none is configured.
const DefaultEndpoint = "https://api.hive.blog"

// Config is the complete hydrator configuration.
type Config struct {
	Backend         BackendConfig         `yaml:"backend"`
	Instrumentation InstrumentationConfig `yaml:"instrumentation"`
	Hydration       HydrationConfig       `yaml:"hydration"`
	Logging         LoggingConfig         `yaml:"logging"`
	Telemetry       telemetry.Config      `yaml:"telemetry"`
}

// BackendConfig is the JSON-RPC backend.
type BackendConfig struct {
	// Endpoints are tried in order. The pool rotates on network failure.
	Endpoints []string `yaml:"endpoints" validate:"required,min=1,dive,url"`

	// Timeout bounds a single call. Zero means the transport default.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// RateLimit is calls per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`

	// Burst is the limiter bucket size.
	Burst int `yaml:"burst" validate:"gte=0"`
}

// InstrumentationConfig controls the timing registry.
type InstrumentationConfig struct {
	Enabled bool `yaml:"enabled"`

	// SlowThreshold promotes timer logs from Debug to Warn. Zero disables.
	SlowThreshold time.Duration `yaml:"slow_threshold" validate:"gte=0"`

	// SweepAfter removes timers running longer than this. Zero disables.
	SweepAfter time.Duration `yaml:"sweep_after" validate:"gte=0"`
}

// HydrationConfig tunes the state assembler.
type HydrationConfig struct {
	TopicsLimit int `yaml:"topics_limit" validate:"gte=1"`

	// CommunityPattern is a regular expression matching community tags.
	CommunityPattern string `yaml:"community_pattern" validate:"required"`

	ParallelAuxiliary bool `yaml:"parallel_auxiliary"`
}

// LoggingConfig is passed to pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=auto text json"`
	Dir    string `yaml:"dir"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Endpoints: []string{DefaultEndpoint},
			Timeout:   10 * time.Second,
			RateLimit: 0,
			Burst:     1,
		},
		Instrumentation: InstrumentationConfig{
			Enabled:       false,
			SlowThreshold: 500 * time.Millisecond,
			SweepAfter:    5 * time.Minute,
		},
		Hydration: HydrationConfig{
			TopicsLimit:       12,
			CommunityPattern:  `^hive-\d+$`,
			ParallelAuxiliary: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}
