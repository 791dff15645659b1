// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/AleutianAI/hydrator/pkg/logging"
	"github.com/AleutianAI/hydrator/services/hydrator/config"
	"github.com/AleutianAI/hydrator/services/hydrator/telemetry"
)

// runtime is what every service-backed command needs.
type runtime struct {
	cfg      *config.Config
	logger   *logging.Logger
	shutdown func(context.Context) error
}

func (r *runtime) Close(ctx context.Context) {
	if r.shutdown != nil {
		if err := r.shutdown(ctx); err != nil {
			r.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
	_ = r.logger.Close()
}

// setup loads the config, applies flag overrides, builds the logger and
// initializes telemetry. The Prometheus exporter is replaced by "none":
// the process exits before anything could scrape it.
func setup(ctx context.Context, stderr io.Writer) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: cfg.Telemetry.ServiceName,
		Format:  logging.Format(cfg.Logging.Format),
		Output:  stderr,
	})

	telCfg := cfg.Telemetry
	if telCfg.MetricExporter == telemetry.ExporterPrometheus {
		telCfg.MetricExporter = telemetry.ExporterNone
	}
	shutdown, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, shutdown: shutdown}, nil
}
