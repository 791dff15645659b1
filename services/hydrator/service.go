// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hydrator wires the page state hydrator from a config.Config.
//
// The object graph is:
//
//	EndpointPool -> Transport -> backend.Client -> state.Assembler -> handlers
//	timing.Registry (LogSink + telemetry.TimingSink) shared by all layers
//
// The endpoint pool's Rotate is the assembler's endpoint-reset hook.
package hydrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/hydrator/services/hydrator/backend"
	"github.com/AleutianAI/hydrator/services/hydrator/config"
	"github.com/AleutianAI/hydrator/services/hydrator/handlers"
	"github.com/AleutianAI/hydrator/services/hydrator/state"
	"github.com/AleutianAI/hydrator/services/hydrator/telemetry"
	"github.com/AleutianAI/hydrator/services/hydrator/timing"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// Service is a fully wired hydrator.
//
// Thread Safety:
//
//	Safe for concurrent use. ApplyConfig may run while requests are served.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *timing.Registry
	pool      *backend.EndpointPool
	client    *backend.Client
	assembler *state.Assembler
	handlers  *handlers.Handlers
	metrics   *telemetry.Metrics
}

// Option configures New.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	meter      metric.Meter
	httpClient backend.HTTPClient
	cleaner    state.Cleaner
}

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter sets the meter for hydrator instruments. Default: the global
// meter provider.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithHTTPClient replaces the backend HTTP client.
func WithHTTPClient(c backend.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithCleaner replaces state.DefaultCleaner.
func WithCleaner(c state.Cleaner) Option {
	return func(o *options) {
		o.cleaner = c
	}
}

// New builds a Service from cfg.
//
// Description:
//
//	Validates cfg, then builds the timing registry (enabled per
//	cfg.Instrumentation.Enabled, read once here), the endpoint pool,
//	transport, backend client, assembler and HTTP handlers.
//
// Inputs:
//
//	cfg - Configuration. Must not be nil.
//	opts - Functional options.
//
// Outputs:
//
//	*Service - Ready to use.
//	error - Invalid config or instrument registration failure.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.meter == nil {
		o.meter = otel.GetMeterProvider().Meter("github.com/AleutianAI/hydrator")
	}

	metrics, err := telemetry.NewMetrics(o.meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	timingSink, err := telemetry.NewTimingSink(metrics)
	if err != nil {
		return nil, err
	}

	registry := timing.New(
		timing.WithEnabled(cfg.Instrumentation.Enabled),
		timing.WithLogger(o.logger),
		timing.WithSinks(
			timing.NewLogSink(o.logger, cfg.Instrumentation.SlowThreshold),
			timingSink,
		),
	)

	pool := backend.NewEndpointPool(cfg.Backend.Endpoints, o.logger)
	transportOpts := []backend.TransportOption{
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithRateLimit(cfg.Backend.RateLimit, cfg.Backend.Burst),
		backend.WithTransportLogger(o.logger),
	}
	if o.httpClient != nil {
		transportOpts = append(transportOpts, backend.WithHTTPClient(o.httpClient))
	}
	client, err := backend.NewClient(backend.NewTransport(pool, transportOpts...))
	if err != nil {
		return nil, err
	}

	asmOpts := []state.Option{
		state.WithRegistry(registry),
		state.WithLogger(o.logger),
		state.WithEndpointReset(pool.Rotate),
		state.WithParallelAuxiliary(cfg.Hydration.ParallelAuxiliary),
		state.WithCommunityPattern(cfg.CommunityRegexp()),
		state.WithTopicsLimit(cfg.Hydration.TopicsLimit),
	}
	if o.cleaner != nil {
		asmOpts = append(asmOpts, state.WithCleaner(o.cleaner))
	}
	assembler, err := state.New(client, asmOpts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:       cfg,
		logger:    o.logger,
		registry:  registry,
		pool:      pool,
		client:    client,
		assembler: assembler,
		handlers:  handlers.NewHandlers(assembler).WithMetrics(metrics),
		metrics:   metrics,
	}, nil
}

// Hydrate runs one hydration. See state.Assembler.Hydrate.
func (s *Service) Hydrate(ctx context.Context, req state.Request) (*state.Snapshot, error) {
	return s.assembler.Hydrate(ctx, req)
}

// Registry returns the timing registry.
func (s *Service) Registry() *timing.Registry {
	return s.registry
}

// Pool returns the backend endpoint pool.
func (s *Service) Pool() *backend.EndpointPool {
	return s.pool
}

// Router returns the gin engine serving /v1 and, when the Prometheus
// exporter is active, /metrics.
func (s *Service) Router() *gin.Engine {
	return handlers.NewRouter(s.handlers, handlers.RouterConfig{
		ServiceName: s.cfg.Telemetry.ServiceName,
		Registry:    s.registry,
		Metrics:     telemetry.MetricsHandler(),
	})
}

// ApplyConfig applies the hot-reloadable parts of cfg: the backend
// endpoint list. Everything else requires a restart.
func (s *Service) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.pool.SetEndpoints(cfg.Backend.Endpoints)
	s.logger.Info("applied config reload", "endpoints", len(cfg.Backend.Endpoints))
}

// Sweep removes orphaned timers older than the configured SweepAfter and
// returns how many were removed.
func (s *Service) Sweep() int {
	after := s.cfg.Instrumentation.SweepAfter
	if after <= 0 || !s.registry.Enabled() {
		return 0
	}
	return s.registry.Sweep(after)
}

// RunSweeper calls Sweep every SweepAfter until ctx is done. Returns at
// once when sweeping is disabled.
func (s *Service) RunSweeper(ctx context.Context) {
	after := s.cfg.Instrumentation.SweepAfter
	if after <= 0 || !s.registry.Enabled() {
		return
	}
	ticker := time.NewTicker(after)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Run performs the service's background work until ctx is done: the
// orphaned-timer sweeper and, when configPath is set, the config watcher
// feeding ApplyConfig. Hosts call it next to mounting Router on their own
// HTTP server.
func (s *Service) Run(ctx context.Context, configPath string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.RunSweeper(gctx)
		return nil
	})
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, configPath, s.logger, s.ApplyConfig)
		})
	}
	return g.Wait()
}
