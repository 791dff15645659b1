// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package timing

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Disabled is the label returned by Start when instrumentation is off.
const Disabled = ""

// tracerName is the instrumentation scope for spans opened by Wrap.
const tracerName = "github.com/AleutianAI/hydrator/services/hydrator/timing"

// entry is one running timer.
type entry struct {
	base      string
	requestID string
	start     time.Time
}

// Registry is the store of running timers.
//
// # Description
//
// Registry maps labels to start instants. It is meant to be constructed once
// per process and injected into the components that time their work.
//
// # Thread Safety
//
// Safe for concurrent use. The timer map is guarded by a mutex; sinks are
// invoked after the lock is released.
type Registry struct {
	enabled bool
	now     func() time.Time
	suffix  func() string
	logger  *slog.Logger
	sinks   []Sink
	tracer  trace.Tracer

	mu     sync.Mutex
	active map[string]entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithEnabled sets whether timers are recorded. Default: true.
func WithEnabled(enabled bool) Option {
	return func(r *Registry) {
		r.enabled = enabled
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSuffix replaces the random suffix generator used for labels without a
// request id.
func WithSuffix(suffix func() string) Option {
	return func(r *Registry) {
		if suffix != nil {
			r.suffix = suffix
		}
	}
}

// WithLogger sets the logger for missing-timer and sweep warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSinks appends sinks that receive every stopped timer.
func WithSinks(sinks ...Sink) Option {
	return func(r *Registry) {
		for _, s := range sinks {
			if s != nil {
				r.sinks = append(r.sinks, s)
			}
		}
	}
}

// WithTracerProvider sets the provider used for Wrap spans. Default: the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Registry) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a Registry.
//
// # Inputs
//
//   - opts: Functional options. With no options the registry is enabled,
//     logs to slog.Default() and has no sinks.
//
// # Outputs
//
//   - *Registry: Ready to use. A disabled registry holds no map.
func New(opts ...Option) *Registry {
	r := &Registry{
		enabled: true,
		now:     time.Now,
		suffix:  randomSuffix,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.enabled {
		r.active = make(map[string]entry)
	}
	return r
}

// Enabled reports whether the registry records timers.
func (r *Registry) Enabled() bool {
	return r != nil && r.enabled
}

// Start begins a timer and returns its label.
//
// # Description
//
// The label is base+requestID when requestID is non-empty. Otherwise it is
// base, "@", the start instant in unix nanoseconds, "-" and a random suffix.
// Starting a request-id label that is already running replaces its start.
//
// # Inputs
//
//   - base: Operation label, usually built with Label.
//   - requestID: Request scope. May be empty.
//
// # Outputs
//
//   - string: The label to pass to Stop. Disabled when the registry is off.
func (r *Registry) Start(base, requestID string) string {
	if !r.Enabled() {
		return Disabled
	}
	now := r.now()
	label := r.labelFor(base, requestID, now)

	r.mu.Lock()
	r.active[label] = entry{base: base, requestID: requestID, start: now}
	r.mu.Unlock()
	return label
}

// Stop ends a timer. See StopContext.
func (r *Registry) Stop(label, requestID string) (time.Duration, bool) {
	return r.StopContext(context.Background(), label, requestID)
}

// StopContext ends a timer and emits its sample to every sink.
//
// # Description
//
// The label is looked up as given. If it is not running and requestID is
// non-empty, label+requestID is tried next, so callers may pass either the
// token returned by Start or the original base label plus the request id.
// A timer that is not found is logged as a warning. It is never an error.
//
// # Inputs
//
//   - ctx: Passed to sinks.
//   - label: Token from Start, or the base label.
//   - requestID: Request scope used by Start. May be empty.
//
// # Outputs
//
//   - time.Duration: Elapsed time, zero when not found.
//   - bool: True if a running timer was stopped.
func (r *Registry) StopContext(ctx context.Context, label, requestID string) (time.Duration, bool) {
	if !r.Enabled() {
		return 0, false
	}

	r.mu.Lock()
	key := label
	e, ok := r.active[key]
	if !ok && requestID != "" {
		key = label + requestID
		e, ok = r.active[key]
	}
	if ok {
		delete(r.active, key)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("timer absent or already stopped",
			"label", label,
			"request_id", requestID,
		)
		return 0, false
	}

	elapsed := r.now().Sub(e.start)
	sample := Sample{
		Label:     key,
		Base:      e.base,
		RequestID: e.requestID,
		Started:   e.start,
		Elapsed:   elapsed,
	}
	for _, s := range r.sinks {
		s.Record(ctx, sample)
	}
	return elapsed, true
}

// ActiveCount returns the number of running timers.
func (r *Registry) ActiveCount() int {
	if !r.Enabled() {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Reset discards every running timer without emitting samples.
func (r *Registry) Reset() {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	clear(r.active)
	r.mu.Unlock()
}

// Sweep removes timers that have been running longer than olderThan.
//
// # Description
//
// Orphaned timers come from callers that started a timer and never stopped
// it. Each removed timer is logged at Warn with its label and age; no sample
// is emitted.
//
// # Outputs
//
//   - int: Number of timers removed.
func (r *Registry) Sweep(olderThan time.Duration) int {
	if !r.Enabled() {
		return 0
	}
	now := r.now()

	type orphan struct {
		label string
		e     entry
	}
	var removed []orphan

	r.mu.Lock()
	for label, e := range r.active {
		if now.Sub(e.start) > olderThan {
			removed = append(removed, orphan{label: label, e: e})
			delete(r.active, label)
		}
	}
	r.mu.Unlock()

	for _, o := range removed {
		r.logger.Warn("swept orphaned timer",
			"label", o.label,
			"request_id", o.e.requestID,
			"age", now.Sub(o.e.start).String(),
		)
	}
	return len(removed)
}

// labelFor computes the registry key for a start.
func (r *Registry) labelFor(base, requestID string, now time.Time) string {
	if requestID != "" {
		return base + requestID
	}
	return base + "@" + strconv.FormatInt(now.UnixNano(), 10) + "-" + r.suffix()
}

// randomSuffix returns the first eight hex digits of a random UUID.
func randomSuffix() string {
	return uuid.NewString()[:8]
}
