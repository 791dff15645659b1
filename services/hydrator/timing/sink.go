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
	"time"
)

// Sample is one stopped timer.
type Sample struct {
	// Label is the full registry key (base plus request id or suffix).
	Label string

	// Base is the label passed to Start.
	Base string

	// RequestID is the request the timer was scoped to. Empty when absent.
	RequestID string

	// Started is when the timer was started.
	Started time.Time

	// Elapsed is the measured wall-clock duration.
	Elapsed time.Duration
}

// Sink receives stopped timer samples.
//
// Record is called synchronously from Stop, outside the registry lock.
// Implementations must be safe for concurrent use and should not block.
type Sink interface {
	Record(ctx context.Context, s Sample)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, s Sample)

// Record calls f(ctx, s).
func (f SinkFunc) Record(ctx context.Context, s Sample) {
	f(ctx, s)
}

// LogSink writes samples to a slog.Logger.
//
// Samples at or above SlowThreshold are logged at Warn, everything else at
// Debug. A zero SlowThreshold disables the Warn path.
type LogSink struct {
	Logger        *slog.Logger
	SlowThreshold time.Duration
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger, slowThreshold time.Duration) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger, SlowThreshold: slowThreshold}
}

// Record implements Sink.
func (s *LogSink) Record(ctx context.Context, sample Sample) {
	attrs := []any{
		"operation", Operation(sample.Base),
		"label", sample.Base,
		"elapsed_ms", float64(sample.Elapsed.Microseconds()) / 1000,
	}
	if sample.RequestID != "" {
		attrs = append(attrs, "request_id", sample.RequestID)
	}
	if s.SlowThreshold > 0 && sample.Elapsed >= s.SlowThreshold {
		s.Logger.WarnContext(ctx, "slow operation", attrs...)
		return
	}
	s.Logger.DebugContext(ctx, "timer stopped", attrs...)
}
