// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"

	"github.com/AleutianAI/hydrator/services/hydrator/timing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TimingSink exports stopped timers to the OperationDuration histogram.
//
// Only the operation prefix of the label is used as an attribute. Tags,
// permlinks and request ids stay out of metric cardinality.
type TimingSink struct {
	metrics *Metrics
}

var _ timing.Sink = (*TimingSink)(nil)

// NewTimingSink creates a TimingSink.
func NewTimingSink(m *Metrics) (*TimingSink, error) {
	if m == nil {
		return nil, ErrNilMetrics
	}
	return &TimingSink{metrics: m}, nil
}

// Record implements timing.Sink.
func (s *TimingSink) Record(ctx context.Context, sample timing.Sample) {
	s.metrics.OperationDuration.Record(ctx, sample.Elapsed.Seconds(),
		metric.WithAttributes(attribute.String("operation", timing.Operation(sample.Base))),
	)
}
