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
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains the hydrator's OTel instruments.
//
// Description:
//
//	All instruments use the "hydrator_" prefix. Operation durations come
//	from the timing registry through TimingSink; request-level counters are
//	recorded by the HTTP adapter.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// OperationDuration records timed operations in seconds, by operation.
	OperationDuration metric.Float64Histogram

	// HydrationsTotal counts hydrate requests by page and outcome.
	HydrationsTotal metric.Int64Counter

	// HydrationDuration records whole hydrate requests in seconds.
	HydrationDuration metric.Float64Histogram

	// ErrorsTotal counts errors by type and component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments registered.
//
// Description:
//
//	Registers all instruments with the provided meter. Returns an error if
//	any registration fails.
//
// Inputs:
//
//	meter - The OTel meter to use for registration.
//
// Outputs:
//
//	*Metrics - Initialized instruments.
//	error - Non-nil if registration fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.OperationDuration, err = meter.Float64Histogram(
		"hydrator_operation_duration_seconds",
		metric.WithDescription("Duration of timed hydration operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create operation_duration: %w", err)
	}

	m.HydrationsTotal, err = meter.Int64Counter(
		"hydrator_hydrations_total",
		metric.WithDescription("Total hydrate requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create hydrations_total: %w", err)
	}

	m.HydrationDuration, err = meter.Float64Histogram(
		"hydrator_hydration_duration_seconds",
		metric.WithDescription("Hydrate request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create hydration_duration: %w", err)
	}

	m.ErrorsTotal, err = meter.Int64Counter(
		"hydrator_errors_total",
		metric.WithDescription("Total errors by type and component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}
