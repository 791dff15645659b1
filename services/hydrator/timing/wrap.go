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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Wrap times op under base and requestID.
//
// # Description
//
// Starts a timer, runs op, and stops the timer on every exit path: normal
// return, error, context cancellation, and panic. The error from op is
// returned unchanged. When the registry is enabled, op also runs inside an
// OpenTelemetry span named after the operation prefix of base.
//
// A nil or disabled registry runs op directly.
//
// # Inputs
//
//   - ctx: Passed to op.
//   - r: Registry. May be nil.
//   - base: Operation label, usually built with Label.
//   - requestID: Request scope. May be empty.
//   - op: The work to time.
//
// # Outputs
//
//   - T: op's result.
//   - error: op's error, unchanged.
func Wrap[T any](ctx context.Context, r *Registry, base, requestID string, op func(context.Context) (T, error)) (T, error) {
	if !r.Enabled() {
		return op(ctx)
	}

	attrs := []attribute.KeyValue{attribute.String("timing.label", base)}
	if requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	ctx, span := r.tracer.Start(ctx, Operation(base), trace.WithAttributes(attrs...))
	defer span.End()

	label := r.Start(base, requestID)
	defer r.StopContext(ctx, label, requestID)

	result, err := op(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// Do is Wrap for operations that return only an error.
func Do(ctx context.Context, r *Registry, base, requestID string, op func(context.Context) error) error {
	_, err := Wrap(ctx, r, base, requestID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
