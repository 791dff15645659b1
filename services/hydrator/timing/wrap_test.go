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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordedRegistry(opts ...Option) (*Registry, *tracetest.SpanRecorder, *sampleCollector) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	sink := &sampleCollector{}
	opts = append([]Option{WithTracerProvider(tp), WithSinks(sink)}, opts...)
	return New(opts...), recorder, sink
}

func TestWrap_Success(t *testing.T) {
	r, recorder, sink := newRecordedRegistry()

	got, err := Wrap(context.Background(), r, "content.posts[hot,]", "req-1",
		func(ctx context.Context) (int, error) {
			assert.Equal(t, 1, r.ActiveCount(), "timer should be running inside op")
			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 0, r.ActiveCount())
	require.Len(t, sink.All(), 1)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "content.posts", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestWrap_ErrorReturnedUnchanged(t *testing.T) {
	r, recorder, sink := newRecordedRegistry()
	sentinel := errors.New("backend down")

	_, err := Wrap(context.Background(), r, "op", "req", func(ctx context.Context) (string, error) {
		return "", sentinel
	})

	assert.Same(t, sentinel, err)
	assert.Equal(t, 0, r.ActiveCount())
	assert.Len(t, sink.All(), 1)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestWrap_PanicStillStops(t *testing.T) {
	r, recorder, sink := newRecordedRegistry()

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = Wrap(context.Background(), r, "op", "req", func(ctx context.Context) (int, error) {
			panic("boom")
		})
	})

	assert.Equal(t, 0, r.ActiveCount())
	assert.Len(t, sink.All(), 1)
	assert.Len(t, recorder.Ended(), 1)
}

func TestWrap_CanceledContextStillStops(t *testing.T) {
	r, _, _ := newRecordedRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Wrap(ctx, r, "op", "", func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, r.ActiveCount())
}

func TestWrap_DisabledRunsOp(t *testing.T) {
	r, recorder, sink := newRecordedRegistry(WithEnabled(false))

	got, err := Wrap(context.Background(), r, "op", "req", func(ctx context.Context) (string, error) {
		return "ran", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ran", got)
	assert.Empty(t, sink.All())
	assert.Empty(t, recorder.Ended())
}

func TestWrap_NilRegistry(t *testing.T) {
	got, err := Wrap(context.Background(), nil, "op", "req", func(ctx context.Context) (int, error) {
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestDo(t *testing.T) {
	r, _, sink := newRecordedRegistry()
	sentinel := errors.New("failed")

	err := Do(context.Background(), r, "op", "req", func(ctx context.Context) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Len(t, sink.All(), 1)
}
