// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers is the gin adapter over the state assembler.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/hydrator/services/hydrator/backend"
	"github.com/AleutianAI/hydrator/services/hydrator/route"
	"github.com/AleutianAI/hydrator/services/hydrator/state"
	"github.com/AleutianAI/hydrator/services/hydrator/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// Hydrator is the operation the handlers expose. *state.Assembler
// implements it.
type Hydrator interface {
	Hydrate(ctx context.Context, req state.Request) (*state.Snapshot, error)
}

// Handlers contains the HTTP handlers for the hydrator.
type Handlers struct {
	hydrator Hydrator
	metrics  *telemetry.Metrics
}

// NewHandlers creates handlers over h.
func NewHandlers(h Hydrator) *Handlers {
	return &Handlers{hydrator: h}
}

// WithMetrics records request counters and durations into m.
func (h *Handlers) WithMetrics(m *telemetry.Metrics) *Handlers {
	h.metrics = m
	return h
}

// HandleState handles GET /v1/state.
//
// Description:
//
//	Hydrates the page named by the url query parameter and returns the
//	snapshot. An unrecognized url is not an error: the snapshot is empty.
//
// Query Parameters:
//
//	url: Page path (required)
//	observer: Viewing account (optional)
//	full: Full render mode (optional, default false)
//
// Response:
//
//	200 OK: state.Snapshot
//	400 Bad Request: Missing or invalid query
//	502 Bad Gateway: Backend network or RPC failure
//	500 Internal Server Error: Any other hydration failure
func (h *Handlers) HandleState(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	scope := getTimerScope(c)
	logger := slog.With("request_id", requestID, "handler", "HandleState")

	var q StateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		logger.Warn("Invalid state query", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request query",
			Code:    CodeInvalidRequest,
			Details: err.Error(),
		})
		return
	}

	page := route.Classify(route.PathOf(q.URL)).Page().String()
	start := time.Now()

	snap, err := h.hydrator.Hydrate(c.Request.Context(), state.Request{
		URL:        q.URL,
		Observer:   q.Observer,
		FullRender: q.Full,
		RequestID:  scope,
	})
	h.record(c.Request.Context(), page, start, err)

	if err != nil {
		status := http.StatusInternalServerError
		if backend.IsNetworkError(err) || backend.IsRemoteError(err) {
			status = http.StatusBadGateway
		}
		resp := ErrorResponse{
			Error:   "Hydration failed",
			Code:    CodeHydrationFailed,
			Details: err.Error(),
		}
		var herr *state.HydrationError
		if errors.As(err, &herr) {
			resp.Step = herr.Step
		}
		logger.Error("Hydration failed", "url", q.URL, "status", status, "error", err)
		c.JSON(status, resp)
		return
	}

	logger.Debug("Hydration complete",
		"url", q.URL,
		"page", page,
		"content", len(snap.Content),
	)
	c.JSON(http.StatusOK, snap)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

func (h *Handlers) record(ctx context.Context, page string, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		h.metrics.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("component", "handlers"),
			attribute.String("type", errorType(err)),
		))
	}
	attrs := metric.WithAttributes(
		attribute.String("page", page),
		attribute.String("outcome", outcome),
	)
	h.metrics.HydrationsTotal.Add(ctx, 1, attrs)
	h.metrics.HydrationDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func errorType(err error) string {
	switch {
	case backend.IsNetworkError(err):
		return "network"
	case backend.IsRemoteError(err):
		return "remote"
	default:
		return "internal"
	}
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	} else {
		c.Set(clientRequestIDKey, true)
	}
	c.Header("X-Request-ID", requestID)
	c.Set(requestIDKey, requestID)
	return requestID
}

// getTimerScope returns the id this request's timers are keyed by.
//
// A server-generated request id is used as is. A client-supplied one gets a
// fresh uuid suffix, since clients may send the same X-Request-ID on
// concurrent requests and timer labels must not be shared between them.
func getTimerScope(c *gin.Context) string {
	if scope := c.GetString(timerScopeKey); scope != "" {
		return scope
	}
	scope := getOrCreateRequestID(c)
	if c.GetBool(clientRequestIDKey) {
		scope += "-" + uuid.NewString()
	}
	c.Set(timerScopeKey, scope)
	return scope
}
