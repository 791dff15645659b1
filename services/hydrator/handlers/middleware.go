// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"github.com/AleutianAI/hydrator/services/hydrator/telemetry"
	"github.com/AleutianAI/hydrator/services/hydrator/timing"
	"github.com/gin-gonic/gin"
)

const (
	requestIDKey       = "request_id"
	clientRequestIDKey = "request_id_from_client"
	timerScopeKey      = "timer_scope"
)

// RequestID assigns every request an X-Request-ID before the handlers run.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		getOrCreateRequestID(c)
		c.Next()
	}
}

// TraceContext continues the caller's trace from W3C trace headers.
// NewRouter mounts it in place of otelgin when no service name is set.
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := telemetry.ExtractContext(c.Request.Context(), c.Request.Header)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Timing times every request in reg under "http[<method>,<route>]",
// scoped by the request's timer scope. Unmatched routes use the label
// "http[<method>,unmatched]".
func Timing(reg *timing.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !reg.Enabled() {
			c.Next()
			return
		}
		routePath := c.FullPath()
		if routePath == "" {
			routePath = "unmatched"
		}
		scope := getTimerScope(c)
		label := reg.Start(timing.Label("http", c.Request.Method, routePath), scope)
		defer reg.StopContext(c.Request.Context(), label, scope)

		c.Next()
	}
}
