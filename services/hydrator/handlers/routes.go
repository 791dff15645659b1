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
	"net/http"

	"github.com/AleutianAI/hydrator/services/hydrator/timing"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the hydrator routes with the router group.
//
// Description:
//
//	Registers the endpoints below under rg. The group should already have
//	any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET /v1/state - Hydrate a page
//	GET /v1/health - Health check
//
// Example:
//
//	v1 := router.Group("/v1")
//	handlers.RegisterRoutes(v1, h)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.GET("/state", handlers.HandleState)
	rg.GET("/health", handlers.HandleHealth)
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName names the otelgin server spans.
	ServiceName string

	// Registry times each request. May be nil.
	Registry *timing.Registry

	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler
}

// NewRouter builds the gin engine with recovery, tracing, request ids,
// request timing and the /v1 routes.
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	} else {
		router.Use(TraceContext())
	}
	router.Use(RequestID())
	router.Use(Timing(cfg.Registry))

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, h)
	return router
}
