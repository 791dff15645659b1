// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backend

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var endpointRotations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hydrator_endpoint_rotations_total",
	Help: "Number of times the backend endpoint pool advanced to the next endpoint.",
})

// EndpointPool is an ordered list of backend URLs with a current position.
//
// # Description
//
// Transport sends every call to Current. Rotate advances to the next
// endpoint and wraps around; it is the default endpoint-reset hook handed
// to the state assembler. SetEndpoints replaces the list when configuration
// is reloaded.
//
// # Thread Safety
//
// Safe for concurrent use.
type EndpointPool struct {
	mu        sync.RWMutex
	endpoints []string
	current   int
	logger    *slog.Logger
}

// NewEndpointPool creates a pool. A nil logger uses slog.Default().
func NewEndpointPool(endpoints []string, logger *slog.Logger) *EndpointPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &EndpointPool{
		endpoints: slices.Clone(endpoints),
		logger:    logger,
	}
}

// Current returns the endpoint in use.
func (p *EndpointPool) Current() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.endpoints) == 0 {
		return "", ErrNoEndpoints
	}
	return p.endpoints[p.current], nil
}

// Rotate advances to the next endpoint, wrapping to the first.
func (p *EndpointPool) Rotate() {
	p.mu.Lock()
	if len(p.endpoints) == 0 {
		p.mu.Unlock()
		return
	}
	from := p.endpoints[p.current]
	p.current = (p.current + 1) % len(p.endpoints)
	to := p.endpoints[p.current]
	p.mu.Unlock()

	endpointRotations.Inc()
	p.logger.Warn("rotated backend endpoint", "from", from, "to", to)
}

// SetEndpoints replaces the endpoint list.
//
// If the current endpoint is still present it stays current; otherwise the
// pool starts again at the first entry.
func (p *EndpointPool) SetEndpoints(endpoints []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var cur string
	if len(p.endpoints) > 0 {
		cur = p.endpoints[p.current]
	}
	p.endpoints = slices.Clone(endpoints)
	p.current = 0
	if i := slices.Index(p.endpoints, cur); i >= 0 {
		p.current = i
	}
}

// Endpoints returns a copy of the configured list.
func (p *EndpointPool) Endpoints() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.endpoints)
}
