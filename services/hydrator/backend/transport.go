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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/hydrator/services/hydrator/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// DefaultTimeout is the per-call HTTP timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// HTTPClient is the subset of *http.Client used by Transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Transport is a Caller that speaks JSON-RPC 2.0 over HTTP POST.
//
// # Description
//
// Each call goes to the pool's current endpoint. Calls are paced by an
// optional token-bucket limiter shared by every caller of the Transport;
// waiting on it honours context cancellation. The default HTTP client is
// instrumented with otelhttp, which propagates trace context. A client set
// with WithHTTPClient is not assumed to be instrumented, so Call injects
// trace context into its request headers itself.
//
// # Thread Safety
//
// Safe for concurrent use.
type Transport struct {
	pool    *EndpointPool
	client  HTTPClient
	limiter *rate.Limiter
	logger  *slog.Logger
	timeout time.Duration
	nextID  atomic.Uint64

	injectTrace bool
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c HTTPClient) TransportOption {
	return func(t *Transport) {
		if c != nil {
			t.client = c
			t.injectTrace = true
		}
	}
}

// WithRateLimit paces calls at rps with the given burst. rps <= 0 disables
// limiting.
func WithRateLimit(rps float64, burst int) TransportOption {
	return func(t *Transport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithTransportLogger sets the logger for call diagnostics.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport creates a Transport over pool.
func NewTransport(pool *EndpointPool, opts ...TransportOption) *Transport {
	t := &Transport{
		pool:    pool,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   t.timeout,
		}
	}
	return t
}

// Call implements Caller.
//
// # Outputs
//
//   - json.RawMessage: The "result" member. May be "null".
//   - error: *NetworkError when no JSON-RPC response was obtained,
//     *RemoteError when the response carried an error object.
func (t *Transport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	endpoint, err := t.pool.Current()
	if err != nil {
		return nil, &NetworkError{Method: method, Err: err}
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Method: method, Endpoint: endpoint, Err: err}
		}
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      t.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Method: method, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.injectTrace {
		telemetry.InjectContext(ctx, req.Header)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &NetworkError{
			Method:   method,
			Endpoint: endpoint,
			Err:      fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Method: method, Endpoint: endpoint, Err: err}
	}

	var rr rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, &NetworkError{
			Method:   method,
			Endpoint: endpoint,
			Err:      fmt.Errorf("%w: %v", ErrMalformedResponse, err),
		}
	}

	t.logger.Debug("backend call",
		"method", method,
		"endpoint", endpoint,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if rr.Error != nil {
		return nil, &RemoteError{
			Method:  method,
			Code:    rr.Error.Code,
			Message: rr.Error.Message,
			Data:    rr.Error.Data,
		}
	}
	return rr.Result, nil
}
