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
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// rpcHandler decodes a JSON-RPC request and answers with respond's output.
func rpcHandler(t *testing.T, respond func(req rpcRequest) string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req rpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, respond(req))
	}
}

func newTestTransport(urls ...string) *Transport {
	return NewTransport(NewEndpointPool(urls, nil), WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
}

func TestTransport_Call_Success(t *testing.T) {
	var mu sync.Mutex
	var gotMethod, gotVersion, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotContentType = r.Header.Get("Content-Type")
		mu.Unlock()
		rpcHandler(t, func(req rpcRequest) string {
			mu.Lock()
			gotMethod, gotVersion = req.Method, req.JSONRPC
			mu.Unlock()
			return `{"jsonrpc":"2.0","id":1,"result":[{"author":"alice","permlink":"p"}]}`
		})(w, r)
	}))
	defer srv.Close()

	tr := newTestTransport(srv.URL)
	raw, err := tr.Call(context.Background(), MethodRankedPosts, map[string]string{"sort": "hot"})

	require.NoError(t, err)
	assert.JSONEq(t, `[{"author":"alice","permlink":"p"}]`, string(raw))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, MethodRankedPosts, gotMethod)
	assert.Equal(t, "2.0", gotVersion)
	assert.Equal(t, "application/json", gotContentType)
}

func TestTransport_Call_IncrementsID(t *testing.T) {
	var mu sync.Mutex
	var ids []uint64
	srv := httptest.NewServer(rpcHandler(t, func(req rpcRequest) string {
		mu.Lock()
		ids = append(ids, req.ID)
		mu.Unlock()
		return `{"jsonrpc":"2.0","id":1,"result":null}`
	}))
	defer srv.Close()

	tr := newTestTransport(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := tr.Call(context.Background(), "m", nil)
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

func TestTransport_Call_RemoteError(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, func(req rpcRequest) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid tag","data":{"tag":"x"}}}`
	}))
	defer srv.Close()

	tr := newTestTransport(srv.URL)
	_, err := tr.Call(context.Background(), MethodRankedPosts, nil)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, -32602, re.Code)
	assert.Equal(t, "invalid tag", re.Message)
	assert.JSONEq(t, `{"tag":"x"}`, string(re.Data))
	assert.False(t, IsNetworkError(err))
}

func TestTransport_Call_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := newTestTransport(srv.URL)
	_, err := tr.Call(context.Background(), MethodProfile, nil)

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.Equal(t, srv.URL, ne.Endpoint)
	assert.Contains(t, err.Error(), "502")
}

func TestTransport_Call_GarbledBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	}))
	defer srv.Close()

	tr := newTestTransport(srv.URL)
	_, err := tr.Call(context.Background(), MethodProfile, nil)

	assert.True(t, IsNetworkError(err))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTransport_Call_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := newTestTransport(url)
	_, err := tr.Call(context.Background(), MethodRankedPosts, nil)

	assert.True(t, IsNetworkError(err))
}

func TestTransport_Call_NoEndpoints(t *testing.T) {
	tr := newTestTransport()

	_, err := tr.Call(context.Background(), MethodRankedPosts, nil)

	assert.True(t, IsNetworkError(err))
	assert.ErrorIs(t, err, ErrNoEndpoints)
}

func TestTransport_Call_CanceledWhileRateLimited(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, func(req rpcRequest) string {
		return `{"jsonrpc":"2.0","id":1,"result":null}`
	}))
	defer srv.Close()

	tr := NewTransport(NewEndpointPool([]string{srv.URL}, nil), WithRateLimit(0.001, 1))

	// First call consumes the only token.
	_, err := tr.Call(context.Background(), "m", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tr.Call(ctx, "m", nil)

	assert.True(t, IsNetworkError(err))
}

func TestTransport_Call_UsesRotatedEndpoint(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	up := httptest.NewServer(rpcHandler(t, func(req rpcRequest) string {
		return `{"jsonrpc":"2.0","id":1,"result":"ok"}`
	}))
	defer up.Close()

	pool := NewEndpointPool([]string{down.URL, up.URL}, nil)
	tr := NewTransport(pool)

	_, err := tr.Call(context.Background(), "m", nil)
	require.True(t, IsNetworkError(err))

	pool.Rotate()
	raw, err := tr.Call(context.Background(), "m", nil)
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(raw))
}

func TestTransport_Call_UnencodableParams(t *testing.T) {
	tr := newTestTransport("http://unused")

	_, err := tr.Call(context.Background(), "m", map[string]any{"ch": make(chan int)})

	require.Error(t, err)
	assert.False(t, IsNetworkError(err))
	var ue *json.UnsupportedTypeError
	assert.True(t, errors.As(err, &ue))
}

func TestWithRateLimit_Disabled(t *testing.T) {
	tr := NewTransport(NewEndpointPool(nil, nil), WithRateLimit(0, 10))
	assert.Nil(t, tr.limiter)

	tr = NewTransport(NewEndpointPool(nil, nil), WithRateLimit(5, 0))
	require.NotNil(t, tr.limiter)
	assert.Equal(t, 1, tr.limiter.Burst())
}

func TestTransport_Call_InjectsTraceContextIntoCustomClient(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	var mu sync.Mutex
	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		traceparent = r.Header.Get("traceparent")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":[]}`)
	}))
	defer srv.Close()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), sc)

	_, err := newTestTransport(srv.URL).Call(ctx, MethodRankedPosts, nil)

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "00-"+sc.TraceID().String()+"-"+sc.SpanID().String()+"-01", traceparent)
}
