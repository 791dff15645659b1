// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hydrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/hydrator/services/hydrator/backend"
	"github.com/AleutianAI/hydrator/services/hydrator/config"
	"github.com/AleutianAI/hydrator/services/hydrator/state"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Test Helpers
// =============================================================================

// rpcNode is a fake bridge JSON-RPC node.
type rpcNode struct {
	mu      sync.Mutex
	methods []string
}

func (n *rpcNode) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.methods...)
}

func (n *rpcNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params map[string]any  `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n.mu.Lock()
	n.methods = append(n.methods, req.Method)
	n.mu.Unlock()

	var result any
	switch req.Method {
	case backend.MethodRankedPosts:
		result = []map[string]any{
			{"author": "alice", "permlink": "a1", "title": "first"},
			{"author": "bob", "permlink": "b1", "title": "second"},
		}
	case backend.MethodAccountPosts:
		result = []map[string]any{{"author": req.Params["account"], "permlink": "p1"}}
	case backend.MethodDiscussion:
		result = map[string]any{
			"alice/a1":  map[string]any{"author": "alice", "permlink": "a1"},
			"bob/re-a1": map[string]any{"author": "bob", "permlink": "re-a1"},
		}
	case backend.MethodCommunity:
		result = map[string]any{"name": req.Params["name"], "title": "Cats"}
	case backend.MethodProfile:
		result = map[string]any{"name": req.Params["account"], "reputation": 70}
	case backend.MethodTrendingTopics:
		result = [][]string{{"hive-123", "Cats"}, {"hive-456", "Dogs"}}
	default:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]any{"code": -32601, "message": "method not found"},
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(endpoints ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Backend.Endpoints = endpoints
	cfg.Backend.Timeout = 2 * time.Second
	cfg.Instrumentation.Enabled = true
	cfg.Telemetry.TraceExporter = "none"
	return &cfg
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	svc, err := New(cfg, WithLogger(quietLogger()), WithMeter(provider.Meter("service-test")))
	require.NoError(t, err)
	return svc
}

// deadEndpoint returns the URL of a server that is no longer listening.
func deadEndpoint() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

// =============================================================================
// End to end
// =============================================================================

func TestService_Hydrate_FullRender(t *testing.T) {
	node := &rpcNode{}
	srv := httptest.NewServer(node)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Hydration.ParallelAuxiliary = true
	svc := newTestService(t, cfg)

	snap, err := svc.Hydrate(context.Background(), state.Request{
		URL:        "/trending/hive-123",
		Observer:   "carol",
		FullRender: true,
		RequestID:  "e2e-1",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"alice/a1", "bob/b1"}, snap.DiscussionIdx.Keys("hive-123", "trending"))
	assert.Equal(t, "first", snap.Content["alice/a1"].StringField("title"))
	assert.Equal(t, "Cats", snap.Community["hive-123"].StringField("title"))
	assert.Equal(t, []backend.Topic{{Name: "hive-123", Title: "Cats"}, {Name: "hive-456", Title: "Dogs"}}, snap.Topics)
	assert.ElementsMatch(t, []string{backend.MethodRankedPosts, backend.MethodCommunity, backend.MethodTrendingTopics}, node.calls())
	assert.Equal(t, 0, svc.Registry().ActiveCount())
}

func TestService_Hydrate_Thread(t *testing.T) {
	srv := httptest.NewServer(&rpcNode{})
	defer srv.Close()
	svc := newTestService(t, testConfig(srv.URL))

	snap, err := svc.Hydrate(context.Background(), state.Request{URL: "/cats/@alice/a1", FullRender: true})

	require.NoError(t, err)
	assert.Len(t, snap.Content, 2)
	assert.Contains(t, snap.Profiles, "alice")
}

func TestService_NetworkFailureRotatesEndpoint(t *testing.T) {
	node := &rpcNode{}
	srv := httptest.NewServer(node)
	defer srv.Close()
	dead := deadEndpoint()

	svc := newTestService(t, testConfig(dead, srv.URL))

	_, err := svc.Hydrate(context.Background(), state.Request{URL: "/hot", RequestID: "r1"})

	var herr *state.HydrationError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, state.StepContent, herr.Step)
	assert.True(t, backend.IsNetworkError(err))

	current, err := svc.Pool().Current()
	require.NoError(t, err)
	assert.Equal(t, srv.URL, current)

	snap, err := svc.Hydrate(context.Background(), state.Request{URL: "/hot", RequestID: "r2"})
	require.NoError(t, err)
	assert.Len(t, snap.Content, 2)
}

func TestService_RemoteErrorKeepsEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid sort"}}`))
	}))
	defer srv.Close()
	other := "http://127.0.0.1:1"
	svc := newTestService(t, testConfig(srv.URL, other))

	_, err := svc.Hydrate(context.Background(), state.Request{URL: "/hot"})

	require.Error(t, err)
	var remote *backend.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "invalid sort", remote.Message)
	current, _ := svc.Pool().Current()
	assert.Equal(t, srv.URL, current)
}

func TestService_Router(t *testing.T) {
	srv := httptest.NewServer(&rpcNode{})
	defer srv.Close()
	svc := newTestService(t, testConfig(srv.URL))
	router := svc.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/state?url=/@alice/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, []string{"alice/p1"}, snap.DiscussionIdx.Keys("@alice", "posts"))
	assert.Equal(t, 0, svc.Registry().ActiveCount())
}

func TestService_RouterBadGateway(t *testing.T) {
	svc := newTestService(t, testConfig(deadEndpoint()))

	req := httptest.NewRequest(http.MethodGet, "/v1/state?url=/hot", nil)
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// =============================================================================
// Maintenance
// =============================================================================

func TestService_ApplyConfig(t *testing.T) {
	svc := newTestService(t, testConfig("https://one.example"))

	next := testConfig("https://two.example", "https://three.example")
	svc.ApplyConfig(next)
	svc.ApplyConfig(nil)

	assert.Equal(t, []string{"https://two.example", "https://three.example"}, svc.Pool().Endpoints())
}

func TestService_Sweep(t *testing.T) {
	cfg := testConfig("https://one.example")
	cfg.Instrumentation.SweepAfter = time.Millisecond
	svc := newTestService(t, cfg)

	svc.Registry().Start("orphan", "")
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, svc.Sweep())
	assert.Equal(t, 0, svc.Registry().ActiveCount())
}

func TestService_SweepDisabled(t *testing.T) {
	cfg := testConfig("https://one.example")
	cfg.Instrumentation.Enabled = false
	svc := newTestService(t, cfg)

	assert.Equal(t, 0, svc.Sweep())

	done := make(chan struct{})
	go func() {
		svc.RunSweeper(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper should return at once when disabled")
	}
}

func TestService_RunSweeperStops(t *testing.T) {
	cfg := testConfig("https://one.example")
	cfg.Instrumentation.SweepAfter = 10 * time.Millisecond
	svc := newTestService(t, cfg)
	svc.Registry().Start("orphan", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return svc.Registry().ActiveCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not stop")
	}
}

func TestService_RunAppliesConfigChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hydrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  endpoints: [\"https://one.example\"]\n"), 0o644))
	svc := newTestService(t, testConfig("https://one.example"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, path) }()

	next := []byte("backend:\n  endpoints: [\"https://two.example\"]\n")
	require.Eventually(t, func() bool {
		// Rewrite until the watcher has registered and picked it up.
		_ = os.WriteFile(path, next, 0o644)
		eps := svc.Pool().Endpoints()
		return len(eps) == 1 && eps[0] == "https://two.example"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestService_RunWithoutConfigPath(t *testing.T) {
	cfg := testConfig("https://one.example")
	cfg.Instrumentation.SweepAfter = 10 * time.Millisecond
	svc := newTestService(t, cfg)
	svc.Registry().Start("orphan", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, "") }()

	require.Eventually(t, func() bool { return svc.Registry().ActiveCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
