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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCaller returns a canned result and remembers the last call.
type recordingCaller struct {
	result string
	err    error
	method string
	params json.RawMessage
}

func (c *recordingCaller) Call(_ context.Context, method string, params any) (json.RawMessage, error) {
	c.method = method
	c.params, _ = json.Marshal(params)
	if c.err != nil {
		return nil, c.err
	}
	return json.RawMessage(c.result), nil
}

func newTestClient(t *testing.T, caller Caller) *Client {
	t.Helper()
	c, err := NewClient(caller)
	require.NoError(t, err)
	return c
}

func TestNewClient_NilCaller(t *testing.T) {
	_, err := NewClient(nil)
	assert.ErrorIs(t, err, ErrNilCaller)
}

func TestClient_RankedPosts(t *testing.T) {
	caller := &recordingCaller{result: `[{"author":"alice","permlink":"p1"},{"author":"bob","permlink":"p2"}]`}
	c := newTestClient(t, caller)

	posts, err := c.RankedPosts(context.Background(), "hot", "cats", "carol")

	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, MethodRankedPosts, caller.method)
	assert.JSONEq(t, `{"sort":"hot","tag":"cats","observer":"carol"}`, string(caller.params))

	key, ok := posts[1].Key()
	assert.True(t, ok)
	assert.Equal(t, "bob/p2", key)
}

func TestClient_RankedPosts_NoObserverOrTag(t *testing.T) {
	caller := &recordingCaller{result: `[]`}
	c := newTestClient(t, caller)

	_, err := c.RankedPosts(context.Background(), "trending", "", "")

	require.NoError(t, err)
	assert.JSONEq(t, `{"sort":"trending"}`, string(caller.params))
}

func TestClient_AccountPosts(t *testing.T) {
	caller := &recordingCaller{result: `[{"author":"alice","permlink":"p1"}]`}
	c := newTestClient(t, caller)

	posts, err := c.AccountPosts(context.Background(), "blog", "alice", "")

	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, MethodAccountPosts, caller.method)
	assert.JSONEq(t, `{"sort":"blog","account":"alice"}`, string(caller.params))
}

func TestClient_Discussion(t *testing.T) {
	caller := &recordingCaller{result: `{"alice/p1":{"author":"alice","permlink":"p1","replies":["bob/r1"]},"bob/r1":{"author":"bob","permlink":"r1"}}`}
	c := newTestClient(t, caller)

	thread, err := c.Discussion(context.Background(), "alice", "p1")

	require.NoError(t, err)
	assert.Len(t, thread, 2)
	assert.Equal(t, "alice", thread["alice/p1"].StringField("author"))
	assert.JSONEq(t, `{"author":"alice","permlink":"p1"}`, string(caller.params))
}

func TestClient_Community_NotFound(t *testing.T) {
	caller := &recordingCaller{result: `null`}
	c := newTestClient(t, caller)

	community, err := c.Community(context.Background(), "hive-1", "")

	require.NoError(t, err)
	assert.Nil(t, community)
	assert.Equal(t, MethodCommunity, caller.method)
}

func TestClient_Profile(t *testing.T) {
	caller := &recordingCaller{result: `{"name":"alice","reputation":70}`}
	c := newTestClient(t, caller)

	profile, err := c.Profile(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", profile.StringField("name"))
	assert.JSONEq(t, `{"account":"alice"}`, string(caller.params))
}

func TestClient_TrendingTopics(t *testing.T) {
	caller := &recordingCaller{result: `[["hive-1","Photography"],{"name":"hive-2","title":"Music"}]`}
	c := newTestClient(t, caller)

	topics, err := c.TrendingTopics(context.Background(), 12)

	require.NoError(t, err)
	assert.Equal(t, []Topic{{"hive-1", "Photography"}, {"hive-2", "Music"}}, topics)
	assert.JSONEq(t, `{"limit":12}`, string(caller.params))
}

func TestClient_PropagatesCallerErrors(t *testing.T) {
	netErr := &NetworkError{Method: MethodRankedPosts, Err: errors.New("connection refused")}
	c := newTestClient(t, &recordingCaller{err: netErr})

	_, err := c.RankedPosts(context.Background(), "hot", "", "")

	assert.Same(t, netErr, err)
	assert.True(t, IsNetworkError(err))
}

func TestClient_MalformedResult(t *testing.T) {
	c := newTestClient(t, &recordingCaller{result: `{"not":"a list"}`})

	_, err := c.RankedPosts(context.Background(), "hot", "", "")

	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.False(t, IsNetworkError(err))
}

func TestCallerFunc(t *testing.T) {
	var called string
	f := CallerFunc(func(_ context.Context, method string, _ any) (json.RawMessage, error) {
		called = method
		return json.RawMessage(`[]`), nil
	})
	c := newTestClient(t, f)

	_, err := c.AccountPosts(context.Background(), "feed", "bob", "")

	require.NoError(t, err)
	assert.Equal(t, MethodAccountPosts, called)
}
