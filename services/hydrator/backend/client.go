// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backend is the hydrator's view of the content backend.
//
// The backend is an opaque JSON-RPC surface. Caller is the single method the
// rest of the module depends on; Client layers the typed bridge.* methods on
// top of any Caller, and Transport is the production Caller that speaks
// JSON-RPC 2.0 over HTTP to a rotating pool of endpoints.
//
// Failures are either a *NetworkError (no usable response: connection
// refused, timeout, non-200, garbled body) or a *RemoteError (the backend
// answered with a JSON-RPC error object). No retries happen at this layer.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// Bridge API method names.
const (
	MethodRankedPosts    = "bridge.get_ranked_posts"
	MethodAccountPosts   = "bridge.get_account_posts"
	MethodDiscussion     = "bridge.get_discussion"
	MethodCommunity      = "bridge.get_community"
	MethodProfile        = "bridge.get_profile"
	MethodTrendingTopics = "bridge.get_trending_topics"
)

// Caller performs one RPC.
//
// Implementations return *NetworkError for transport failures and
// *RemoteError for application errors.
type Caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, method string, params any) (json.RawMessage, error)

// Call calls f.
func (f CallerFunc) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return f(ctx, method, params)
}

// Client exposes the typed bridge methods over a Caller.
//
// # Thread Safety
//
// Safe for concurrent use if the Caller is.
type Client struct {
	caller Caller
}

// NewClient creates a Client.
func NewClient(caller Caller) (*Client, error) {
	if caller == nil {
		return nil, ErrNilCaller
	}
	return &Client{caller: caller}, nil
}

type listingParams struct {
	Sort     string `json:"sort"`
	Tag      string `json:"tag,omitempty"`
	Account  string `json:"account,omitempty"`
	Observer string `json:"observer,omitempty"`
}

// RankedPosts fetches a ranked listing for a tag. An empty tag is the
// front page.
func (c *Client) RankedPosts(ctx context.Context, sort, tag, observer string) ([]Record, error) {
	var out []Record
	err := c.call(ctx, MethodRankedPosts, listingParams{Sort: sort, Tag: tag, Observer: observer}, &out)
	return out, err
}

// AccountPosts fetches an account tab (blog, feed, comments, ...).
func (c *Client) AccountPosts(ctx context.Context, sort, account, observer string) ([]Record, error) {
	var out []Record
	err := c.call(ctx, MethodAccountPosts, listingParams{Sort: sort, Account: account, Observer: observer}, &out)
	return out, err
}

// Discussion fetches a post and its replies, keyed "author/permlink".
func (c *Client) Discussion(ctx context.Context, author, permlink string) (map[string]Record, error) {
	params := struct {
		Author   string `json:"author"`
		Permlink string `json:"permlink"`
	}{author, permlink}

	var out map[string]Record
	err := c.call(ctx, MethodDiscussion, params, &out)
	return out, err
}

// Community fetches community metadata. A nil Record means not found.
func (c *Client) Community(ctx context.Context, name, observer string) (Record, error) {
	params := struct {
		Name     string `json:"name"`
		Observer string `json:"observer,omitempty"`
	}{name, observer}

	var out Record
	err := c.call(ctx, MethodCommunity, params, &out)
	return out, err
}

// Profile fetches an account profile. A nil Record means not found.
func (c *Client) Profile(ctx context.Context, account string) (Record, error) {
	params := struct {
		Account string `json:"account"`
	}{account}

	var out Record
	err := c.call(ctx, MethodProfile, params, &out)
	return out, err
}

// TrendingTopics fetches up to limit trending topics.
func (c *Client) TrendingTopics(ctx context.Context, limit int) ([]Topic, error) {
	params := struct {
		Limit int `json:"limit"`
	}{limit}

	var out []Topic
	err := c.call(ctx, MethodTrendingTopics, params, &out)
	return out, err
}

// call performs the RPC and decodes a non-null result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	raw, err := c.caller.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w: %v", method, ErrMalformedResponse, err)
	}
	return nil
}
