// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package content turns a page intent into content records and a discussion
// index.
//
// The Aggregator issues the backend calls an intent implies: a ranked or
// account listing for posts and account pages, a discussion tree for
// threads, nothing for unrecognized pages. Backend errors are returned
// unmodified; retry and endpoint policy live elsewhere.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/hydrator/services/hydrator/backend"
	"github.com/AleutianAI/hydrator/services/hydrator/route"
	"github.com/AleutianAI/hydrator/services/hydrator/timing"
)

// ErrUnknownIntent is returned for an Intent type the aggregator does not
// handle, including nil.
var ErrUnknownIntent = errors.New("unknown page intent")

// Fetcher is the subset of the backend the aggregator calls.
//
// *backend.Client implements it.
type Fetcher interface {
	RankedPosts(ctx context.Context, sort, tag, observer string) ([]backend.Record, error)
	AccountPosts(ctx context.Context, sort, account, observer string) ([]backend.Record, error)
	Discussion(ctx context.Context, author, permlink string) (map[string]backend.Record, error)
}

// Aggregator loads content for an intent.
//
// # Thread Safety
//
// Safe for concurrent use. Each Load builds its own Result.
type Aggregator struct {
	fetcher Fetcher
	timer   *timing.Registry
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator.
//
// # Inputs
//
//   - fetcher: Backend calls. Must not be nil.
//   - timer: Registry for fetch timings. May be nil.
//   - logger: Logger for skipped records. Nil uses slog.Default().
func NewAggregator(fetcher Fetcher, timer *timing.Registry, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{fetcher: fetcher, timer: timer, logger: logger}
}

// Load fetches the content implied by intent.
//
// # Description
//
// Posts and Account intents fetch a listing. A tag beginning with "@" is
// fetched as that account's posts; any other tag as a ranked listing. Every
// record is stored under "author/permlink" and its key appended to the
// index under (tag, sort). Records without author or permlink are skipped.
//
// Thread intents fetch the discussion for (author, permlink) and store the
// returned records as is, without touching the index.
//
// None intents return an empty Result.
//
// # Inputs
//
//   - ctx: Cancels backend calls.
//   - intent: Classified page.
//   - observer: Viewing account, passed to listings. May be empty.
//   - requestID: Timer scope. May be empty.
//
// # Outputs
//
//   - *Result: Never nil on success.
//   - error: Backend error, unmodified, or ErrUnknownIntent.
func (a *Aggregator) Load(ctx context.Context, intent route.Intent, observer, requestID string) (*Result, error) {
	switch in := intent.(type) {
	case route.Posts:
		return a.loadListing(ctx, in.Sort, in.Tag, observer, requestID)
	case route.Account:
		return a.loadListing(ctx, in.Sort, in.Tag, observer, requestID)
	case route.Thread:
		return a.loadThread(ctx, in, requestID)
	case route.None:
		return NewResult(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownIntent, intent)
	}
}

func (a *Aggregator) loadListing(ctx context.Context, sort, tag, observer, requestID string) (*Result, error) {
	records, err := timing.Wrap(ctx, a.timer, timing.Label("content.posts", sort, tag), requestID,
		func(ctx context.Context) ([]backend.Record, error) {
			if account, ok := strings.CutPrefix(tag, "@"); ok {
				return a.fetcher.AccountPosts(ctx, sort, account, observer)
			}
			return a.fetcher.RankedPosts(ctx, sort, tag, observer)
		})
	if err != nil {
		return nil, err
	}

	res := NewResult()
	for i, rec := range records {
		key, ok := rec.Key()
		if !ok {
			a.logger.Warn("skipping record without author/permlink",
				"tag", tag,
				"sort", sort,
				"position", i,
				"request_id", requestID,
			)
			continue
		}
		res.Content[key] = rec
		res.DiscussionIdx.Append(tag, sort, key)
	}
	return res, nil
}

func (a *Aggregator) loadThread(ctx context.Context, in route.Thread, requestID string) (*Result, error) {
	author, permlink := in.Author(), in.Permlink()
	discussion, err := timing.Wrap(ctx, a.timer, timing.Label("content.thread", author, permlink), requestID,
		func(ctx context.Context) (map[string]backend.Record, error) {
			return a.fetcher.Discussion(ctx, author, permlink)
		})
	if err != nil {
		return nil, err
	}

	res := NewResult()
	for key, rec := range discussion {
		res.Content[key] = rec
	}
	return res, nil
}
