// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package state assembles the page state snapshot for a URL.
//
// Hydrate runs a fixed sequence of steps, each with a declared Policy:
//
//	classify   required     route.Classify(url)
//	content    required     listing or thread via content.Aggregator
//	community  best-effort  community metadata when the tag is a community
//	profile    best-effort  full render only, the page's account profile
//	topics     required     full render only, trending topics
//	clean      required     Cleaner over the assembled snapshot
//
// A required failure aborts with *HydrationError. A *backend.NetworkError
// underneath also fires the endpoint-reset hook once.
package state

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/hydrator/services/hydrator/backend"
	"github.com/AleutianAI/hydrator/services/hydrator/content"
	"github.com/AleutianAI/hydrator/services/hydrator/route"
	"github.com/AleutianAI/hydrator/services/hydrator/telemetry"
	"github.com/AleutianAI/hydrator/services/hydrator/timing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultTopicsLimit is the number of trending topics fetched.
const DefaultTopicsLimit = 12

// DefaultCommunityPattern matches community tags.
var DefaultCommunityPattern = regexp.MustCompile(`^hive-\d+$`)

const tracerName = "github.com/AleutianAI/hydrator/services/hydrator/state"

// Fetcher is every backend call hydration makes.
//
// *backend.Client implements it.
type Fetcher interface {
	content.Fetcher
	Community(ctx context.Context, name, observer string) (backend.Record, error)
	Profile(ctx context.Context, account string) (backend.Record, error)
	TrendingTopics(ctx context.Context, limit int) ([]backend.Topic, error)
}

// Request is one hydration.
type Request struct {
	// URL is the page path, optionally with query string. An absolute URL
	// is reduced to its path.
	URL string

	// Observer is the viewing account. Empty when anonymous.
	Observer string

	// FullRender also fetches the profile and trending topics.
	FullRender bool

	// RequestID scopes timers and logs. May be empty.
	RequestID string
}

// Assembler builds snapshots.
//
// # Thread Safety
//
// Safe for concurrent use. Every Hydrate call owns its snapshot.
type Assembler struct {
	fetcher          Fetcher
	aggregator       *content.Aggregator
	timer            *timing.Registry
	logger           *slog.Logger
	cleaner          Cleaner
	resetEndpoint    func()
	parallel         bool
	communityPattern *regexp.Regexp
	topicsLimit      int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRegistry sets the timing registry. Default: none.
func WithRegistry(r *timing.Registry) Option {
	return func(a *Assembler) {
		a.timer = r
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCleaner replaces DefaultCleaner.
func WithCleaner(c Cleaner) Option {
	return func(a *Assembler) {
		if c != nil {
			a.cleaner = c
		}
	}
}

// WithEndpointReset sets the hook fired when a required step fails with a
// *backend.NetworkError. EndpointPool.Rotate is the usual hook.
func WithEndpointReset(fn func()) Option {
	return func(a *Assembler) {
		a.resetEndpoint = fn
	}
}

// WithParallelAuxiliary runs the community, profile and topics steps
// concurrently. Failures are still attributed to their step.
func WithParallelAuxiliary(enabled bool) Option {
	return func(a *Assembler) {
		a.parallel = enabled
	}
}

// WithCommunityPattern replaces DefaultCommunityPattern.
func WithCommunityPattern(re *regexp.Regexp) Option {
	return func(a *Assembler) {
		if re != nil {
			a.communityPattern = re
		}
	}
}

// WithTopicsLimit replaces DefaultTopicsLimit. Values < 1 are ignored.
func WithTopicsLimit(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.topicsLimit = n
		}
	}
}

// New creates an Assembler.
//
// # Inputs
//
//   - fetcher: Backend calls. Must not be nil.
//   - opts: Functional options.
//
// # Outputs
//
//   - *Assembler: Ready to use.
//   - error: ErrNilFetcher if fetcher is nil.
func New(fetcher Fetcher, opts ...Option) (*Assembler, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	a := &Assembler{
		fetcher:          fetcher,
		logger:           slog.Default(),
		cleaner:          DefaultCleaner,
		communityPattern: DefaultCommunityPattern,
		topicsLimit:      DefaultTopicsLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.aggregator = content.NewAggregator(fetcher, a.timer, a.logger)
	return a, nil
}

// Hydrate builds the snapshot for req.
//
// # Description
//
// Runs classify, content, community, profile, topics and clean in that
// order (community, profile and topics concurrently when parallel
// auxiliary mode is on). An unrecognized URL is not an error: it yields
// an empty snapshot.
//
// # Outputs
//
//   - *Snapshot: The cleaned snapshot.
//   - error: *HydrationError wrapping the first required-step failure.
func (a *Assembler) Hydrate(ctx context.Context, req Request) (*Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Assembler.Hydrate",
		trace.WithAttributes(
			attribute.String("url", req.URL),
			attribute.Bool("full_render", req.FullRender),
		),
	)
	defer span.End()

	observer := strings.TrimSpace(req.Observer)

	intent, err := runStep(ctx, a, step{name: StepClassify, policy: Required}, req.RequestID,
		func(context.Context) (route.Intent, error) {
			return route.Classify(route.PathOf(req.URL)), nil
		})
	if err != nil {
		return nil, a.fail(ctx, req, StepClassify, err)
	}
	span.SetAttributes(attribute.String("page", intent.Page().String()))

	snap := NewSnapshot()

	res, err := runStep(ctx, a, step{name: StepContent, policy: Required, params: contentParams(intent)}, req.RequestID,
		func(ctx context.Context) (*content.Result, error) {
			return a.aggregator.Load(ctx, intent, observer, req.RequestID)
		})
	if err != nil {
		return nil, a.fail(ctx, req, StepContent, err)
	}
	snap.mergeContent(res)

	aux, err := a.auxiliary(ctx, req, intent, observer)
	if err != nil {
		var sf *stepFailure
		if errors.As(err, &sf) {
			return nil, a.fail(ctx, req, sf.step, sf.err)
		}
		return nil, a.fail(ctx, req, "auxiliary", err)
	}
	aux.apply(snap)

	cleaned, err := runStep(ctx, a, step{name: StepClean, policy: Required}, req.RequestID,
		func(context.Context) (*Snapshot, error) {
			out := a.cleaner.Clean(snap)
			if out == nil {
				return nil, ErrCleanerReturnedNil
			}
			return out, nil
		})
	if err != nil {
		return nil, a.fail(ctx, req, StepClean, err)
	}

	telemetry.SetSpanOK(span)
	return cleaned, nil
}

// stepFailure attributes an auxiliary error to its step.
type stepFailure struct {
	step string
	err  error
}

func (f *stepFailure) Error() string { return f.step + ": " + f.err.Error() }
func (f *stepFailure) Unwrap() error { return f.err }

// auxResult holds what the auxiliary steps fetched. Each task writes only
// its own fields.
type auxResult struct {
	communityTag string
	community    backend.Record
	account      string
	profile      backend.Record
	fullRender   bool
	topics       []backend.Topic
}

func (r *auxResult) apply(s *Snapshot) {
	if r.community != nil {
		s.Community[r.communityTag] = r.community
	}
	if r.profile != nil {
		s.Profiles[r.account] = r.profile
	}
	if r.fullRender {
		s.Topics = r.topics
		if s.Topics == nil {
			s.Topics = []backend.Topic{}
		}
	}
}

// auxiliary runs the community, profile and topics steps.
func (a *Assembler) auxiliary(ctx context.Context, req Request, intent route.Intent, observer string) (*auxResult, error) {
	out := &auxResult{fullRender: req.FullRender}
	var tasks []func(context.Context) error

	tag := route.TagOf(intent)
	if tag != "" && a.communityPattern.MatchString(tag) {
		out.communityTag = tag
		tasks = append(tasks, func(ctx context.Context) error {
			out.community, _ = runStep(ctx, a, step{name: StepCommunity, policy: BestEffort, params: []string{tag}}, req.RequestID,
				func(ctx context.Context) (backend.Record, error) {
					return a.fetcher.Community(ctx, tag, observer)
				})
			return nil
		})
	}

	if req.FullRender {
		if account := profileAccount(intent); account != "" {
			out.account = account
			tasks = append(tasks, func(ctx context.Context) error {
				profile, _ := runStep(ctx, a, step{name: StepProfile, policy: BestEffort, params: []string{account}}, req.RequestID,
					func(ctx context.Context) (backend.Record, error) {
						return a.fetcher.Profile(ctx, account)
					})
				out.profile = a.acceptProfile(ctx, account, profile, req.RequestID)
				return nil
			})
		}

		tasks = append(tasks, func(ctx context.Context) error {
			topics, err := runStep(ctx, a, step{name: StepTopics, policy: Required, params: []string{strconv.Itoa(a.topicsLimit)}}, req.RequestID,
				func(ctx context.Context) ([]backend.Topic, error) {
					return a.fetcher.TrendingTopics(ctx, a.topicsLimit)
				})
			if err != nil {
				return &stepFailure{step: StepTopics, err: err}
			}
			out.topics = topics
			return nil
		})
	}

	if !a.parallel {
		for _, task := range tasks {
			if err := task(ctx); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			return task(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// acceptProfile returns profile if it has a name, nil otherwise.
func (a *Assembler) acceptProfile(ctx context.Context, account string, profile backend.Record, requestID string) backend.Record {
	if profile == nil {
		return nil
	}
	if profile.StringField("name") == "" {
		telemetry.LoggerWithTrace(ctx, a.logger).Warn("discarding malformed profile",
			"account", account,
			"request_id", requestID,
			"reason", "missing name",
		)
		return nil
	}
	return profile
}

// fail logs a required-step failure, fires the endpoint reset for network
// failures and returns the HydrationError. The reset is skipped when the
// caller's context is done or the cause is a cancellation: the endpoint
// did not fail.
func (a *Assembler) fail(ctx context.Context, req Request, stepName string, cause error) error {
	herr := &HydrationError{
		URL:       req.URL,
		RequestID: req.RequestID,
		Step:      stepName,
		Cause:     cause,
	}

	telemetry.LoggerWithTrace(ctx, a.logger).Error("hydration failed",
		"url", req.URL,
		"request_id", req.RequestID,
		"step", stepName,
		"error", cause,
	)
	telemetry.RecordError(trace.SpanFromContext(ctx), herr, attribute.String("step", stepName))

	if a.resetEndpoint != nil && backend.IsNetworkError(cause) &&
		ctx.Err() == nil && !errors.Is(cause, context.Canceled) {
		a.resetEndpoint()
	}
	return herr
}

// contentParams are the timer label params for the content step.
func contentParams(intent route.Intent) []string {
	switch in := intent.(type) {
	case route.Posts:
		return []string{in.Page().String(), in.Sort, in.Tag}
	case route.Account:
		return []string{in.Page().String(), in.Sort, in.Tag}
	case route.Thread:
		return []string{in.Page().String(), in.Author(), in.Permlink()}
	case route.None:
		return []string{in.Page().String()}
	default:
		return nil
	}
}

// profileAccount is the account whose profile a full render shows: the
// account of an "@name" tag, or a thread's author.
func profileAccount(intent route.Intent) string {
	if name, ok := strings.CutPrefix(route.TagOf(intent), "@"); ok {
		return name
	}
	if in, ok := intent.(route.Thread); ok {
		return in.Author()
	}
	return ""
}
