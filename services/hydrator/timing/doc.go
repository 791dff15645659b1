// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package timing records wall-clock durations of request-scoped operations.
//
// A Registry holds the set of timers that are currently running, keyed by a
// label that is unique per (operation, request). Two requests that run the
// same operation at the same time never read or clear each other's timer:
//
//   - With a request id, the label is base + requestID. It is deterministic,
//     so starting the same (base, requestID) pair twice replaces the first
//     start.
//   - Without one, the label is base + "@" + unix nanos + "-" + random suffix.
//     Uniqueness is probabilistic rather than absolute.
//
// # Usage
//
//	reg := timing.New(timing.WithEnabled(cfg.Instrumentation.Enabled))
//
//	posts, err := timing.Wrap(ctx, reg, timing.Label("content.posts", sort, tag), reqID,
//	    func(ctx context.Context) ([]backend.Record, error) {
//	        return client.RankedPosts(ctx, sort, tag, observer)
//	    })
//
// Stopped timers are handed to every configured Sink. LogSink writes them to
// slog; the telemetry package provides an OpenTelemetry histogram sink.
//
// # Disabled Mode
//
// The enabled flag is read once at construction. A disabled Registry never
// allocates its timer map, Start returns Disabled, and Stop is silent.
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use.
package timing
