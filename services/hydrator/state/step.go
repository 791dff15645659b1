// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"context"

	"github.com/AleutianAI/hydrator/services/hydrator/telemetry"
	"github.com/AleutianAI/hydrator/services/hydrator/timing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Policy declares how a step's failure affects the hydration.
type Policy int

const (
	// Required steps abort the hydration on failure.
	Required Policy = iota

	// BestEffort steps log their failure and leave their part empty.
	BestEffort
)

// String returns "required" or "best_effort".
func (p Policy) String() string {
	if p == BestEffort {
		return "best_effort"
	}
	return "required"
}

// Step names, used in timer labels, logs, metrics and HydrationError.Step.
const (
	StepClassify  = "classify"
	StepContent   = "content"
	StepCommunity = "community"
	StepProfile   = "profile"
	StepTopics    = "topics"
	StepClean     = "clean"
)

// Step outcomes recorded in hydrator_step_outcomes_total.
const (
	outcomeOK       = "ok"
	outcomeDegraded = "degraded"
	outcomeFailed   = "failed"
)

var stepOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hydrator_step_outcomes_total",
	Help: "Hydration step completions by step, policy and outcome.",
}, []string{"step", "policy", "outcome"})

// step describes one unit of hydration work.
type step struct {
	name   string
	policy Policy
	params []string
}

// runStep runs fn under the timing registry and applies the step's policy.
//
// A Required step returns fn's error unchanged. A BestEffort step logs the
// error at Warn and returns the zero T with a nil error.
func runStep[T any](ctx context.Context, a *Assembler, s step, requestID string, fn func(context.Context) (T, error)) (T, error) {
	label := timing.Label("state."+s.name, s.params...)
	v, err := timing.Wrap(ctx, a.timer, label, requestID, fn)
	if err == nil {
		stepOutcomes.WithLabelValues(s.name, s.policy.String(), outcomeOK).Inc()
		return v, nil
	}

	if s.policy == BestEffort {
		stepOutcomes.WithLabelValues(s.name, s.policy.String(), outcomeDegraded).Inc()
		telemetry.LoggerWithTrace(ctx, a.logger).Warn("best-effort step failed",
			"step", s.name,
			"request_id", requestID,
			"error", err,
		)
		var zero T
		return zero, nil
	}

	stepOutcomes.WithLabelValues(s.name, s.policy.String(), outcomeFailed).Inc()
	return v, err
}
