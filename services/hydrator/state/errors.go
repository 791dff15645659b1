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
	"errors"
	"fmt"
)

// Sentinel errors for state assembly.
var (
	// ErrNilFetcher is returned by New when no fetcher is given.
	ErrNilFetcher = errors.New("fetcher must not be nil")

	// ErrCleanerReturnedNil is the failure of a normalization pass that
	// returned no snapshot.
	ErrCleanerReturnedNil = errors.New("cleaner returned nil snapshot")
)

// HydrationError is the failure of a required hydration step.
//
// It carries the input URL, the request id and the name of the step that
// failed. Unwrap returns the original cause, so errors.As still finds a
// *backend.NetworkError or *backend.RemoteError underneath.
type HydrationError struct {
	URL       string
	RequestID string
	Step      string
	Cause     error
}

func (e *HydrationError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("hydrate %q: step %s: %v", e.URL, e.Step, e.Cause)
	}
	return fmt.Sprintf("hydrate %q (request %s): step %s: %v", e.URL, e.RequestID, e.Step, e.Cause)
}

func (e *HydrationError) Unwrap() error {
	return e.Cause
}
