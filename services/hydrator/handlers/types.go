// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeHydrationFailed = "HYDRATION_FAILED"
)

// StateQuery is the query string of GET /v1/state.
type StateQuery struct {
	// URL is the page path to hydrate, e.g. "/trending/hive-123".
	URL string `form:"url" binding:"required,max=2048"`

	// Observer is the viewing account. Optional.
	Observer string `form:"observer" binding:"omitempty,max=64"`

	// Full requests full render mode (profile and trending topics).
	Full bool `form:"full"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`

	// Step is the hydration step that failed, when known.
	Step string `json:"step,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
