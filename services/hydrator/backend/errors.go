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
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for backend operations.
var (
	// ErrNoEndpoints is returned when the endpoint pool is empty.
	ErrNoEndpoints = errors.New("no backend endpoints configured")

	// ErrHTTPStatus indicates a non-200 HTTP response.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrMalformedResponse indicates a response body that is not a JSON-RPC
	// envelope, or a result that does not match the expected shape.
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrNilCaller is returned by NewClient when no Caller is given.
	ErrNilCaller = errors.New("caller must not be nil")
)

// NetworkError is a transport-level failure: the request did not produce a
// JSON-RPC response from the backend.
//
// Hydration treats NetworkError as a signal that the current endpoint is
// unhealthy and invokes its endpoint-reset hook.
type NetworkError struct {
	// Method is the RPC method that was being called.
	Method string

	// Endpoint is the URL that was contacted. May be empty.
	Endpoint string

	// Err is the underlying failure.
	Err error
}

func (e *NetworkError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("backend network error calling %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("backend network error calling %s at %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RemoteError is an application-level error returned by the backend in the
// JSON-RPC error object.
type RemoteError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend error calling %s: %s (code %d)", e.Method, e.Message, e.Code)
}

// IsNetworkError reports whether err is or wraps a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRemoteError reports whether err is or wraps a *RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
