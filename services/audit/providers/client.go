// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultCallTimeout bounds a single provider call. The orchestrator
// applies its own overall deadline on top of this.
const DefaultCallTimeout = 5 * time.Second

// maxResponseBytes caps how much of an upstream body is read. Registry
// documents for heavily-published packages run to several megabytes.
const maxResponseBytes = 32 << 20

// failuref builds a Failure with a formatted message.
func failuref(provider Name, kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Provider: provider, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// classifyTransport maps a transport-level error to a Failure.
// Deadline expiry and cancellation both resolve to FailureTimeout so
// a cancelled in-flight call is never silently dropped.
func classifyTransport(provider Name, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return failuref(provider, FailureTimeout, "call did not complete before deadline: %v", err)
	}
	return failuref(provider, FailureUnreachable, "transport error: %v", err)
}

// doRequest issues req through doer with a per-call timeout layered on
// ctx, and returns the response body on HTTP 200.
//
// Status mapping shared by all clients:
//
//	404              -> FailureNotFound
//	429              -> FailureRateLimited
//	other non-2xx    -> FailureUnreachable
//	transport error  -> FailureTimeout or FailureUnreachable
//
// Clients with provider-specific status semantics (the downloads API
// treats 404 as "zero downloads", GitHub hides rate limiting behind
// 403) adjust the result after this call.
func doRequest(ctx context.Context, doer Doer, provider Name, req *http.Request) ([]byte, int, *Failure) {
	callCtx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()

	resp, err := doer.Do(req.WithContext(callCtx))
	if err != nil {
		return nil, 0, classifyTransport(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, classifyTransport(provider, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, resp.StatusCode, nil
	case resp.StatusCode == http.StatusNotFound:
		return body, resp.StatusCode, failuref(provider, FailureNotFound, "upstream returned 404")
	case resp.StatusCode == http.StatusTooManyRequests:
		return body, resp.StatusCode, failuref(provider, FailureRateLimited, "upstream returned 429")
	default:
		return body, resp.StatusCode, failuref(provider, FailureUnreachable, "unexpected status %d", resp.StatusCode)
	}
}
