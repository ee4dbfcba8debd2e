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
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// DefaultDownloadsBaseURL is the npm downloads API endpoint.
const DefaultDownloadsBaseURL = "https://api.npmjs.org"

// DownloadsClient fetches weekly download counts.
type DownloadsClient struct {
	baseURL string
	doer    Doer
}

// NewDownloadsClient creates a downloads client. An empty baseURL
// selects the public API.
func NewDownloadsClient(baseURL string, doer Doer) *DownloadsClient {
	if baseURL == "" {
		baseURL = DefaultDownloadsBaseURL
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &DownloadsClient{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

// FetchWeekly fetches the last-week download count for a package.
//
// The downloads API returns 404 for packages that exist but have no
// recorded downloads yet, so NotFound here is a successful zero count,
// not a failure.
func (c *DownloadsClient) FetchWeekly(ctx context.Context, name string) (*DownloadStats, *Failure) {
	start := time.Now()
	stats, failure := c.fetchWeekly(ctx, name)
	observe(ProviderDownloads, start, failure)
	return stats, failure
}

func (c *DownloadsClient) fetchWeekly(ctx context.Context, name string) (*DownloadStats, *Failure) {
	url := c.baseURL + "/downloads/point/last-week/" + name
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, failuref(ProviderDownloads, FailureUnreachable, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	body, _, failure := doRequest(ctx, c.doer, ProviderDownloads, req)
	if failure != nil {
		if failure.Kind == FailureNotFound {
			return &DownloadStats{Weekly: 0, Period: "last-week"}, nil
		}
		return nil, failure
	}

	var doc struct {
		Downloads int64 `json:"downloads"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, failuref(ProviderDownloads, FailureMalformed, "decode downloads response: %v", err)
	}

	return &DownloadStats{Weekly: doc.Downloads, Period: "last-week"}, nil
}
