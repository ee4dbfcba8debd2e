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

	"golang.org/x/time/rate"

	"github.com/AleutianAI/depscope/pkg/validation"
)

// DefaultRepoBaseURL is the GitHub REST API endpoint.
const DefaultRepoBaseURL = "https://api.github.com"

// Unauthenticated GitHub allows 60 requests per hour. The limiter sits
// below that so a burst of audits degrades to cache hits rather than
// burning the whole quota.
var unauthenticatedLimit = rate.Limit(50.0 / 3600.0)

// RepoClient fetches repository metadata from GitHub.
//
// Clients are only ever handed a validation.RepoRef: the raw repository
// URL from package metadata is attacker-influenced and must pass the
// strict allow-list parse before any network call is made.
type RepoClient struct {
	baseURL string
	doer    Doer
	token   string
	limiter *rate.Limiter
}

// NewRepoClient creates a repository client. A non-empty token raises
// the rate limit substantially; without one the client self-limits to
// stay inside the unauthenticated quota.
func NewRepoClient(baseURL string, doer Doer, token string) *RepoClient {
	if baseURL == "" {
		baseURL = DefaultRepoBaseURL
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	limiter := rate.NewLimiter(unauthenticatedLimit, 10)
	if token != "" {
		limiter = rate.NewLimiter(rate.Limit(1), 5)
	}
	return &RepoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		token:   token,
		limiter: limiter,
	}
}

// FetchRepo fetches metadata for a validated owner/repo pair.
func (c *RepoClient) FetchRepo(ctx context.Context, ref validation.RepoRef) (*RepoMetadata, *Failure) {
	start := time.Now()
	meta, failure := c.fetchRepo(ctx, ref)
	observe(ProviderRepository, start, failure)
	return meta, failure
}

func (c *RepoClient) fetchRepo(ctx context.Context, ref validation.RepoRef) (*RepoMetadata, *Failure) {
	if !c.limiter.Allow() {
		return nil, failuref(ProviderRepository, FailureRateLimited, "local quota guard rejected call for %s", ref)
	}

	url := c.baseURL + "/repos/" + ref.Owner + "/" + ref.Repo
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, failuref(ProviderRepository, FailureUnreachable, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	body, status, failure := doRequest(ctx, c.doer, ProviderRepository, req)
	if failure != nil {
		// GitHub reports quota exhaustion as 403 with a rate-limit
		// message, not 429.
		if status == http.StatusForbidden && strings.Contains(strings.ToLower(string(body)), "rate limit") {
			return nil, failuref(ProviderRepository, FailureRateLimited, "GitHub rate limit exceeded")
		}
		return nil, failure
	}

	var doc struct {
		Name          string `json:"name"`
		FullName      string `json:"full_name"`
		Stars         int    `json:"stargazers_count"`
		Forks         int    `json:"forks_count"`
		Archived      bool   `json:"archived"`
		CreatedAt     string `json:"created_at"`
		PushedAt      string `json:"pushed_at"`
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, failuref(ProviderRepository, FailureMalformed, "decode repository response: %v", err)
	}
	if doc.FullName == "" {
		return nil, failuref(ProviderRepository, FailureMalformed, "repository response missing full_name")
	}

	return &RepoMetadata{
		Owner:         ref.Owner,
		Name:          doc.Name,
		FullName:      doc.FullName,
		Stars:         doc.Stars,
		Forks:         doc.Forks,
		Archived:      doc.Archived,
		CreatedAt:     parseRegistryTime(doc.CreatedAt),
		PushedAt:      parseRegistryTime(doc.PushedAt),
		DefaultBranch: doc.DefaultBranch,
	}, nil
}
