// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"time"

	"github.com/AleutianAI/depscope/services/audit/risk"
)

// ServiceVersion is the audit service version.
const ServiceVersion = "0.1.0"

// AuditRequest is the request body for POST /v1/audit/package.
type AuditRequest struct {
	// Name is the npm package name, optionally scoped.
	Name string `json:"name" binding:"required"`

	// Version is the version or dist-tag to audit. Empty means the
	// "latest" dist-tag.
	Version string `json:"version"`
}

// PackageInfo summarizes the audited package for the response.
type PackageInfo struct {
	Description     string `json:"description,omitempty"`
	License         string `json:"license,omitempty"`
	RepositoryURL   string `json:"repository_url,omitempty"`
	Maintainers     int    `json:"maintainers"`
	VersionCount    int    `json:"version_count"`
	WeeklyDownloads *int64 `json:"weekly_downloads,omitempty"`
	AgeDays         *int   `json:"age_days,omitempty"`
}

// RepositoryInfo is the repository-verification block of the response.
// Present only when the repository provider produced a payload.
type RepositoryInfo struct {
	FullName string `json:"full_name"`
	Stars    int    `json:"stars"`
	Forks    int    `json:"forks"`
	Archived bool   `json:"archived"`
	PushedAt string `json:"pushed_at,omitempty"`
}

// AuditResponse is the result of one package audit.
type AuditResponse struct {
	RequestID string `json:"request_id"`

	Package          string `json:"package"`
	RequestedVersion string `json:"requested_version,omitempty"`

	// ResolvedVersion is the concrete version the audit ran against,
	// recorded so comparisons and re-audits are reproducible.
	ResolvedVersion string `json:"resolved_version"`

	RiskScore      int                 `json:"risk_score"`
	RiskLevel      risk.Level          `json:"risk_level"`
	CategoryScores risk.CategoryScores `json:"category_scores"`
	Findings       []risk.Finding      `json:"findings"`

	// Availability records which providers produced data. Degraded is
	// true when any of them did not; a degraded audit is still a
	// result, not an error.
	Availability map[string]bool `json:"availability"`
	Degraded     bool            `json:"degraded"`

	PackageInfo PackageInfo     `json:"package_info"`
	Repository  *RepositoryInfo `json:"repository,omitempty"`

	DurationMS  int64     `json:"duration_ms"`
	GeneratedAt time.Time `json:"generated_at"`
}

// CompareRequest is the request body for POST /v1/audit/compare.
type CompareRequest struct {
	Name       string `json:"name" binding:"required"`
	OldVersion string `json:"old_version" binding:"required"`
	NewVersion string `json:"new_version" binding:"required"`
}

// VersionSummary condenses one side of a comparison.
type VersionSummary struct {
	Version        string              `json:"version"`
	RiskScore      int                 `json:"risk_score"`
	RiskLevel      risk.Level          `json:"risk_level"`
	CategoryScores risk.CategoryScores `json:"category_scores"`
	FindingCount   int                 `json:"finding_count"`
}

// CompareResponse is the result of a version comparison.
type CompareResponse struct {
	RequestID string `json:"request_id"`
	Package   string `json:"package"`

	Old VersionSummary `json:"old"`
	New VersionSummary `json:"new"`

	// ScoreDelta is old minus new: positive means the upgrade reduces
	// risk.
	ScoreDelta int `json:"score_delta"`

	// FixedVulnerabilities lists vulnerability identifiers in range for
	// the old version but not the new; IntroducedVulnerabilities is the
	// reverse.
	FixedVulnerabilities      []string `json:"fixed_vulnerabilities"`
	IntroducedVulnerabilities []string `json:"introduced_vulnerabilities"`

	GeneratedAt time.Time `json:"generated_at"`
}

// HealthResponse is the response for GET /v1/audit/health.
type HealthResponse struct {
	Status      string  `json:"status"`
	Version     string  `json:"version"`
	CacheSize   int     `json:"cache_size"`
	CacheHits   int64   `json:"cache_hits"`
	CacheMisses int64   `json:"cache_misses"`
	HitRate     float64 `json:"hit_rate"`
}

// HistoryEntry is one persisted audit in GET /v1/audit/history output.
type HistoryEntry struct {
	Package         string     `json:"package"`
	ResolvedVersion string     `json:"resolved_version"`
	RiskScore       int        `json:"risk_score"`
	RiskLevel       risk.Level `json:"risk_level"`
	Degraded        bool       `json:"degraded"`
	AuditedAt       time.Time  `json:"audited_at"`
}

// ErrorResponse is the error envelope for all audit endpoints.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
