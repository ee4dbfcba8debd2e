// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package providers contains the clients for the external data sources
// consumed by an audit: registry metadata, download statistics,
// source-repository metadata, and the vulnerability feed.
//
// Each client exposes a single fetch operation bounded by the caller's
// context deadline and returns either a typed payload or a typed
// *Failure. Provider failures are data, not Go errors: they are carried
// through the orchestrator in the result snapshot so the analyzer stage
// can degrade gracefully instead of aborting the audit.
package providers

import (
	"net/http"
	"time"
)

// Name identifies a provider in snapshots, cache keys, and metrics.
type Name string

const (
	ProviderRegistry        Name = "registry"
	ProviderDownloads       Name = "downloads"
	ProviderRepository      Name = "repository"
	ProviderVulnerabilities Name = "vulnerabilities"
)

// All lists every provider in fan-out order.
var All = []Name{
	ProviderRegistry,
	ProviderDownloads,
	ProviderRepository,
	ProviderVulnerabilities,
}

// FailureKind is the closed taxonomy of provider failures.
type FailureKind string

const (
	// FailureNotFound is a well-formed "does not exist" response. For
	// the registry provider this is terminal for the whole audit; for
	// the repository provider it is an analyzable signal.
	FailureNotFound FailureKind = "not_found"

	// FailureRateLimited means the upstream rejected the call for
	// quota reasons (HTTP 429, or GitHub's rate-limit 403).
	FailureRateLimited FailureKind = "rate_limited"

	// FailureTimeout means the per-call or overall deadline expired.
	// Cancelled in-flight calls also resolve to this kind; a provider
	// is never silently dropped from a snapshot.
	FailureTimeout FailureKind = "timeout"

	// FailureUnreachable covers transport-level errors: DNS failure,
	// connection refused, TLS errors, unexpected 5xx.
	FailureUnreachable FailureKind = "unreachable"

	// FailureMalformed means the upstream responded but the body could
	// not be decoded into the expected shape.
	FailureMalformed FailureKind = "malformed"
)

// Failure is the typed error half of a provider result. Immutable once
// produced.
type Failure struct {
	Provider Name        `json:"provider"`
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
}

// Error implements the error interface for logging convenience. The
// orchestrator never propagates a Failure as a Go error.
func (f *Failure) Error() string {
	return string(f.Provider) + " " + string(f.Kind) + ": " + f.Message
}

// PackageMetadata is the registry metadata payload. Loosely-structured
// upstream JSON is parsed into this fixed shape; unknown or missing
// fields become zero values, never a parser crash.
type PackageMetadata struct {
	Name          string
	Description   string
	License       string
	RepositoryURL string
	Maintainers   []string
	CreatedAt     time.Time // zero if the registry omitted it
	ModifiedAt    time.Time
	DistTags      map[string]string
	Versions      map[string]VersionMetadata
}

// VersionMetadata is the per-version slice of registry metadata.
type VersionMetadata struct {
	Version       string
	Description   string
	License       string
	RepositoryURL string
	Scripts       map[string]string
	Dependencies  map[string]string
	Maintainers   []string
}

// VersionCount returns the number of published versions.
func (m *PackageMetadata) VersionCount() int {
	return len(m.Versions)
}

// Resolve maps a requested version (possibly empty, possibly a
// dist-tag) to a concrete published version.
//
// An empty version resolves through the "latest" dist-tag. The
// resolved concrete version is always recorded in the audit result so
// later operations are reproducible.
func (m *PackageMetadata) Resolve(requested string) (string, *VersionMetadata, bool) {
	candidate := requested
	if candidate == "" {
		candidate = "latest"
	}
	if tagged, ok := m.DistTags[candidate]; ok {
		candidate = tagged
	}
	vm, ok := m.Versions[candidate]
	if !ok {
		return "", nil, false
	}
	return candidate, &vm, true
}

// DownloadStats is the download-statistics payload.
type DownloadStats struct {
	Weekly int64
	Period string
}

// RepoMetadata is the source-repository payload.
type RepoMetadata struct {
	Owner         string
	Name          string
	FullName      string // as reported upstream; differs from the request after renames
	Stars         int
	Forks         int
	Archived      bool
	CreatedAt     time.Time
	PushedAt      time.Time
	DefaultBranch string
}

// RangeEvent is one boundary event in an affected-version range.
// Boundary convention (OSV): Introduced is inclusive, Fixed is
// exclusive, LastAffected is inclusive.
type RangeEvent struct {
	Introduced   string
	Fixed        string
	LastAffected string
}

// VersionRange is one affected-version range from the feed.
type VersionRange struct {
	Type   string // "SEMVER", "ECOSYSTEM", "GIT"
	Events []RangeEvent
}

// Vulnerability is one record from the vulnerability feed.
type Vulnerability struct {
	ID        string
	CVE       string
	Aliases   []string
	Summary   string
	Details   string
	Severity  string // normalized lowercase feed severity
	Ranges    []VersionRange
	Versions  []string // explicit affected-version list, when the feed provides one
	Published time.Time
	Modified  time.Time
}

// Identity returns the comparison key for version diffing: the feed ID,
// falling back to the CVE alias.
func (v Vulnerability) Identity() string {
	if v.ID != "" {
		return v.ID
	}
	return v.CVE
}

// VulnReport is the vulnerability-feed payload.
type VulnReport struct {
	Vulnerabilities []Vulnerability
}

// Snapshot is the immutable per-audit collection of provider results.
// Exactly one of payload/failure is set per provider once the
// orchestrator's join completes.
type Snapshot struct {
	Metadata        *PackageMetadata
	MetadataFailure *Failure

	Downloads        *DownloadStats
	DownloadsFailure *Failure

	Repository        *RepoMetadata
	RepositoryFailure *Failure

	Vulnerabilities        *VulnReport
	VulnerabilitiesFailure *Failure
}

// Available reports whether the named provider produced a payload.
func (s *Snapshot) Available(n Name) bool {
	switch n {
	case ProviderRegistry:
		return s.Metadata != nil
	case ProviderDownloads:
		return s.Downloads != nil
	case ProviderRepository:
		return s.Repository != nil
	case ProviderVulnerabilities:
		return s.Vulnerabilities != nil
	default:
		return false
	}
}

// Availability returns the per-provider availability flags recorded in
// the audit result.
func (s *Snapshot) Availability() map[string]bool {
	flags := make(map[string]bool, len(All))
	for _, n := range All {
		flags[string(n)] = s.Available(n)
	}
	return flags
}

// Doer is the minimal HTTP client surface, allowing mock injection in
// tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
