// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit implements the dependency risk audit engine: provider
// fan-out, freshness caching, signal analysis, and scoring for npm
// packages.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/depscope/pkg/validation"
	"github.com/AleutianAI/depscope/services/audit/analyzers"
	"github.com/AleutianAI/depscope/services/audit/cache"
	"github.com/AleutianAI/depscope/services/audit/history"
	"github.com/AleutianAI/depscope/services/audit/providers"
	"github.com/AleutianAI/depscope/services/audit/risk"
)

// Service orchestrates audits.
//
// # Thread Safety
//
// Safe for concurrent use: all mutable state lives in the freshness
// cache and the history store, both of which are concurrency-safe.
type Service struct {
	cfg Config

	registry  *providers.RegistryClient
	downloads *providers.DownloadsClient
	repo      *providers.RepoClient
	vulns     *providers.VulnClient

	cache   *cache.FreshnessCache
	clock   cache.Clock
	history *history.Store
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithHTTPClient injects the HTTP client shared by all providers.
func WithHTTPClient(doer providers.Doer) ServiceOption {
	return func(s *Service) {
		s.registry = providers.NewRegistryClient(s.cfg.RegistryURL, doer)
		s.downloads = providers.NewDownloadsClient(s.cfg.DownloadsURL, doer)
		s.repo = providers.NewRepoClient(s.cfg.RepoAPIURL, doer, s.cfg.RepoToken)
		s.vulns = providers.NewVulnClient(s.cfg.VulnFeedURL, doer)
	}
}

// WithClock injects the clock used for age arithmetic and cache TTLs.
func WithClock(clk cache.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clk
		s.cache = cache.New(cache.WithMaxEntries(s.cfg.CacheMaxEntries), cache.WithClock(clk))
	}
}

// WithHistory attaches the audit history store.
func WithHistory(store *history.Store) ServiceOption {
	return func(s *Service) {
		s.history = store
	}
}

// NewService creates an audit service from cfg.
func NewService(cfg Config, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:       cfg,
		registry:  providers.NewRegistryClient(cfg.RegistryURL, nil),
		downloads: providers.NewDownloadsClient(cfg.DownloadsURL, nil),
		repo:      providers.NewRepoClient(cfg.RepoAPIURL, nil, cfg.RepoToken),
		vulns:     providers.NewVulnClient(cfg.VulnFeedURL, nil),
		cache:     cache.New(cache.WithMaxEntries(cfg.CacheMaxEntries)),
		clock:     cache.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Audit runs one full audit for the requested package and version.
//
// # Description
//
// The registry is consulted first: a missing package is terminal
// (ErrPackageNotFound) and no other provider is called. With metadata
// in hand, the downloads, repository, and vulnerability providers are
// fetched concurrently; any of them may fail without failing the
// audit. Each fetch goes through the freshness cache, so concurrent
// audits of the same package collapse into single upstream calls.
//
// # Outputs
//
//   - *AuditResponse: The scored result; Degraded is true when any
//     provider was missing.
//   - error: ErrInvalidPackageName, ErrInvalidVersion,
//     ErrPackageNotFound, ErrVersionNotFound, or
//     ErrRegistryUnavailable.
func (s *Service) Audit(ctx context.Context, req AuditRequest) (*AuditResponse, error) {
	tracer := otel.Tracer("depscope/audit")
	ctx, span := tracer.Start(ctx, "audit.package")
	defer span.End()
	span.SetAttributes(
		attribute.String("package.name", req.Name),
		attribute.String("package.version", req.Version),
	)

	if err := validation.ValidatePackageName(req.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackageName, err)
	}
	if err := validation.ValidateVersion(req.Version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVersion, err)
	}

	started := s.clock.Now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OverallTimeout)
	defer cancel()

	snapshot, resolved, vm, err := s.collect(ctx, req.Name, req.Version)
	if err != nil {
		return nil, err
	}

	findings := analyzers.RunAll(analyzers.Input{
		PackageName:     req.Name,
		ResolvedVersion: resolved,
		Version:         vm,
		Snapshot:        snapshot,
		Now:             s.clock.Now(),
	})

	resp := s.assemble(req, snapshot, resolved, findings)
	resp.DurationMS = s.clock.Now().Sub(started).Milliseconds()

	recordAudit(resp.Degraded, resp.RiskScore)
	s.persist(resp)
	return resp, nil
}

// collect runs the two-phase provider fan-out through the cache.
func (s *Service) collect(ctx context.Context, name, version string) (*providers.Snapshot, string, *providers.VersionMetadata, error) {
	snapshot := &providers.Snapshot{}

	// Phase one: registry metadata. Terminal on NotFound, so a bogus
	// name costs exactly one upstream call.
	meta, failure := s.fetchMetadata(ctx, name)
	if failure != nil {
		if failure.Kind == providers.FailureNotFound {
			return nil, "", nil, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
		}
		return nil, "", nil, fmt.Errorf("%w: %s", ErrRegistryUnavailable, failure.Message)
	}
	snapshot.Metadata = meta

	resolved, vm, ok := meta.Resolve(version)
	if !ok {
		return nil, "", nil, fmt.Errorf("%w: %s@%s", ErrVersionNotFound, name, version)
	}

	// Phase two: the remaining providers in parallel. Failures land in
	// the snapshot as data.
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		snapshot.Downloads, snapshot.DownloadsFailure = s.fetchDownloads(ctx, name)
	}()
	go func() {
		defer wg.Done()
		snapshot.Repository, snapshot.RepositoryFailure = s.fetchRepo(ctx, meta.RepositoryURL)
	}()
	go func() {
		defer wg.Done()
		snapshot.Vulnerabilities, snapshot.VulnerabilitiesFailure = s.fetchVulns(ctx, name)
	}()
	wg.Wait()

	return snapshot, resolved, vm, nil
}

// cached wraps one provider call with the freshness cache and the
// per-call timeout, translating the cache's error back into a Failure.
func cached[T any](ctx context.Context, s *Service, key string, ttl time.Duration, fetch func(ctx context.Context) (*T, *providers.Failure)) (*T, *providers.Failure) {
	v, err := s.cache.GetOrFetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		payload, failure := fetch(callCtx)
		if failure != nil {
			return nil, failure
		}
		return payload, nil
	})
	if err != nil {
		var failure *providers.Failure
		if errors.As(err, &failure) {
			return nil, failure
		}
		return nil, &providers.Failure{Kind: providers.FailureUnreachable, Message: err.Error()}
	}
	return v.(*T), nil
}

func (s *Service) fetchMetadata(ctx context.Context, name string) (*providers.PackageMetadata, *providers.Failure) {
	key := "registry:" + name
	return cached(ctx, s, key, s.cfg.TTL.Registry, func(ctx context.Context) (*providers.PackageMetadata, *providers.Failure) {
		return s.registry.FetchMetadata(ctx, name)
	})
}

func (s *Service) fetchDownloads(ctx context.Context, name string) (*providers.DownloadStats, *providers.Failure) {
	key := "downloads:" + name
	return cached(ctx, s, key, s.cfg.TTL.Downloads, func(ctx context.Context) (*providers.DownloadStats, *providers.Failure) {
		return s.downloads.FetchWeekly(ctx, name)
	})
}

// fetchRepo resolves the repository reference from the registry URL
// before calling upstream. An absent or unparseable URL is not a
// provider failure: the repository analyzer reports it as a finding.
func (s *Service) fetchRepo(ctx context.Context, repoURL string) (*providers.RepoMetadata, *providers.Failure) {
	if repoURL == "" {
		return nil, nil
	}
	ref, err := validation.ParseRepoURL(repoURL)
	if err != nil {
		return nil, nil
	}

	key := "repository:" + ref.Owner + "/" + ref.Repo
	return cached(ctx, s, key, s.cfg.TTL.Repository, func(ctx context.Context) (*providers.RepoMetadata, *providers.Failure) {
		return s.repo.FetchRepo(ctx, ref)
	})
}

func (s *Service) fetchVulns(ctx context.Context, name string) (*providers.VulnReport, *providers.Failure) {
	key := "vulnerabilities:" + name
	return cached(ctx, s, key, s.cfg.TTL.Vulnerabilities, func(ctx context.Context) (*providers.VulnReport, *providers.Failure) {
		return s.vulns.Query(ctx, name)
	})
}

// assemble builds the response from the snapshot and scored findings.
func (s *Service) assemble(req AuditRequest, snapshot *providers.Snapshot, resolved string, findings []risk.Finding) *AuditResponse {
	meta := snapshot.Metadata
	score := risk.Composite(findings)

	availability := snapshot.Availability()
	degraded := false
	for _, ok := range availability {
		if !ok {
			degraded = true
			break
		}
	}

	info := PackageInfo{
		Description:   meta.Description,
		License:       meta.License,
		RepositoryURL: meta.RepositoryURL,
		Maintainers:   len(meta.Maintainers),
		VersionCount:  meta.VersionCount(),
	}
	if !meta.CreatedAt.IsZero() {
		days := int(s.clock.Now().Sub(meta.CreatedAt).Hours() / 24)
		info.AgeDays = &days
	}
	if snapshot.Downloads != nil {
		weekly := snapshot.Downloads.Weekly
		info.WeeklyDownloads = &weekly
	}

	var repoInfo *RepositoryInfo
	if repo := snapshot.Repository; repo != nil {
		repoInfo = &RepositoryInfo{
			FullName: repo.FullName,
			Stars:    repo.Stars,
			Forks:    repo.Forks,
			Archived: repo.Archived,
		}
		if !repo.PushedAt.IsZero() {
			repoInfo.PushedAt = repo.PushedAt.Format(time.RFC3339)
		}
	}

	return &AuditResponse{
		Package:          req.Name,
		RequestedVersion: req.Version,
		ResolvedVersion:  resolved,
		RiskScore:        score,
		RiskLevel:        risk.LevelFor(score),
		CategoryScores:   risk.ScoreCategories(findings),
		Findings:         findings,
		Availability:     availability,
		Degraded:         degraded,
		PackageInfo:      info,
		Repository:       repoInfo,
		GeneratedAt:      s.clock.Now(),
	}
}

// persist appends the audit to history. Best effort only.
func (s *Service) persist(resp *AuditResponse) {
	if s.history == nil {
		return
	}
	err := s.history.Append(history.Record{
		Package:         resp.Package,
		ResolvedVersion: resp.ResolvedVersion,
		RiskScore:       resp.RiskScore,
		RiskLevel:       string(resp.RiskLevel),
		Degraded:        resp.Degraded,
		AuditedAt:       resp.GeneratedAt,
	})
	if err != nil {
		slog.Warn("Failed to persist audit history", "package", resp.Package, "error", err)
	}
}

// Compare audits two versions of the same package and diffs the
// outcomes.
//
// # Description
//
// Both audits run concurrently and share the freshness cache, so the
// providers are called at most once for the pair. The score delta is
// old minus new: positive means upgrading reduces risk. Vulnerability
// movement is diffed by feed identity, never by description text.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	tracer := otel.Tracer("depscope/audit")
	ctx, span := tracer.Start(ctx, "audit.compare")
	defer span.End()
	span.SetAttributes(attribute.String("package.name", req.Name))

	if req.OldVersion == req.NewVersion {
		return nil, fmt.Errorf("%w: comparing %s to itself", ErrInvalidVersion, req.OldVersion)
	}

	var oldResp, newResp *AuditResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := s.Audit(gctx, AuditRequest{Name: req.Name, Version: req.OldVersion})
		oldResp = resp
		return err
	})
	g.Go(func() error {
		resp, err := s.Audit(gctx, AuditRequest{Name: req.Name, Version: req.NewVersion})
		newResp = resp
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	oldVulns := vulnIdentities(oldResp.Findings)
	newVulns := vulnIdentities(newResp.Findings)

	return &CompareResponse{
		Package:                   req.Name,
		Old:                       summarize(oldResp),
		New:                       summarize(newResp),
		ScoreDelta:                oldResp.RiskScore - newResp.RiskScore,
		FixedVulnerabilities:      difference(oldVulns, newVulns),
		IntroducedVulnerabilities: difference(newVulns, oldVulns),
		GeneratedAt:               s.clock.Now(),
	}, nil
}

func summarize(resp *AuditResponse) VersionSummary {
	return VersionSummary{
		Version:        resp.ResolvedVersion,
		RiskScore:      resp.RiskScore,
		RiskLevel:      resp.RiskLevel,
		CategoryScores: resp.CategoryScores,
		FindingCount:   len(resp.Findings),
	}
}

// vulnIdentities extracts the ordered vulnerability identities from a
// finding list.
func vulnIdentities(findings []risk.Finding) []string {
	var ids []string
	for _, f := range findings {
		if f.VulnID != "" {
			ids = append(ids, f.VulnID)
		}
	}
	return ids
}

// difference returns the members of a not present in b, preserving
// order.
func difference(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}

	diff := []string{}
	for _, id := range a {
		if _, ok := inB[id]; !ok {
			diff = append(diff, id)
		}
	}
	return diff
}

// History returns recent audits for a package, newest first.
func (s *Service) History(name string, limit int) ([]HistoryEntry, error) {
	if s.history == nil {
		return []HistoryEntry{}, nil
	}
	records, err := s.history.List(name, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntry{
			Package:         rec.Package,
			ResolvedVersion: rec.ResolvedVersion,
			RiskScore:       rec.RiskScore,
			RiskLevel:       risk.Level(rec.RiskLevel),
			Degraded:        rec.Degraded,
			AuditedAt:       rec.AuditedAt,
		})
	}
	return entries, nil
}

// Health reports service liveness and cache statistics.
func (s *Service) Health() HealthResponse {
	stats := s.cache.Stats()
	return HealthResponse{
		Status:      "ok",
		Version:     ServiceVersion,
		CacheSize:   stats.EntryCount,
		CacheHits:   stats.Hits,
		CacheMisses: stats.Misses,
		HitRate:     stats.HitRate(),
	}
}
