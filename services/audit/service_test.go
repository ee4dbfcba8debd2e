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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/depscope/services/audit/risk"
)

// upstream is a fake provider backend with per-endpoint call counters.
type upstream struct {
	registry  *httptest.Server
	downloads *httptest.Server
	repo      *httptest.Server
	vulns     *httptest.Server

	registryCalls  int64
	downloadsCalls int64
	repoCalls      int64
	vulnCalls      int64
}

func (u *upstream) close() {
	u.registry.Close()
	u.downloads.Close()
	u.repo.Close()
	u.vulns.Close()
}

// goodRegistryDoc describes an established, healthy package pointing
// at a live repository.
func goodRegistryDoc(name string) string {
	created := time.Now().UTC().AddDate(-6, 0, 0).Format(time.RFC3339)
	return fmt.Sprintf(`{
		"name": %q,
		"description": "utility library",
		"license": "MIT",
		"repository": {"type": "git", "url": "git+https://github.com/acme/%s.git"},
		"dist-tags": {"latest": "4.17.21"},
		"time": {"created": %q},
		"maintainers": [{"name": "alice"}, {"name": "bob"}],
		"versions": {
			"4.17.11": {"version": "4.17.11", "license": "MIT", "maintainers": [{"name": "alice"}]},
			"4.17.21": {"version": "4.17.21", "license": "MIT", "maintainers": [{"name": "alice"}]}
		}
	}`, name, name, created)
}

// lodashVulnDoc carries one advisory fixed in 4.17.19, so 4.17.11 is
// in range and 4.17.21 is not.
const lodashVulnDoc = `{"vulns": [{
	"id": "GHSA-p6mc-m468-83gw",
	"aliases": ["CVE-2020-8203"],
	"summary": "Prototype pollution",
	"database_specific": {"severity": "HIGH"},
	"affected": [{
		"package": {"ecosystem": "npm", "name": "lodash"},
		"ranges": [{"type": "SEMVER", "events": [{"introduced": "0"}, {"fixed": "4.17.19"}]}]
	}]
}]}`

type upstreamOverrides struct {
	registryStatus int
	vulnStatus     int
	vulnBody       string
}

func newUpstream(t *testing.T, o upstreamOverrides) *upstream {
	t.Helper()
	u := &upstream{}

	u.registry = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&u.registryCalls, 1)
		if o.registryStatus != 0 {
			w.WriteHeader(o.registryStatus)
			return
		}
		fmt.Fprint(w, goodRegistryDoc(r.URL.Path[1:]))
	}))
	u.downloads = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&u.downloadsCalls, 1)
		fmt.Fprint(w, `{"downloads": 48000000}`)
	}))
	u.repo = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&u.repoCalls, 1)
		fmt.Fprint(w, `{
			"name": "lodash", "full_name": "acme/lodash",
			"stargazers_count": 50000, "forks_count": 7000, "archived": false,
			"pushed_at": "2026-07-01T00:00:00Z", "default_branch": "main"
		}`)
	}))
	u.vulns = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&u.vulnCalls, 1)
		if o.vulnStatus != 0 {
			w.WriteHeader(o.vulnStatus)
			return
		}
		body := o.vulnBody
		if body == "" {
			body = `{}`
		}
		fmt.Fprint(w, body)
	}))

	t.Cleanup(u.close)
	return u
}

func newTestService(u *upstream) *Service {
	cfg := DefaultConfig()
	cfg.RegistryURL = u.registry.URL
	cfg.DownloadsURL = u.downloads.URL
	cfg.RepoAPIURL = u.repo.URL
	cfg.VulnFeedURL = u.vulns.URL
	cfg.OverallTimeout = 5 * time.Second
	cfg.CallTimeout = 2 * time.Second
	return NewService(cfg)
}

func TestAudit(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy established package scores low", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		svc := newTestService(u)

		resp, err := svc.Audit(ctx, AuditRequest{Name: "lodash", Version: "4.17.21"})
		require.NoError(t, err)

		assert.Equal(t, "4.17.21", resp.ResolvedVersion)
		assert.Equal(t, risk.LevelLow, resp.RiskLevel)
		assert.Less(t, resp.RiskScore, 26)
		assert.False(t, resp.Degraded)
		for _, available := range resp.Availability {
			assert.True(t, available)
		}
		require.NotNil(t, resp.Repository)
		assert.Equal(t, "acme/lodash", resp.Repository.FullName)
		require.NotNil(t, resp.PackageInfo.WeeklyDownloads)
		assert.Equal(t, int64(48000000), *resp.PackageInfo.WeeklyDownloads)
	})

	t.Run("empty version resolves through latest dist-tag", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		svc := newTestService(u)

		resp, err := svc.Audit(ctx, AuditRequest{Name: "lodash"})
		require.NoError(t, err)
		assert.Equal(t, "4.17.21", resp.ResolvedVersion)
	})

	t.Run("missing package is terminal with zero other provider calls", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{registryStatus: http.StatusNotFound})
		svc := newTestService(u)

		_, err := svc.Audit(ctx, AuditRequest{Name: "no-such-pkg"})
		require.ErrorIs(t, err, ErrPackageNotFound)

		assert.Equal(t, int64(1), atomic.LoadInt64(&u.registryCalls))
		assert.Equal(t, int64(0), atomic.LoadInt64(&u.downloadsCalls))
		assert.Equal(t, int64(0), atomic.LoadInt64(&u.repoCalls))
		assert.Equal(t, int64(0), atomic.LoadInt64(&u.vulnCalls))
	})

	t.Run("unknown version is terminal", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		svc := newTestService(u)

		_, err := svc.Audit(ctx, AuditRequest{Name: "lodash", Version: "9.9.9"})
		require.ErrorIs(t, err, ErrVersionNotFound)
	})

	t.Run("invalid name rejected before any provider call", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		svc := newTestService(u)

		_, err := svc.Audit(ctx, AuditRequest{Name: "../../etc/passwd"})
		require.ErrorIs(t, err, ErrInvalidPackageName)
		assert.Equal(t, int64(0), atomic.LoadInt64(&u.registryCalls))
	})

	t.Run("registry outage is terminal", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{registryStatus: http.StatusInternalServerError})
		svc := newTestService(u)

		_, err := svc.Audit(ctx, AuditRequest{Name: "lodash"})
		require.ErrorIs(t, err, ErrRegistryUnavailable)
	})

	t.Run("vulnerability provider failure degrades instead of failing", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{vulnStatus: http.StatusInternalServerError})
		svc := newTestService(u)

		resp, err := svc.Audit(ctx, AuditRequest{Name: "lodash", Version: "4.17.21"})
		require.NoError(t, err, "a degraded audit is a result, not an error")

		assert.True(t, resp.Degraded)
		assert.False(t, resp.Availability["vulnerabilities"])
		assert.True(t, resp.Availability["registry"])

		var placeholder *risk.Finding
		for i := range resp.Findings {
			if resp.Findings[i].Name == "insufficient_data" && resp.Findings[i].Evidence == "vulnerabilities" {
				placeholder = &resp.Findings[i]
			}
		}
		require.NotNil(t, placeholder)
		assert.Equal(t, risk.SeverityInfo, placeholder.Severity)
		assert.NotEqual(t, risk.CategorySecurity, placeholder.Category)
	})

	t.Run("second audit is served from cache", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		svc := newTestService(u)

		_, err := svc.Audit(ctx, AuditRequest{Name: "lodash", Version: "4.17.21"})
		require.NoError(t, err)
		_, err = svc.Audit(ctx, AuditRequest{Name: "lodash", Version: "4.17.21"})
		require.NoError(t, err)

		assert.Equal(t, int64(1), atomic.LoadInt64(&u.registryCalls))
		assert.Equal(t, int64(1), atomic.LoadInt64(&u.downloadsCalls))
		assert.Equal(t, int64(1), atomic.LoadInt64(&u.repoCalls))
		assert.Equal(t, int64(1), atomic.LoadInt64(&u.vulnCalls))
	})

	t.Run("identical cached data reproduces the identical result", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{vulnBody: lodashVulnDoc})
		svc := newTestService(u)

		first, err := svc.Audit(ctx, AuditRequest{Name: "lodash", Version: "4.17.11"})
		require.NoError(t, err)
		second, err := svc.Audit(ctx, AuditRequest{Name: "lodash", Version: "4.17.11"})
		require.NoError(t, err)

		assert.Equal(t, first.RiskScore, second.RiskScore)
		assert.Equal(t, first.Findings, second.Findings)
		assert.Equal(t, first.CategoryScores, second.CategoryScores)
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()

	t.Run("upgrade past a fix yields positive delta and fixed list", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{vulnBody: lodashVulnDoc})
		svc := newTestService(u)

		resp, err := svc.Compare(ctx, CompareRequest{
			Name:       "lodash",
			OldVersion: "4.17.11",
			NewVersion: "4.17.21",
		})
		require.NoError(t, err)

		assert.Positive(t, resp.ScoreDelta, "upgrading away from a CVE must reduce risk")
		assert.Equal(t, []string{"GHSA-p6mc-m468-83gw"}, resp.FixedVulnerabilities)
		assert.Empty(t, resp.IntroducedVulnerabilities)
		assert.Greater(t, resp.Old.RiskScore, resp.New.RiskScore)
	})

	t.Run("both audits share one provider fetch per endpoint", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		svc := newTestService(u)

		_, err := svc.Compare(ctx, CompareRequest{
			Name:       "lodash",
			OldVersion: "4.17.11",
			NewVersion: "4.17.21",
		})
		require.NoError(t, err)

		// Name-keyed providers are fetched once for the pair.
		assert.Equal(t, int64(1), atomic.LoadInt64(&u.registryCalls))
		assert.Equal(t, int64(1), atomic.LoadInt64(&u.downloadsCalls))
		assert.Equal(t, int64(1), atomic.LoadInt64(&u.repoCalls))
		assert.Equal(t, int64(1), atomic.LoadInt64(&u.vulnCalls))
	})

	t.Run("comparing a version to itself is rejected", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		svc := newTestService(u)

		_, err := svc.Compare(ctx, CompareRequest{
			Name: "lodash", OldVersion: "4.17.21", NewVersion: "4.17.21",
		})
		require.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("missing package fails the comparison", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{registryStatus: http.StatusNotFound})
		svc := newTestService(u)

		_, err := svc.Compare(ctx, CompareRequest{
			Name: "ghost", OldVersion: "1.0.0", NewVersion: "2.0.0",
		})
		require.ErrorIs(t, err, ErrPackageNotFound)
	})
}

func TestHealth(t *testing.T) {
	u := newUpstream(t, upstreamOverrides{})
	svc := newTestService(u)

	health := svc.Health()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, ServiceVersion, health.Version)
}
