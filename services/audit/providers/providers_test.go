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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/depscope/pkg/validation"
)

const registryFixture = `{
	"name": "leftpad-ng",
	"description": "pads left",
	"license": "MIT",
	"repository": {"type": "git", "url": "git+https://github.com/acme/leftpad-ng.git"},
	"dist-tags": {"latest": "2.0.0"},
	"time": {"created": "2020-01-02T03:04:05Z", "modified": "2024-06-01T00:00:00Z"},
	"maintainers": [{"name": "alice"}, {"name": "bob"}],
	"versions": {
		"1.0.0": {"version": "1.0.0", "license": {"type": "ISC"}},
		"2.0.0": {
			"version": "2.0.0",
			"scripts": {"postinstall": "node setup.js"},
			"dependencies": {"chalk": "^5.0.0"},
			"maintainers": [{"name": "alice"}]
		}
	}
}`

func TestRegistryClient(t *testing.T) {
	t.Run("parses a registry document", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/leftpad-ng", r.URL.Path)
			w.Write([]byte(registryFixture))
		}))
		defer srv.Close()

		client := NewRegistryClient(srv.URL, nil)
		meta, failure := client.FetchMetadata(context.Background(), "leftpad-ng")
		require.Nil(t, failure)

		assert.Equal(t, "leftpad-ng", meta.Name)
		assert.Equal(t, "MIT", meta.License)
		assert.Equal(t, "https://github.com/acme/leftpad-ng.git", meta.RepositoryURL)
		assert.Equal(t, []string{"alice", "bob"}, meta.Maintainers)
		assert.Equal(t, 2, meta.VersionCount())
		assert.Equal(t, 2020, meta.CreatedAt.Year())

		// License object form on old versions.
		assert.Equal(t, "ISC", meta.Versions["1.0.0"].License)

		// Resolution through dist-tags.
		resolved, vm, ok := meta.Resolve("")
		require.True(t, ok)
		assert.Equal(t, "2.0.0", resolved)
		assert.Equal(t, "node setup.js", vm.Scripts["postinstall"])

		_, _, ok = meta.Resolve("9.9.9")
		assert.False(t, ok)
	})

	t.Run("maps 404 to NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
		}))
		defer srv.Close()

		meta, failure := NewRegistryClient(srv.URL, nil).FetchMetadata(context.Background(), "nope")
		assert.Nil(t, meta)
		require.NotNil(t, failure)
		assert.Equal(t, FailureNotFound, failure.Kind)
		assert.Equal(t, ProviderRegistry, failure.Provider)
	})

	t.Run("maps 429 to RateLimited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, failure := NewRegistryClient(srv.URL, nil).FetchMetadata(context.Background(), "busy")
		require.NotNil(t, failure)
		assert.Equal(t, FailureRateLimited, failure.Kind)
	})

	t.Run("maps undecodable body to Malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer srv.Close()

		_, failure := NewRegistryClient(srv.URL, nil).FetchMetadata(context.Background(), "weird")
		require.NotNil(t, failure)
		assert.Equal(t, FailureMalformed, failure.Kind)
	})

	t.Run("maps expired deadline to Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, failure := NewRegistryClient(srv.URL, nil).FetchMetadata(ctx, "slow")
		require.NotNil(t, failure)
		assert.Equal(t, FailureTimeout, failure.Kind)
	})

	t.Run("maps connection refused to Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // refuse immediately

		_, failure := NewRegistryClient(srv.URL, nil).FetchMetadata(context.Background(), "gone")
		require.NotNil(t, failure)
		assert.Equal(t, FailureUnreachable, failure.Kind)
	})
}

func TestDownloadsClient(t *testing.T) {
	t.Run("parses weekly count", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/downloads/point/last-week/lodash", r.URL.Path)
			w.Write([]byte(`{"downloads": 12345678, "package": "lodash"}`))
		}))
		defer srv.Close()

		stats, failure := NewDownloadsClient(srv.URL, nil).FetchWeekly(context.Background(), "lodash")
		require.Nil(t, failure)
		assert.Equal(t, int64(12345678), stats.Weekly)
	})

	t.Run("treats 404 as zero downloads", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		stats, failure := NewDownloadsClient(srv.URL, nil).FetchWeekly(context.Background(), "brand-new")
		require.Nil(t, failure)
		assert.Equal(t, int64(0), stats.Weekly)
	})
}

func TestRepoClient(t *testing.T) {
	ref := validation.RepoRef{Owner: "acme", Repo: "widgets"}

	t.Run("parses repository metadata", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/acme/widgets", r.URL.Path)
			w.Write([]byte(`{
				"name": "widgets", "full_name": "acme/widgets",
				"stargazers_count": 42, "forks_count": 7, "archived": false,
				"created_at": "2019-05-01T00:00:00Z", "pushed_at": "2024-08-01T00:00:00Z",
				"default_branch": "main"
			}`))
		}))
		defer srv.Close()

		meta, failure := NewRepoClient(srv.URL, nil, "test-token").FetchRepo(context.Background(), ref)
		require.Nil(t, failure)
		assert.Equal(t, "acme/widgets", meta.FullName)
		assert.Equal(t, 42, meta.Stars)
		assert.False(t, meta.Archived)
	})

	t.Run("detects rate limiting behind 403", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
		}))
		defer srv.Close()

		_, failure := NewRepoClient(srv.URL, nil, "test-token").FetchRepo(context.Background(), ref)
		require.NotNil(t, failure)
		assert.Equal(t, FailureRateLimited, failure.Kind)
	})

	t.Run("maps 404 to NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, failure := NewRepoClient(srv.URL, nil, "test-token").FetchRepo(context.Background(), ref)
		require.NotNil(t, failure)
		assert.Equal(t, FailureNotFound, failure.Kind)
	})
}

func TestVulnClient(t *testing.T) {
	t.Run("parses a feed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/query", r.URL.Path)
			w.Write([]byte(`{"vulns": [{
				"id": "GHSA-xxxx-yyyy-zzzz",
				"aliases": ["CVE-2020-8203"],
				"summary": "Prototype pollution",
				"severity": [{"type": "CVSS_V3", "score": "CVSS:3.1/AV:N/AC:H HIGH"}],
				"affected": [{
					"package": {"ecosystem": "npm", "name": "lodash"},
					"ranges": [{"type": "SEMVER", "events": [
						{"introduced": "0"}, {"fixed": "4.17.19"}
					]}]
				}],
				"published": "2020-07-15T00:00:00Z"
			}]}`))
		}))
		defer srv.Close()

		report, failure := NewVulnClient(srv.URL, nil).Query(context.Background(), "lodash")
		require.Nil(t, failure)
		require.Len(t, report.Vulnerabilities, 1)

		v := report.Vulnerabilities[0]
		assert.Equal(t, "GHSA-xxxx-yyyy-zzzz", v.ID)
		assert.Equal(t, "CVE-2020-8203", v.CVE)
		assert.Equal(t, "high", v.Severity)
		require.Len(t, v.Ranges, 1)
		require.Len(t, v.Ranges[0].Events, 2)
		assert.Equal(t, "0", v.Ranges[0].Events[0].Introduced)
		assert.Equal(t, "4.17.19", v.Ranges[0].Events[1].Fixed)
	})

	t.Run("skips affected entries for other ecosystems", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"vulns": [{
				"id": "OSV-1",
				"database_specific": {"severity": "LOW"},
				"affected": [
					{"package": {"ecosystem": "PyPI", "name": "lodash"},
					 "ranges": [{"type": "ECOSYSTEM", "events": [{"introduced": "0"}]}]},
					{"package": {"ecosystem": "npm", "name": "lodash"},
					 "versions": ["1.0.0"]}
				]
			}]}`))
		}))
		defer srv.Close()

		report, failure := NewVulnClient(srv.URL, nil).Query(context.Background(), "lodash")
		require.Nil(t, failure)
		require.Len(t, report.Vulnerabilities, 1)
		assert.Equal(t, "low", report.Vulnerabilities[0].Severity)
		assert.Empty(t, report.Vulnerabilities[0].Ranges)
		assert.Equal(t, []string{"1.0.0"}, report.Vulnerabilities[0].Versions)
	})

	t.Run("empty feed response yields empty report", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		report, failure := NewVulnClient(srv.URL, nil).Query(context.Background(), "clean-pkg")
		require.Nil(t, failure)
		assert.Empty(t, report.Vulnerabilities)
	})
}
