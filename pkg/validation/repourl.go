// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Repository URLs arrive embedded in package metadata, which is
// attacker-influenced input. Parsing is strict allow-list validation:
// exact host match, bounded owner/repo character set, explicit
// traversal rejection. No network call may be made from a repository
// URL that fails this parse.

// ownerRepoPattern bounds the owner and repository name character set.
var ownerRepoPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,100}$`)

// allowedRepoHosts is the exact-match host allow list.
var allowedRepoHosts = map[string]bool{
	"github.com":     true,
	"www.github.com": true,
}

// RepoRef is a validated owner/repo pair.
type RepoRef struct {
	Owner string
	Repo  string
}

// String returns the canonical "owner/repo" form.
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Repo
}

// ParseRepoURL extracts a validated owner/repo pair from a repository
// URL found in package metadata.
//
// # Description
//
// Accepts the URL shapes registries actually emit:
//
//	https://github.com/owner/repo
//	git+https://github.com/owner/repo.git
//	git://github.com/owner/repo.git
//	git@github.com:owner/repo.git
//
// Everything else is rejected: non-allow-listed hosts, traversal
// sequences, over-long or out-of-charset owner/repo components.
//
// # Outputs
//
//   - RepoRef: the validated owner/repo pair.
//   - error: non-nil if the URL cannot be safely used.
func ParseRepoURL(raw string) (RepoRef, error) {
	if raw == "" {
		return RepoRef{}, fmt.Errorf("repository URL is empty")
	}
	if strings.Contains(raw, "..") {
		return RepoRef{}, fmt.Errorf("repository URL contains traversal sequence")
	}

	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "git+")

	// SSH form: git@github.com:owner/repo.git
	if strings.HasPrefix(cleaned, "git@") {
		rest := strings.TrimPrefix(cleaned, "git@")
		host, path, ok := strings.Cut(rest, ":")
		if !ok || !allowedRepoHosts[strings.ToLower(host)] {
			return RepoRef{}, fmt.Errorf("repository host not allowed: %q", host)
		}
		return splitOwnerRepo(path)
	}

	if strings.HasPrefix(cleaned, "git://") {
		cleaned = "https://" + strings.TrimPrefix(cleaned, "git://")
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return RepoRef{}, fmt.Errorf("unparseable repository URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return RepoRef{}, fmt.Errorf("repository URL scheme not allowed: %q", u.Scheme)
	}
	if !allowedRepoHosts[strings.ToLower(u.Hostname())] {
		return RepoRef{}, fmt.Errorf("repository host not allowed: %q", u.Hostname())
	}

	return splitOwnerRepo(strings.TrimPrefix(u.Path, "/"))
}

// splitOwnerRepo validates the "owner/repo[.git][/...]" path form.
func splitOwnerRepo(path string) (RepoRef, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return RepoRef{}, fmt.Errorf("repository path missing owner/repo: %q", path)
	}

	owner := parts[0]
	repo := strings.TrimSuffix(parts[1], ".git")

	if !ownerRepoPattern.MatchString(owner) {
		return RepoRef{}, fmt.Errorf("invalid repository owner: %q", owner)
	}
	if !ownerRepoPattern.MatchString(repo) {
		return RepoRef{}, fmt.Errorf("invalid repository name: %q", repo)
	}
	if strings.HasPrefix(owner, ".") || strings.HasPrefix(repo, ".") {
		return RepoRef{}, fmt.Errorf("repository component cannot start with a dot")
	}

	return RepoRef{Owner: owner, Repo: repo}, nil
}
