// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzers

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/AleutianAI/depscope/services/audit/providers"
	"github.com/AleutianAI/depscope/services/audit/risk"
)

// analyzeVulnerabilities turns feed records into findings, keeping only
// records whose affected range contains the resolved version.
//
// Severity is copied from the feed. Each finding carries the feed
// identifier so two audits of the same package at different versions
// can be diffed record-by-record.
func analyzeVulnerabilities(in Input) []risk.Finding {
	report := in.Snapshot.Vulnerabilities
	if len(report.Vulnerabilities) == 0 {
		return nil
	}

	var findings []risk.Finding
	for _, vuln := range report.Vulnerabilities {
		if !versionAffected(in.ResolvedVersion, vuln) {
			continue
		}
		summary := vuln.Summary
		if summary == "" {
			summary = "known vulnerability"
		}
		name := "known_vulnerability"
		if vuln.CVE != "" {
			name = fmt.Sprintf("known_vulnerability (%s)", vuln.CVE)
		}
		findings = append(findings, risk.Finding{
			Name:        name,
			Severity:    risk.ParseSeverity(vuln.Severity),
			Category:    risk.CategorySecurity,
			Description: summary,
			Evidence:    vuln.Details,
			VulnID:      vuln.Identity(),
		})
	}
	return findings
}

// versionAffected reports whether version falls inside any affected
// range or explicit version list of vuln.
//
// Range boundary convention follows the OSV schema: introduced is
// inclusive, fixed is exclusive, last_affected is inclusive. A record
// with no ranges and no version list is treated as affecting every
// version, matching how the feed publishes advisories without version
// data.
func versionAffected(version string, vuln providers.Vulnerability) bool {
	if len(vuln.Ranges) == 0 && len(vuln.Versions) == 0 {
		return true
	}

	for _, listed := range vuln.Versions {
		if listed == version {
			return true
		}
	}

	v := canonicalVersion(version)
	if v == "" {
		return false
	}
	for _, r := range vuln.Ranges {
		if r.Type == "GIT" {
			continue
		}
		if rangeContains(v, r.Events) {
			return true
		}
	}
	return false
}

// rangeContains evaluates OSV range events against canonical version v.
func rangeContains(v string, events []providers.RangeEvent) bool {
	inside := false
	for _, e := range events {
		switch {
		case e.Introduced != "":
			if intro := canonicalVersion(e.Introduced); e.Introduced == "0" || (intro != "" && semver.Compare(v, intro) >= 0) {
				inside = true
			}
		case e.Fixed != "":
			if fixed := canonicalVersion(e.Fixed); fixed != "" && semver.Compare(v, fixed) >= 0 {
				inside = false
			}
		case e.LastAffected != "":
			if last := canonicalVersion(e.LastAffected); last != "" && semver.Compare(v, last) > 0 {
				inside = false
			}
		}
	}
	return inside
}

// canonicalVersion converts an npm version string to the "v"-prefixed
// canonical form, or returns "" when it is not valid semver.
func canonicalVersion(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	if !semver.IsValid(s) {
		return ""
	}
	return semver.Canonical(s)
}
