// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/depscope/pkg/ux"
	"github.com/AleutianAI/depscope/services/audit"
	"github.com/AleutianAI/depscope/services/audit/risk"
)

// renderAudit prints one audit result for a terminal.
func renderAudit(resp *audit.AuditResponse) {
	ux.Title(fmt.Sprintf("%s@%s", resp.Package, resp.ResolvedVersion))

	level := string(resp.RiskLevel)
	scoreLine := fmt.Sprintf("Risk score: %d/100 (%s)", resp.RiskScore, level)
	fmt.Println(ux.SeverityStyle(level).Render(scoreLine))

	if resp.Degraded {
		unavailable := []string{}
		for name, ok := range resp.Availability {
			if !ok {
				unavailable = append(unavailable, name)
			}
		}
		sort.Strings(unavailable)
		ux.Warnf("degraded audit: no data from %s", strings.Join(unavailable, ", "))
	}

	fmt.Println()
	ux.Mutedf("Category health:")
	cs := resp.CategoryScores
	for _, line := range []struct {
		name  string
		score int
	}{
		{"authenticity", cs.Authenticity},
		{"maintenance", cs.Maintenance},
		{"security", cs.Security},
		{"reputation", cs.Reputation},
	} {
		fmt.Printf("  %-14s %d/100\n", line.name, line.score)
	}

	fmt.Println()
	if len(resp.Findings) == 0 {
		ux.Successf("no findings")
	} else {
		ux.Mutedf("Findings (%d):", len(resp.Findings))
		for _, f := range resp.Findings {
			renderFinding(f)
		}
	}

	fmt.Println()
	renderPackageInfo(resp)
	ux.Mutedf("audited in %dms", resp.DurationMS)
}

func renderFinding(f risk.Finding) {
	badge := ux.SeverityStyle(string(f.Severity)).Render(
		fmt.Sprintf("[%s]", strings.ToUpper(string(f.Severity))))
	fmt.Printf("  %s %s: %s\n", badge, f.Name, f.Description)
	if f.Evidence != "" {
		ux.Mutedf("             evidence: %s", f.Evidence)
	}
	if f.VulnID != "" {
		ux.Mutedf("             id: %s", f.VulnID)
	}
}

func renderPackageInfo(resp *audit.AuditResponse) {
	info := resp.PackageInfo
	if info.License != "" {
		ux.Mutedf("license: %s", info.License)
	}
	if info.AgeDays != nil {
		ux.Mutedf("age: %d days, %d versions, %d maintainers",
			*info.AgeDays, info.VersionCount, info.Maintainers)
	}
	if info.WeeklyDownloads != nil {
		ux.Mutedf("weekly downloads: %d", *info.WeeklyDownloads)
	}
	if repo := resp.Repository; repo != nil {
		state := ""
		if repo.Archived {
			state = " (archived)"
		}
		ux.Mutedf("repository: %s%s, %d stars", repo.FullName, state, repo.Stars)
	}
}

// renderCompare prints a version comparison for a terminal.
func renderCompare(resp *audit.CompareResponse) {
	ux.Title(fmt.Sprintf("%s: %s -> %s", resp.Package, resp.Old.Version, resp.New.Version))

	renderSummary("old", resp.Old)
	renderSummary("new", resp.New)

	fmt.Println()
	switch {
	case resp.ScoreDelta > 0:
		ux.Successf("upgrading reduces risk by %d points", resp.ScoreDelta)
	case resp.ScoreDelta < 0:
		ux.Warnf("upgrading increases risk by %d points", -resp.ScoreDelta)
	default:
		ux.Mutedf("no change in risk score")
	}

	if len(resp.FixedVulnerabilities) > 0 {
		ux.Successf("fixed: %s", strings.Join(resp.FixedVulnerabilities, ", "))
	}
	if len(resp.IntroducedVulnerabilities) > 0 {
		ux.Errorf("introduced: %s", strings.Join(resp.IntroducedVulnerabilities, ", "))
	}
}

func renderSummary(label string, s audit.VersionSummary) {
	level := string(s.RiskLevel)
	fmt.Printf("  %-4s %-20s %s  (%d findings)\n",
		label, s.Version,
		ux.SeverityStyle(level).Render(fmt.Sprintf("%3d/100 %s", s.RiskScore, level)),
		s.FindingCount)
}
