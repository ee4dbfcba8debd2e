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

	"github.com/AleutianAI/depscope/services/audit/risk"
)

// analyzeMaintainers inspects the maintainer roster.
//
// Zero maintainers means nobody answers for the package. One is a
// single point of failure. A complete roster turnover between the
// audited version and the current package record is how several
// historical account-takeover attacks looked from the outside, so it
// is flagged High.
func analyzeMaintainers(in Input) []risk.Finding {
	meta := in.Snapshot.Metadata

	if len(meta.Maintainers) == 0 {
		return []risk.Finding{{
			Name:        "no_maintainers",
			Severity:    risk.SeverityCritical,
			Category:    risk.CategoryMaintenance,
			Description: "package has no listed maintainers",
		}}
	}

	var findings []risk.Finding
	if len(meta.Maintainers) == 1 {
		findings = append(findings, risk.Finding{
			Name:        "single_maintainer",
			Severity:    risk.SeverityLow,
			Category:    risk.CategoryMaintenance,
			Description: fmt.Sprintf("single point of failure: package has only one maintainer (%s)", meta.Maintainers[0]),
			Evidence:    meta.Maintainers[0],
		})
	}

	if in.Version != nil && rosterTurnover(in.Version.Maintainers, meta.Maintainers) {
		findings = append(findings, risk.Finding{
			Name:        "maintainer_turnover",
			Severity:    risk.SeverityHigh,
			Category:    risk.CategoryMaintenance,
			Description: fmt.Sprintf("no overlap between the maintainers of version %s and the current maintainer roster", in.ResolvedVersion),
			Evidence:    strings.Join(meta.Maintainers, ","),
		})
	}

	return findings
}

// rosterTurnover reports whether two non-empty maintainer lists share
// no name at all.
func rosterTurnover(was, now []string) bool {
	if len(was) == 0 || len(now) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(was))
	for _, name := range was {
		seen[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range now {
		if _, ok := seen[strings.ToLower(name)]; ok {
			return false
		}
	}
	return true
}
