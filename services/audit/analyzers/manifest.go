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

// Direct-dependency thresholds. Each direct dependency is its own
// supply chain; past these counts the audit surface grows faster than
// anyone reviews it.
const (
	depCountNoticeable = 20
	depCountLarge      = 50
)

// analyzeDependencyCount flags versions with a wide direct-dependency
// surface.
func analyzeDependencyCount(in Input) []risk.Finding {
	if in.Version == nil {
		return nil
	}
	count := len(in.Version.Dependencies)
	switch {
	case count > depCountLarge:
		return []risk.Finding{{
			Name:        "large_dependency_surface",
			Severity:    risk.SeverityMedium,
			Category:    risk.CategoryMaintenance,
			Description: fmt.Sprintf("version declares %d direct dependencies", count),
			Evidence:    fmt.Sprintf("%d", count),
		}}
	case count > depCountNoticeable:
		return []risk.Finding{{
			Name:        "wide_dependency_surface",
			Severity:    risk.SeverityLow,
			Category:    risk.CategoryMaintenance,
			Description: fmt.Sprintf("version declares %d direct dependencies", count),
			Evidence:    fmt.Sprintf("%d", count),
		}}
	}
	return nil
}

// analyzeLicense checks the declared license of the audited version,
// falling back to the package-level declaration.
func analyzeLicense(in Input) []risk.Finding {
	license := ""
	if in.Version != nil {
		license = in.Version.License
	}
	if license == "" {
		license = in.Snapshot.Metadata.License
	}

	switch {
	case license == "":
		return []risk.Finding{{
			Name:        "missing_license",
			Severity:    risk.SeverityMedium,
			Category:    risk.CategoryReputation,
			Description: "package declares no license; all rights reserved by default",
		}}
	case strings.EqualFold(license, "UNLICENSED"):
		return []risk.Finding{{
			Name:        "proprietary_license",
			Severity:    risk.SeverityMedium,
			Category:    risk.CategoryReputation,
			Description: "package is explicitly marked UNLICENSED",
			Evidence:    license,
		}}
	}
	return nil
}
