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

	"github.com/AleutianAI/depscope/services/audit/risk"
)

// Age buckets: a brand-new package is a prime typosquat/attack vector,
// and the signal decays with every bucket.
const (
	ageVeryNewDays     = 7
	ageNewDays         = 30
	ageRecentDays      = 90
	ageEstablishedDays = 365
)

// analyzeAge buckets time since first publication.
//
// Emits exactly one Maintenance finding per audit; registries that
// omit the creation timestamp yield no finding at all rather than a
// fabricated age of zero.
func analyzeAge(in Input) []risk.Finding {
	meta := in.Snapshot.Metadata
	if meta.CreatedAt.IsZero() {
		return nil
	}

	days := ageDays(meta.CreatedAt, in.Now)
	severity := risk.SeverityInfo
	label := "established package"
	switch {
	case days < ageVeryNewDays:
		severity = risk.SeverityCritical
		label = "very new package"
	case days < ageNewDays:
		severity = risk.SeverityHigh
		label = "new package"
	case days < ageRecentDays:
		severity = risk.SeverityMedium
		label = "recent package"
	case days < ageEstablishedDays:
		severity = risk.SeverityLow
		label = "package under one year old"
	}

	return []risk.Finding{{
		Name:        "package_age",
		Severity:    severity,
		Category:    risk.CategoryMaintenance,
		Description: fmt.Sprintf("%s: first published %d days ago", label, days),
		Evidence:    fmt.Sprintf("%d", days),
	}}
}
