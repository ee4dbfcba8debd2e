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

const (
	// spikeDownloadsPerWeek on a package younger than spikeMaxAgeDays
	// suggests artificial inflation.
	spikeMaxAgeDays       = 30
	spikeDownloadsPerWeek = 100000

	// stagnantDownloadsPerWeek on a package older than
	// stagnantMinAgeDays suggests the community never adopted it.
	stagnantMinAgeDays       = 365
	stagnantDownloadsPerWeek = 100
)

// analyzeVelocity cross-references download volume against package
// age.
func analyzeVelocity(in Input) []risk.Finding {
	meta := in.Snapshot.Metadata
	stats := in.Snapshot.Downloads
	if meta.CreatedAt.IsZero() {
		return nil
	}

	days := ageDays(meta.CreatedAt, in.Now)
	switch {
	case days < spikeMaxAgeDays && stats.Weekly > spikeDownloadsPerWeek:
		return []risk.Finding{{
			Name:        "download_spike",
			Severity:    risk.SeverityHigh,
			Category:    risk.CategoryReputation,
			Description: fmt.Sprintf("package is %d days old but records %d downloads/week", days, stats.Weekly),
			Evidence:    fmt.Sprintf("%d", stats.Weekly),
		}}
	case days > stagnantMinAgeDays && stats.Weekly < stagnantDownloadsPerWeek:
		return []risk.Finding{{
			Name:        "low_adoption",
			Severity:    risk.SeverityInfo,
			Category:    risk.CategoryReputation,
			Description: fmt.Sprintf("package is %d days old but records only %d downloads/week", days, stats.Weekly),
			Evidence:    fmt.Sprintf("%d", stats.Weekly),
		}}
	}
	return nil
}
