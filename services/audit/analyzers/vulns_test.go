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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/depscope/services/audit/providers"
	"github.com/AleutianAI/depscope/services/audit/risk"
)

// protoPollution is modeled on the real lodash advisory: introduced at
// the first release, fixed in 4.17.19.
var protoPollution = providers.Vulnerability{
	ID:       "GHSA-p6mc-m468-83gw",
	CVE:      "CVE-2020-8203",
	Summary:  "Prototype pollution in zipObjectDeep",
	Severity: "high",
	Ranges: []providers.VersionRange{{
		Type: "SEMVER",
		Events: []providers.RangeEvent{
			{Introduced: "0"},
			{Fixed: "4.17.19"},
		},
	}},
}

func vulnInput(version string, vulns ...providers.Vulnerability) Input {
	in := healthyInput()
	in.ResolvedVersion = version
	in.Snapshot.Vulnerabilities = &providers.VulnReport{Vulnerabilities: vulns}
	return in
}

func TestAnalyzeVulnerabilities(t *testing.T) {
	t.Run("in-range version yields a security finding", func(t *testing.T) {
		findings := analyzeVulnerabilities(vulnInput("4.17.11", protoPollution))
		require.Len(t, findings, 1)

		f := findings[0]
		assert.Equal(t, risk.SeverityHigh, f.Severity)
		assert.Equal(t, risk.CategorySecurity, f.Category)
		assert.Equal(t, "GHSA-p6mc-m468-83gw", f.VulnID)
		assert.Contains(t, f.Name, "CVE-2020-8203")
	})

	t.Run("fixed boundary is exclusive", func(t *testing.T) {
		assert.Empty(t, analyzeVulnerabilities(vulnInput("4.17.19", protoPollution)),
			"the fix version itself is not affected")
		assert.Empty(t, analyzeVulnerabilities(vulnInput("4.17.21", protoPollution)))
		assert.Len(t, analyzeVulnerabilities(vulnInput("4.17.18", protoPollution)), 1)
	})

	t.Run("introduced boundary is inclusive", func(t *testing.T) {
		v := protoPollution
		v.Ranges = []providers.VersionRange{{
			Type:   "SEMVER",
			Events: []providers.RangeEvent{{Introduced: "2.0.0"}, {Fixed: "3.0.0"}},
		}}

		assert.Len(t, analyzeVulnerabilities(vulnInput("2.0.0", v)), 1)
		assert.Empty(t, analyzeVulnerabilities(vulnInput("1.9.9", v)))
	})

	t.Run("last_affected boundary is inclusive", func(t *testing.T) {
		v := protoPollution
		v.Ranges = []providers.VersionRange{{
			Type:   "SEMVER",
			Events: []providers.RangeEvent{{Introduced: "0"}, {LastAffected: "1.2.3"}},
		}}

		assert.Len(t, analyzeVulnerabilities(vulnInput("1.2.3", v)), 1)
		assert.Empty(t, analyzeVulnerabilities(vulnInput("1.2.4", v)))
	})

	t.Run("explicit version list matches exactly", func(t *testing.T) {
		v := providers.Vulnerability{ID: "OSV-1", Severity: "low", Versions: []string{"1.0.0", "1.0.1"}}

		assert.Len(t, analyzeVulnerabilities(vulnInput("1.0.1", v)), 1)
		assert.Empty(t, analyzeVulnerabilities(vulnInput("1.0.2", v)))
	})

	t.Run("record without version data affects every version", func(t *testing.T) {
		v := providers.Vulnerability{ID: "OSV-2", Severity: "critical", Summary: "malicious release"}
		assert.Len(t, analyzeVulnerabilities(vulnInput("9.9.9", v)), 1)
	})

	t.Run("git ranges are skipped", func(t *testing.T) {
		v := providers.Vulnerability{
			ID:       "OSV-3",
			Severity: "high",
			Ranges: []providers.VersionRange{{
				Type:   "GIT",
				Events: []providers.RangeEvent{{Introduced: "0"}},
			}},
		}
		assert.Empty(t, analyzeVulnerabilities(vulnInput("1.0.0", v)))
	})

	t.Run("feed severity is copied", func(t *testing.T) {
		for _, sev := range []string{"critical", "high", "medium", "low"} {
			v := protoPollution
			v.Severity = sev
			findings := analyzeVulnerabilities(vulnInput("4.17.11", v))
			require.Len(t, findings, 1)
			assert.Equal(t, risk.Severity(sev), findings[0].Severity)
		}
	})

	t.Run("unknown feed severity defaults to medium", func(t *testing.T) {
		v := protoPollution
		v.Severity = "catastrophic"
		findings := analyzeVulnerabilities(vulnInput("4.17.11", v))
		require.Len(t, findings, 1)
		assert.Equal(t, risk.SeverityMedium, findings[0].Severity)
	})

	t.Run("non-semver resolved version matches nothing ranged", func(t *testing.T) {
		assert.Empty(t, analyzeVulnerabilities(vulnInput("not-a-version", protoPollution)))
	})
}
