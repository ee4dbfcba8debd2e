// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzers contains the signal analyzers that turn provider
// payloads into risk findings.
//
// Each analyzer is a pure function of its Input: no I/O, no clock reads
// (time is a field of Input), no shared state. An analyzer whose
// required provider data is missing from the snapshot does not run;
// the runner emits one Info-severity insufficient-data finding in its
// place, so a degraded audit shows where data was missing instead of
// looking "checked and clean".
package analyzers

import (
	"fmt"
	"time"

	"github.com/AleutianAI/depscope/services/audit/providers"
	"github.com/AleutianAI/depscope/services/audit/risk"
)

// Input is everything an analyzer may consume for one audit.
type Input struct {
	// PackageName is the requested name, already validated.
	PackageName string

	// ResolvedVersion is the concrete version the audit resolved to.
	ResolvedVersion string

	// Version is the registry metadata slice for ResolvedVersion; nil
	// when the registry provider failed.
	Version *providers.VersionMetadata

	// Snapshot holds the per-provider payloads and failures.
	Snapshot *providers.Snapshot

	// Now anchors all age arithmetic, injected for determinism.
	Now time.Time
}

// Analyzer is one registered signal analyzer.
type Analyzer struct {
	// Name appears in insufficient-data findings and logs.
	Name string

	// Requires lists the providers whose payloads must be present for
	// Run to execute.
	Requires []providers.Name

	// Run computes findings. Only called when every required provider
	// payload is available.
	Run func(in Input) []risk.Finding
}

// All returns the fixed analyzer set in evaluation order.
func All() []Analyzer {
	return []Analyzer{
		{Name: "typosquat", Requires: nil, Run: analyzeTyposquat},
		{Name: "install_scripts", Requires: []providers.Name{providers.ProviderRegistry}, Run: analyzeScripts},
		{Name: "package_age", Requires: []providers.Name{providers.ProviderRegistry}, Run: analyzeAge},
		{Name: "maintainers", Requires: []providers.Name{providers.ProviderRegistry}, Run: analyzeMaintainers},
		{Name: "repository_verification", Requires: []providers.Name{providers.ProviderRegistry}, Run: analyzeRepository},
		{Name: "download_velocity", Requires: []providers.Name{providers.ProviderRegistry, providers.ProviderDownloads}, Run: analyzeVelocity},
		{Name: "vulnerabilities", Requires: []providers.Name{providers.ProviderRegistry, providers.ProviderVulnerabilities}, Run: analyzeVulnerabilities},
		{Name: "dependency_count", Requires: []providers.Name{providers.ProviderRegistry}, Run: analyzeDependencyCount},
		{Name: "license", Requires: []providers.Name{providers.ProviderRegistry}, Run: analyzeLicense},
	}
}

// RunAll evaluates every registered analyzer against in and returns the
// combined finding list, sorted by severity.
func RunAll(in Input) []risk.Finding {
	var findings []risk.Finding

	for _, a := range All() {
		missing := false
		for _, req := range a.Requires {
			if !in.Snapshot.Available(req) {
				missing = true
				break
			}
		}
		if missing {
			findings = append(findings, insufficientData(a.Name))
			continue
		}
		findings = append(findings, a.Run(in)...)
	}

	risk.Sort(findings)
	return findings
}

// insufficientData is the degraded-mode placeholder finding.
//
// Category is Reputation rather than Security so that missing data can
// never perturb a Security sub-score or a version comparison's
// vulnerability diff.
func insufficientData(analyzer string) risk.Finding {
	return risk.Finding{
		Name:        "insufficient_data",
		Severity:    risk.SeverityInfo,
		Category:    risk.CategoryReputation,
		Description: fmt.Sprintf("insufficient data for %s: required provider unavailable", analyzer),
		Evidence:    analyzer,
	}
}

// ageDays returns whole days between created and now, floored at zero.
func ageDays(created, now time.Time) int {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}
