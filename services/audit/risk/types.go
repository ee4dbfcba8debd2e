// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package risk defines the finding model and the scoring engine for
// dependency audits.
//
// A Finding is one discrete, typed risk observation produced by an
// analyzer. Findings are reduced into a composite risk score, a
// discrete risk level, and four independent category sub-scores.
// Severity and Category are closed enumerations so a typo in an
// analyzer cannot silently create an unscored finding.
package risk

import "sort"

// Severity is the risk severity of a single finding.
//
// Severities are totally ordered: Critical > High > Medium > Low > Info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns the sort rank of the severity. Higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// Valid reports whether s is a member of the closed severity set.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// ParseSeverity maps a feed-supplied severity string onto the closed
// enumeration. Unknown values map to SeverityMedium so a feed that
// invents a new label still produces a scored finding.
func ParseSeverity(raw string) Severity {
	switch Severity(raw) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return Severity(raw)
	default:
		return SeverityMedium
	}
}

// Category buckets findings for the four sub-scores.
type Category string

const (
	CategoryAuthenticity Category = "authenticity"
	CategoryMaintenance  Category = "maintenance"
	CategorySecurity     Category = "security"
	CategoryReputation   Category = "reputation"
)

// Categories lists all categories in presentation order.
var Categories = []Category{
	CategoryAuthenticity,
	CategoryMaintenance,
	CategorySecurity,
	CategoryReputation,
}

// Finding is one discrete risk observation.
//
// Findings are produced fresh per audit and are never persisted
// independently of the audit result that contains them.
type Finding struct {
	// Name is a short human-readable finding name.
	Name string `json:"name"`

	// Severity is the finding severity (closed set).
	Severity Severity `json:"severity"`

	// Category is the sub-score bucket (closed set, exactly one).
	Category Category `json:"category"`

	// Description is a human-readable explanation.
	Description string `json:"description"`

	// Evidence holds optional supporting detail (matched pattern,
	// similarity ratio, affected range).
	Evidence string `json:"evidence,omitempty"`

	// VulnID identifies the vulnerability record behind a Security
	// finding (OSV ID or CVE alias). Empty for non-vulnerability
	// findings. The version comparator diffs on this identity.
	VulnID string `json:"vuln_id,omitempty"`
}

// Sort orders findings by severity, most severe first. The sort is
// stable so analyzer emission order breaks ties deterministically.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() > findings[j].Severity.Rank()
	})
}
