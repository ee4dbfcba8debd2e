// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package risk

import "math"

// Composite score bounds. The floor is never 0: a composite of 0 would
// read as "scoring failed" rather than "maximally risky", and no
// package is ever fully free of risk.
const (
	CompositeFloor = 5
	CompositeCeil  = 100
)

// Level is the discrete risk level derived from the composite score.
type Level string

const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
)

// severityWeights drive the composite accumulation.
var severityWeights = map[Severity]float64{
	SeverityCritical: 0.5,
	SeverityHigh:     0.3,
	SeverityMedium:   0.15,
	SeverityLow:      0.05,
	SeverityInfo:     0,
}

// Weight returns the composite accumulation weight for a severity.
// Unknown severities weigh nothing.
func Weight(s Severity) float64 {
	return severityWeights[s]
}

// Composite reduces a finding list to the composite risk score in
// [CompositeFloor, CompositeCeil].
//
// # Description
//
// Severity weights are summed across all findings into W, and the
// score is round(100 x (1 - 0.5^W)), clamped to [5, 100]. The
// exponential form gives diminishing returns: one Critical finding
// moves the score far more than the tenth does, and no finite finding
// list reaches exactly 100. An empty finding list scores the floor,
// reflecting irreducible uncertainty about any package.
//
// Composite is a pure function of the finding list, so identical
// cached provider data always reproduces the identical score.
func Composite(findings []Finding) int {
	var w float64
	for _, f := range findings {
		w += Weight(f.Severity)
	}

	raw := 100 * (1 - math.Pow(0.5, w))
	score := int(math.Round(raw))

	if score < CompositeFloor {
		return CompositeFloor
	}
	if score > CompositeCeil {
		return CompositeCeil
	}
	return score
}

// LevelFor maps a composite score to its discrete risk level.
//
// Thresholds: >=76 critical, >=51 high, >=26 medium, else low.
func LevelFor(score int) Level {
	switch {
	case score >= 76:
		return LevelCritical
	case score >= 51:
		return LevelHigh
	case score >= 26:
		return LevelMedium
	default:
		return LevelLow
	}
}

// CategoryScores holds the four independent 0-100 sub-scores.
// Unlike the composite, these are health scores: 100 means no
// deductions were applied in that category.
type CategoryScores struct {
	Authenticity int `json:"authenticity"`
	Maintenance  int `json:"maintenance"`
	Security     int `json:"security"`
	Reputation   int `json:"reputation"`
}

// categoryDeductions are the per-finding sub-score deductions.
var categoryDeductions = map[Severity]int{
	SeverityCritical: 40,
	SeverityHigh:     25,
	SeverityMedium:   15,
	SeverityLow:      5,
	SeverityInfo:     0,
}

// ScoreCategories computes the four category sub-scores.
//
// Each category starts at 100 and applies severity-weighted deductions
// for findings in that category only, floored at 0. Decay is
// independent per category and not normalized against the composite.
func ScoreCategories(findings []Finding) CategoryScores {
	scores := map[Category]int{
		CategoryAuthenticity: 100,
		CategoryMaintenance:  100,
		CategorySecurity:     100,
		CategoryReputation:   100,
	}

	for _, f := range findings {
		current, ok := scores[f.Category]
		if !ok {
			continue
		}
		next := current - categoryDeductions[f.Severity]
		if next < 0 {
			next = 0
		}
		scores[f.Category] = next
	}

	return CategoryScores{
		Authenticity: scores[CategoryAuthenticity],
		Maintenance:  scores[CategoryMaintenance],
		Security:     scores[CategorySecurity],
		Reputation:   scores[CategoryReputation],
	}
}
