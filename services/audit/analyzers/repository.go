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

	"github.com/AleutianAI/depscope/pkg/validation"
	"github.com/AleutianAI/depscope/services/audit/providers"
	"github.com/AleutianAI/depscope/services/audit/risk"
)

// analyzeRepository verifies that the package points at a real, live
// source repository.
//
// A verified, active, correctly-named repository produces no finding;
// silence is the healthy signal. The repository provider is consulted
// only when the registry supplied a parseable URL, so this analyzer
// distinguishes "no URL" (a finding about the package) from "lookup
// failed" (insufficient data).
func analyzeRepository(in Input) []risk.Finding {
	meta := in.Snapshot.Metadata

	if meta.RepositoryURL == "" {
		return []risk.Finding{{
			Name:        "missing_repository",
			Severity:    risk.SeverityMedium,
			Category:    risk.CategoryAuthenticity,
			Description: "package does not declare a source repository",
		}}
	}

	ref, err := validation.ParseRepoURL(meta.RepositoryURL)
	if err != nil {
		return []risk.Finding{{
			Name:        "unparseable_repository",
			Severity:    risk.SeverityMedium,
			Category:    risk.CategoryAuthenticity,
			Description: fmt.Sprintf("declared repository URL cannot be resolved: %v", err),
			Evidence:    meta.RepositoryURL,
		}}
	}

	repo := in.Snapshot.Repository
	if repo == nil {
		if f := in.Snapshot.RepositoryFailure; f != nil && f.Kind == providers.FailureNotFound {
			return []risk.Finding{{
				Name:        "repository_not_found",
				Severity:    risk.SeverityMedium,
				Category:    risk.CategoryAuthenticity,
				Description: fmt.Sprintf("declared repository %s/%s does not exist", ref.Owner, ref.Repo),
				Evidence:    meta.RepositoryURL,
			}}
		}
		return []risk.Finding{insufficientData("repository_verification")}
	}

	var findings []risk.Finding
	if repo.Archived {
		findings = append(findings, risk.Finding{
			Name:        "repository_archived",
			Severity:    risk.SeverityMedium,
			Category:    risk.CategoryAuthenticity,
			Description: fmt.Sprintf("source repository %s is archived and read-only", repo.FullName),
			Evidence:    repo.FullName,
		})
	}
	if expected := ref.Owner + "/" + ref.Repo; !strings.EqualFold(repo.FullName, expected) {
		findings = append(findings, risk.Finding{
			Name:        "repository_name_mismatch",
			Severity:    risk.SeverityMedium,
			Category:    risk.CategoryAuthenticity,
			Description: fmt.Sprintf("declared repository %s resolves to %s upstream", expected, repo.FullName),
			Evidence:    repo.FullName,
		})
	}
	return findings
}
