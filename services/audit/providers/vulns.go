// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// DefaultVulnBaseURL is the OSV.dev API endpoint.
const DefaultVulnBaseURL = "https://api.osv.dev"

// vulnEcosystem is the ecosystem sent with every feed query.
const vulnEcosystem = "npm"

// VulnClient queries the OSV vulnerability feed.
type VulnClient struct {
	baseURL string
	doer    Doer
}

// NewVulnClient creates a vulnerability-feed client. An empty baseURL
// selects the public OSV API.
func NewVulnClient(baseURL string, doer Doer) *VulnClient {
	if baseURL == "" {
		baseURL = DefaultVulnBaseURL
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &VulnClient{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

// osvResponse mirrors the subset of the OSV query response this engine
// consumes. Unknown fields are ignored; missing fields decode to zero
// values.
type osvResponse struct {
	Vulns []struct {
		ID       string   `json:"id"`
		Aliases  []string `json:"aliases"`
		Summary  string   `json:"summary"`
		Details  string   `json:"details"`
		Severity []struct {
			Type  string `json:"type"`
			Score string `json:"score"`
		} `json:"severity"`
		DatabaseSpecific struct {
			Severity string `json:"severity"`
		} `json:"database_specific"`
		Affected []struct {
			Package struct {
				Ecosystem string `json:"ecosystem"`
				Name      string `json:"name"`
			} `json:"package"`
			Versions []string `json:"versions"`
			Ranges   []struct {
				Type   string `json:"type"`
				Events []struct {
					Introduced   string `json:"introduced"`
					Fixed        string `json:"fixed"`
					LastAffected string `json:"last_affected"`
				} `json:"events"`
			} `json:"ranges"`
		} `json:"affected"`
		Published string `json:"published"`
		Modified  string `json:"modified"`
	} `json:"vulns"`
}

// Query fetches all known vulnerability records for a package.
//
// Version-range filtering happens in the analyzer stage, not here: the
// comparator audits two versions from one cached feed response.
func (c *VulnClient) Query(ctx context.Context, name string) (*VulnReport, *Failure) {
	start := time.Now()
	report, failure := c.query(ctx, name)
	observe(ProviderVulnerabilities, start, failure)
	return report, failure
}

func (c *VulnClient) query(ctx context.Context, name string) (*VulnReport, *Failure) {
	payload, err := json.Marshal(map[string]any{
		"package": map[string]string{
			"name":      name,
			"ecosystem": vulnEcosystem,
		},
	})
	if err != nil {
		return nil, failuref(ProviderVulnerabilities, FailureUnreachable, "encode query: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/query", bytes.NewReader(payload))
	if err != nil {
		return nil, failuref(ProviderVulnerabilities, FailureUnreachable, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, _, failure := doRequest(ctx, c.doer, ProviderVulnerabilities, req)
	if failure != nil {
		return nil, failure
	}

	var doc osvResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, failuref(ProviderVulnerabilities, FailureMalformed, "decode feed response: %v", err)
	}

	report := &VulnReport{}
	for _, v := range doc.Vulns {
		vuln := Vulnerability{
			ID:        v.ID,
			Aliases:   v.Aliases,
			Summary:   v.Summary,
			Details:   v.Details,
			Severity:  extractSeverity(v.Severity, v.DatabaseSpecific.Severity),
			Published: parseRegistryTime(v.Published),
			Modified:  parseRegistryTime(v.Modified),
		}
		for _, alias := range v.Aliases {
			if strings.HasPrefix(alias, "CVE-") {
				vuln.CVE = alias
				break
			}
		}
		for _, affected := range v.Affected {
			if affected.Package.Ecosystem != "" && !strings.EqualFold(affected.Package.Ecosystem, vulnEcosystem) {
				continue
			}
			if affected.Package.Name != "" && affected.Package.Name != name {
				continue
			}
			vuln.Versions = append(vuln.Versions, affected.Versions...)
			for _, r := range affected.Ranges {
				vr := VersionRange{Type: r.Type}
				for _, e := range r.Events {
					vr.Events = append(vr.Events, RangeEvent{
						Introduced:   e.Introduced,
						Fixed:        e.Fixed,
						LastAffected: e.LastAffected,
					})
				}
				vuln.Ranges = append(vuln.Ranges, vr)
			}
		}
		report.Vulnerabilities = append(report.Vulnerabilities, vuln)
	}

	return report, nil
}

// extractSeverity normalizes the feed's severity signal. The
// database_specific label wins when present; otherwise the CVSS score
// string is inspected; the default is medium so unknown records still
// score.
func extractSeverity(cvss []struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}, dbLabel string) string {
	if dbLabel != "" {
		return strings.ToLower(dbLabel)
	}
	for _, s := range cvss {
		if !strings.HasPrefix(s.Type, "CVSS") {
			continue
		}
		upper := strings.ToUpper(s.Score)
		switch {
		case strings.Contains(upper, "CRITICAL"):
			return "critical"
		case strings.Contains(upper, "HIGH"):
			return "high"
		case strings.Contains(upper, "MEDIUM"):
			return "medium"
		case strings.Contains(upper, "LOW"):
			return "low"
		}
	}
	return "medium"
}
