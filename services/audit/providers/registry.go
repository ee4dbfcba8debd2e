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
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// DefaultRegistryBaseURL is the npm registry endpoint.
const DefaultRegistryBaseURL = "https://registry.npmjs.org"

// RegistryClient fetches package metadata from the npm registry.
type RegistryClient struct {
	baseURL string
	doer    Doer
}

// NewRegistryClient creates a registry client. An empty baseURL selects
// the public registry; tests point it at an httptest server.
func NewRegistryClient(baseURL string, doer Doer) *RegistryClient {
	if baseURL == "" {
		baseURL = DefaultRegistryBaseURL
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &RegistryClient{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

// registryDoc mirrors the loosely-structured registry document. Fields
// whose upstream type varies across publish eras are held as
// json.RawMessage and decoded tolerantly.
type registryDoc struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	License     json.RawMessage           `json:"license"`
	Repository  json.RawMessage           `json:"repository"`
	DistTags    map[string]string         `json:"dist-tags"`
	Time        map[string]string         `json:"time"`
	Maintainers []registryPerson          `json:"maintainers"`
	Versions    map[string]registryVerDoc `json:"versions"`
}

type registryVerDoc struct {
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	License      json.RawMessage   `json:"license"`
	Repository   json.RawMessage   `json:"repository"`
	Scripts      map[string]string `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
	Maintainers  []registryPerson  `json:"maintainers"`
}

type registryPerson struct {
	Name string `json:"name"`
}

// FetchMetadata fetches and normalizes the registry document for a
// package.
//
// A well-formed 404 is returned as Failure(NotFound, ...): the caller
// treats that as terminal for the audit, unlike a network failure which
// only degrades it.
func (c *RegistryClient) FetchMetadata(ctx context.Context, name string) (*PackageMetadata, *Failure) {
	start := time.Now()
	meta, failure := c.fetchMetadata(ctx, name)
	observe(ProviderRegistry, start, failure)
	return meta, failure
}

func (c *RegistryClient) fetchMetadata(ctx context.Context, name string) (*PackageMetadata, *Failure) {
	url := c.baseURL + "/" + name
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, failuref(ProviderRegistry, FailureUnreachable, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	body, _, failure := doRequest(ctx, c.doer, ProviderRegistry, req)
	if failure != nil {
		return nil, failure
	}

	var doc registryDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, failuref(ProviderRegistry, FailureMalformed, "decode registry document: %v", err)
	}
	if doc.Name == "" || len(doc.Versions) == 0 {
		return nil, failuref(ProviderRegistry, FailureMalformed, "registry document missing name or versions")
	}

	meta := &PackageMetadata{
		Name:          doc.Name,
		Description:   doc.Description,
		License:       decodeLicense(doc.License),
		RepositoryURL: decodeRepository(doc.Repository),
		Maintainers:   personNames(doc.Maintainers),
		DistTags:      doc.DistTags,
		Versions:      make(map[string]VersionMetadata, len(doc.Versions)),
	}
	meta.CreatedAt = parseRegistryTime(doc.Time["created"])
	meta.ModifiedAt = parseRegistryTime(doc.Time["modified"])

	for ver, vd := range doc.Versions {
		meta.Versions[ver] = VersionMetadata{
			Version:       ver,
			Description:   vd.Description,
			License:       decodeLicense(vd.License),
			RepositoryURL: decodeRepository(vd.Repository),
			Scripts:       vd.Scripts,
			Dependencies:  vd.Dependencies,
			Maintainers:   personNames(vd.Maintainers),
		}
	}

	// Prefer the per-version repository URL of the latest publish when
	// the top-level document omits one.
	if meta.RepositoryURL == "" {
		if latest, ok := meta.DistTags["latest"]; ok {
			if vm, ok := meta.Versions[latest]; ok {
				meta.RepositoryURL = vm.RepositoryURL
			}
		}
	}

	return meta, nil
}

// decodeLicense handles the string, {type}, and legacy array shapes.
func decodeLicense(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Type != "" {
		return obj.Type
	}
	var list []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].Type
	}
	return ""
}

// decodeRepository handles the string and {type,url} shapes and strips
// the git+ prefix registries commonly emit.
func decodeRepository(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimPrefix(s, "git+")
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimPrefix(obj.URL, "git+")
	}
	return ""
}

func personNames(people []registryPerson) []string {
	if len(people) == 0 {
		return nil
	}
	names := make([]string, 0, len(people))
	for _, p := range people {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

// parseRegistryTime decodes registry timestamps, returning the zero
// time on any malformed value.
func parseRegistryTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
