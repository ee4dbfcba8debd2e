// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the audit service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address for serve mode.
	ListenAddr string `yaml:"listen_addr"`

	// Upstream base URLs, overridable for tests and mirrors.
	RegistryURL  string `yaml:"registry_url"`
	DownloadsURL string `yaml:"downloads_url"`
	RepoAPIURL   string `yaml:"repo_api_url"`
	VulnFeedURL  string `yaml:"vuln_feed_url"`

	// RepoToken authenticates repository API calls. Optional; without
	// it the client self-limits to the anonymous quota.
	RepoToken string `yaml:"repo_token"`

	// OverallTimeout bounds one whole audit; CallTimeout bounds each
	// provider call inside it.
	OverallTimeout time.Duration `yaml:"overall_timeout"`
	CallTimeout    time.Duration `yaml:"call_timeout"`

	// Per-provider cache TTLs. Repository metadata is cached longest:
	// it changes least and its upstream rate-limits hardest.
	TTL TTLConfig `yaml:"ttl"`

	// CacheMaxEntries bounds the freshness cache.
	CacheMaxEntries int `yaml:"cache_max_entries"`

	// HistoryDir is the on-disk audit history location. Empty disables
	// history.
	HistoryDir string `yaml:"history_dir"`

	// HistoryTTL is how long persisted audits are retained.
	HistoryTTL time.Duration `yaml:"history_ttl"`
}

// TTLConfig carries the per-provider freshness windows.
type TTLConfig struct {
	Registry        time.Duration `yaml:"registry"`
	Downloads       time.Duration `yaml:"downloads"`
	Repository      time.Duration `yaml:"repository"`
	Vulnerabilities time.Duration `yaml:"vulnerabilities"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8085",
		RegistryURL:     "https://registry.npmjs.org",
		DownloadsURL:    "https://api.npmjs.org",
		RepoAPIURL:      "https://api.github.com",
		VulnFeedURL:     "https://api.osv.dev",
		OverallTimeout:  10 * time.Second,
		CallTimeout:     5 * time.Second,
		CacheMaxEntries: 4096,
		TTL: TTLConfig{
			Registry:        5 * time.Minute,
			Downloads:       15 * time.Minute,
			Repository:      1 * time.Hour,
			Vulnerabilities: 30 * time.Minute,
		},
		HistoryTTL: 30 * 24 * time.Hour,
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing
// path is not an error; defaults apply. Environment variables
// DEPSCOPE_LISTEN_ADDR, DEPSCOPE_REPO_TOKEN, and DEPSCOPE_HISTORY_DIR
// override the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read the config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse the config file: %w", err)
		}
	}

	if v := os.Getenv("DEPSCOPE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DEPSCOPE_REPO_TOKEN"); v != "" {
		cfg.RepoToken = v
	}
	if v := os.Getenv("DEPSCOPE_HISTORY_DIR"); v != "" {
		cfg.HistoryDir = v
	}

	return cfg, nil
}
