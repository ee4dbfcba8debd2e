// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that end up
// in upstream registry URLs and API calls. Using these validators
// prevents injection attacks (URL injection, path traversal, SSRF via
// attacker-controlled repository URLs embedded in package metadata).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Registry package names are limited to 214 characters by npm.
const maxPackageNameLength = 214

// namePattern matches the unscoped part of a package name.
// Allows: lowercase letters, digits, hyphens, underscores, dots.
// Must not start with a dot or underscore.
var namePattern = regexp.MustCompile(`^[a-z0-9\-][a-z0-9\-_.]*$`)

// scopePattern matches a scope without the leading @.
var scopePattern = regexp.MustCompile(`^[a-z0-9\-][a-z0-9\-_.]*$`)

// versionPattern bounds the character set of a version or dist-tag
// before it is placed in an upstream URL. Deliberately wider than
// strict semver so tags like "latest" and prerelease/build metadata
// pass, but URL metacharacters never do.
var versionPattern = regexp.MustCompile(`^[a-zA-Z0-9\-+._]{1,64}$`)

// ValidatePackageName validates a registry package name, scoped or not.
//
// Valid names:
//   - 1-214 characters
//   - lowercase letters, digits, hyphens, underscores, dots
//   - optionally scoped: @scope/name with exactly one slash
//   - no leading dot or underscore in scope or name
//
// Returns an error describing the first violation found.
//
// Example:
//
//	if err := validation.ValidatePackageName(req.Name); err != nil {
//	    return nil, fmt.Errorf("invalid package name: %w", err)
//	}
//	// Safe to embed in a registry URL
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	if len(name) > maxPackageNameLength {
		return fmt.Errorf("package name exceeds %d characters", maxPackageNameLength)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("package name contains traversal sequence")
	}

	if strings.HasPrefix(name, "@") {
		parts := strings.Split(name[1:], "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("scoped package must have format @scope/name: %q", name)
		}
		if !scopePattern.MatchString(parts[0]) {
			return fmt.Errorf("invalid scope: %q", parts[0])
		}
		if !namePattern.MatchString(parts[1]) {
			return fmt.Errorf("invalid package name: %q", parts[1])
		}
		return nil
	}

	if strings.Contains(name, "/") {
		return fmt.Errorf("unscoped package name cannot contain a slash: %q", name)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid package name format: %q", name)
	}
	return nil
}

// ValidateVersion validates a version string or dist-tag before it is
// embedded in an upstream URL. An empty version is valid and means
// "resolve to latest".
func ValidateVersion(version string) error {
	if version == "" {
		return nil
	}
	if !versionPattern.MatchString(version) {
		return fmt.Errorf("invalid version format: %q", version)
	}
	return nil
}

// SanitizePackageName trims and validates a package name.
// Returns the trimmed name if valid, or an error if invalid.
func SanitizePackageName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := ValidatePackageName(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
