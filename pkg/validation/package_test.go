// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		pkg     string
		wantErr bool
	}{
		// Valid names
		{"simple", "lodash", false},
		{"hyphenated", "date-fns", false},
		{"dotted", "socket.io", false},
		{"underscored", "lodash_fork", false},
		{"scoped", "@babel/core", false},
		{"scoped with dots", "@types/node", false},
		{"digits", "base64", false},

		// Invalid names - injection and traversal attempts
		{"empty", "", true},
		{"uppercase", "Lodash", true},
		{"leading dot", ".hidden", true},
		{"leading underscore", "_private", true},
		{"traversal", "../../../etc/passwd", true},
		{"encoded space", "lodash lib", true},
		{"url metachar", "lodash?x=1", true},
		{"scope without name", "@babel", true},
		{"scope double slash", "@babel/core/extra", true},
		{"bare slash", "a/b", true},
		{"too long", strings.Repeat("a", 215), true},
		{"shell metachar", "lodash;rm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.pkg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.pkg, err, tt.wantErr)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"empty means latest", "", false},
		{"semver", "4.17.21", false},
		{"prerelease", "1.0.0-beta.2", false},
		{"build metadata", "1.0.0+build.5", false},
		{"dist tag", "latest", false},
		{"slash", "1.0/2", true},
		{"traversal", "../latest", true},
		{"query", "1.0?x", true},
		{"too long", strings.Repeat("1", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVersion(tt.version)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
		})
	}
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"https", "https://github.com/lodash/lodash", "lodash", "lodash", false},
		{"git+https with .git", "git+https://github.com/lodash/lodash.git", "lodash", "lodash", false},
		{"git protocol", "git://github.com/expressjs/express.git", "expressjs", "express", false},
		{"ssh form", "git@github.com:facebook/react.git", "facebook", "react", false},
		{"trailing path", "https://github.com/babel/babel/tree/main/packages", "babel", "babel", false},
		{"www host", "https://www.github.com/lodash/lodash", "lodash", "lodash", false},

		{"empty", "", "", "", true},
		{"gitlab host", "https://gitlab.com/owner/repo", "", "", true},
		{"lookalike host", "https://github.com.evil.io/owner/repo", "", "", true},
		{"traversal", "https://github.com/../../internal", "", "", true},
		{"missing repo", "https://github.com/onlyowner", "", "", true},
		{"file scheme", "file:///etc/passwd", "", "", true},
		{"owner charset", "https://github.com/ow ner/repo", "", "", true},
		{"dot owner", "https://github.com/./repo", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseRepoURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRepoURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if ref.Owner != tt.wantOwner || ref.Repo != tt.wantRepo {
				t.Errorf("ParseRepoURL(%q) = %s/%s, want %s/%s", tt.url, ref.Owner, ref.Repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}
