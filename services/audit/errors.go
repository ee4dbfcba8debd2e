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

import "errors"

// Sentinel errors for the audit service. Only terminal conditions are
// errors; provider failures are carried as data in the snapshot.
var (
	// ErrPackageNotFound indicates the registry has no such package.
	ErrPackageNotFound = errors.New("package not found")

	// ErrVersionNotFound indicates the package exists but the requested
	// version or dist-tag does not.
	ErrVersionNotFound = errors.New("version not found")

	// ErrInvalidPackageName indicates the requested name failed
	// validation before any provider was called.
	ErrInvalidPackageName = errors.New("invalid package name")

	// ErrInvalidVersion indicates the requested version string failed
	// validation.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrRegistryUnavailable indicates the registry could not be
	// consulted at all, so no audit can be assembled.
	ErrRegistryUnavailable = errors.New("registry unavailable")
)
