// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{InMemory: true, TTL: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("round-trips a record", func(t *testing.T) {
		store := openTestStore(t)

		rec := Record{
			Package:         "lodash",
			ResolvedVersion: "4.17.21",
			RiskScore:       5,
			RiskLevel:       "low",
			AuditedAt:       base,
		}
		require.NoError(t, store.Append(rec))

		records, err := store.List("lodash", 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, rec, records[0])
	})

	t.Run("lists newest first with limit", func(t *testing.T) {
		store := openTestStore(t)

		for i := 0; i < 5; i++ {
			require.NoError(t, store.Append(Record{
				Package:         "express",
				ResolvedVersion: "4.18.2",
				RiskScore:       10 + i,
				RiskLevel:       "low",
				AuditedAt:       base.Add(time.Duration(i) * time.Minute),
			}))
		}

		records, err := store.List("express", 3)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, 14, records[0].RiskScore, "newest record first")
		assert.Equal(t, 13, records[1].RiskScore)
		assert.Equal(t, 12, records[2].RiskScore)
	})

	t.Run("scoped package names keep their slash", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.Append(Record{
			Package: "@babel/core", ResolvedVersion: "7.24.0", RiskLevel: "low", AuditedAt: base,
		}))
		require.NoError(t, store.Append(Record{
			Package: "@babel/core-extra", ResolvedVersion: "1.0.0", RiskLevel: "low", AuditedAt: base,
		}))

		records, err := store.List("@babel/core", 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "@babel/core", records[0].Package)
	})

	t.Run("packages lists distinct names", func(t *testing.T) {
		store := openTestStore(t)

		for _, pkg := range []string{"b-pkg", "a-pkg", "a-pkg"} {
			require.NoError(t, store.Append(Record{Package: pkg, RiskLevel: "low", AuditedAt: base}))
			base = base.Add(time.Second)
		}

		names, err := store.Packages()
		require.NoError(t, err)
		assert.Equal(t, []string{"a-pkg", "b-pkg"}, names)
	})

	t.Run("unknown package lists empty", func(t *testing.T) {
		store := openTestStore(t)
		records, err := store.List("never-audited", 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
