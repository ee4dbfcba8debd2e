// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the freshness cache.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_cache_hits_total",
		Help: "Freshness cache hits",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_cache_misses_total",
		Help: "Freshness cache misses, including expirations",
	})

	cacheExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_cache_expired_total",
		Help: "Entries discarded because fetchedAt+ttl passed",
	})

	cacheSharedFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_cache_shared_fetches_total",
		Help: "Fetches that were deduplicated onto an in-flight call",
	})
)

func recordHit()     { cacheHitsTotal.Inc() }
func recordExpired() { cacheExpiredTotal.Inc() }
func recordShared()  { cacheSharedFetchesTotal.Inc() }
func recordMiss()    { cacheMissesTotal.Inc() }
