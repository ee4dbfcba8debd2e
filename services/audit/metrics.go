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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the audit pipeline.
var (
	auditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_audits_total",
		Help: "Completed audits by mode",
	}, []string{"mode"})

	auditScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_composite_score",
		Help:    "Distribution of composite risk scores",
		Buckets: prometheus.LinearBuckets(5, 10, 10),
	})
)

func recordAudit(degraded bool, score int) {
	mode := "full"
	if degraded {
		mode = "degraded"
	}
	auditsTotal.WithLabelValues(mode).Inc()
	auditScore.Observe(float64(score))
}
