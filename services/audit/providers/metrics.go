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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for upstream provider calls.
var (
	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_provider_requests_total",
		Help: "Upstream provider calls by provider and outcome",
	}, []string{"provider", "outcome"})

	providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_provider_request_duration_seconds",
		Help:    "Upstream provider call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider"})
)

// observe records metrics for one completed provider call.
func observe(provider Name, start time.Time, failure *Failure) {
	providerRequestDuration.WithLabelValues(string(provider)).Observe(time.Since(start).Seconds())

	outcome := "success"
	if failure != nil {
		outcome = string(failure.Kind)
	}
	providerRequestsTotal.WithLabelValues(string(provider), outcome).Inc()
}
