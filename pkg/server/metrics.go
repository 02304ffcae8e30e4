// Copyright 2026 The Certattest Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAttestations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certattest_attestations_total",
		Help: "The total number of attestation attempts by outcome",
	}, []string{"outcome"})

	metricAttestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "certattest_attest_duration_seconds",
		Help:    "Time spent attesting and persisting one certificate",
		Buckets: prometheus.DefBuckets,
	})

	MetricLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "certattest_api_latency",
		Help: "API Latency on calls",
	}, []string{"code", "method"})

	RequestsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Count all HTTP requests",
	}, []string{"code", "method"})
)

// MetricsObserver records attestation outcomes in the package metrics.
type MetricsObserver struct{}

func (MetricsObserver) ObserveAttestation(outcome string, d time.Duration) {
	metricAttestations.WithLabelValues(outcome).Inc()
	if d > 0 {
		metricAttestDuration.Observe(d.Seconds())
	}
}
