/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics registers the prometheus collectors tracking request and
// backend-operation outcomes, adapted from the teacher's
// internal/metrics/metrics.go collector-registration pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// RequestsTotal counts handled requests by route and outcome status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_manager_requests_total",
			Help: "Total requests handled, by route and HTTP status.",
		},
		[]string{"route", "status"},
	)

	// BackendOpDuration tracks how long each backend operation took.
	BackendOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "check_manager_backend_operation_duration_seconds",
			Help:    "Duration of CheckBackend operations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation", "outcome"},
	)

	// HookInvocationsTotal counts hook calls by stage and outcome, useful
	// for spotting a misbehaving plugin in production.
	HookInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_manager_hook_invocations_total",
			Help: "Total hook invocations, by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)
)

// MustRegister registers every collector against the controller-runtime
// metrics registry, the same shared registry the teacher exposes on its
// manager's metrics endpoint.
func MustRegister() {
	ctrlmetrics.Registry.MustRegister(RequestsTotal, BackendOpDuration, HookInvocationsTotal)
}

// RecordBackendOp is a small helper mirroring the teacher's
// RecordExecution: record duration and bump the outcome counter implicitly
// via the histogram's label.
func RecordBackendOp(backend, operation, outcome string, seconds float64) {
	BackendOpDuration.WithLabelValues(backend, operation, outcome).Observe(seconds)
}
