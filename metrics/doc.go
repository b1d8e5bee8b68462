// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package metrics reports the profiler's own health: captured and missed samples,
trigger counts, interning table sizes and symbolization cache efficiency.

Metric definitions live in the embedded metrics.json. Each definition becomes an
OTel Int64Counter or Int64Gauge on the global meter provider, so the metrics go
wherever the embedding program configured OTel to send them.

Example:

	metrics.AddSlice([]metrics.Metric{
		{ID: metrics.IDSamples, Value: metrics.MetricValue(samples)},
		{ID: metrics.IDMissedSamples, Value: metrics.MetricValue(missed)},
	})
*/
package metrics // import "go.opentelemetry.io/stackprof/metrics"
