// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/stackprof/metrics"
)

// logReporter logs every reported metric at debug level.
type logReporter struct {
	names map[uint32]string
}

func newLogReporter() (*logReporter, error) {
	defs, err := metrics.GetDefinitions()
	if err != nil {
		return nil, err
	}
	names := make(map[uint32]string, len(defs))
	for _, d := range defs {
		names[uint32(d.ID)] = d.Field
	}
	return &logReporter{names: names}, nil
}

func (r *logReporter) ReportMetrics(ids []uint32, values []int64) {
	fields := make(log.Fields, len(ids))
	for i, id := range ids {
		fields[r.names[id]] = values[i]
	}
	log.WithFields(fields).Debug("Metrics")
}
