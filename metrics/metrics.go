// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package metrics // import "go.opentelemetry.io/stackprof/metrics"

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"go.opentelemetry.io/stackprof/vc"
)

// Reporter receives every batch of metrics in addition to the OTel instruments.
type Reporter interface {
	ReportMetrics(ids []uint32, values []int64)
}

var (
	//go:embed metrics.json
	metricsJSON []byte

	// Used in fallback checks, e.g. to avoid sending "counters" with 0 values
	metricTypes map[MetricID]MetricType

	// OTel metric instrumentation
	meter = otel.Meter("go.opentelemetry.io/stackprof",
		metric.WithInstrumentationVersion(vc.Version()))
	counters = map[MetricID]metric.Int64Counter{}
	gauges   = map[MetricID]metric.Int64Gauge{}

	// mutex serializes reporting and guards reporterImpl
	mutex        sync.Mutex
	reporterImpl Reporter
)

// SetReporter installs r as additional receiver of metrics. nil removes it.
func SetReporter(r Reporter) {
	mutex.Lock()
	defer mutex.Unlock()
	reporterImpl = r
}

func init() {
	defs, err := GetDefinitions()
	if err != nil {
		panic(err)
	}
	metricTypes = make(map[MetricID]MetricType, len(defs))
	for _, md := range defs {
		if md.Obsolete {
			continue
		}
		metricTypes[md.ID] = md.Type
		switch typ := md.Type; typ {
		case MetricTypeCounter:
			counter, err := meter.Int64Counter(md.Name,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Counter: %v", err)
				continue
			}
			counters[md.ID] = counter
		case MetricTypeGauge:
			gauge, err := meter.Int64Gauge(md.Name,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Gauge: %v", err)
				continue
			}
			gauges[md.ID] = gauge
		default:
			panic(fmt.Sprintf("Unknown metric type: %v", typ))
		}
	}
}

// AddSlice reports a batch of metrics. Invalid IDs and counters with a 0 value are
// dropped, as are repeated IDs within the batch.
func AddSlice(newMetrics []Metric) {
	if len(newMetrics) == 0 {
		return
	}

	ctx := context.Background()
	var seen [IDMax]bool
	ids := make([]uint32, 0, len(newMetrics))
	values := make([]int64, 0, len(newMetrics))

	mutex.Lock()
	defer mutex.Unlock()

	for _, m := range newMetrics {
		if m.ID <= IDInvalid || m.ID >= IDMax {
			log.Errorf("Metric value %d out of range [%d,%d]- needs investigation",
				m.ID, IDInvalid+1, IDMax-1)
			continue
		}
		typ, ok := metricTypes[m.ID]
		if !ok {
			log.Warnf("Invalid metric id %d, skipping", m.ID)
			continue
		}
		if m.Value == 0 && typ == MetricTypeCounter {
			continue
		}
		if seen[m.ID] {
			log.Warnf("Metric ID %d:%v reported multiple times", m.ID, m.Value)
			continue
		}
		seen[m.ID] = true

		switch typ {
		case MetricTypeCounter:
			if counter, ok := counters[m.ID]; ok {
				counter.Add(ctx, int64(m.Value))
			}
		case MetricTypeGauge:
			if gauge, ok := gauges[m.ID]; ok {
				gauge.Record(ctx, int64(m.Value))
			}
		}
		ids = append(ids, uint32(m.ID))
		values = append(values, int64(m.Value))
	}

	if reporterImpl != nil && len(ids) > 0 {
		reporterImpl.ReportMetrics(ids, values)
	}
}

// Add reports a single metric.
func Add(id MetricID, value MetricValue) {
	AddSlice([]Metric{{id, value}})
}

// GetDefinitions returns the metric definitions from the embedded metrics.json file.
func GetDefinitions() ([]MetricDefinition, error) {
	var defs []MetricDefinition

	dec := json.NewDecoder(bytes.NewReader(metricsJSON))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&defs); err != nil {
		return nil, fmt.Errorf("extracting definitions from metrics.json: %w", err)
	}
	return defs, nil
}
