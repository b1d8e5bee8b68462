// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package host // import "go.opentelemetry.io/stackprof/host"

import "go.opentelemetry.io/stackprof/libpf"

// GCProbe reports whether the runtime is collecting garbage. It is called
// from trigger goroutines and must not block.
type GCProbe interface {
	Phase() libpf.GCPhase
}

// GCProbeFunc adapts a function to GCProbe.
type GCProbeFunc func() libpf.GCPhase

func (f GCProbeFunc) Phase() libpf.GCPhase {
	return f()
}

// NoGC never reports collector activity. The Go runtime does not expose the
// current collector phase, so this is the default probe.
var NoGC GCProbe = GCProbeFunc(func() libpf.GCPhase { return libpf.GCNone })
