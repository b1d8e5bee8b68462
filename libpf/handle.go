// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "go.opentelemetry.io/stackprof/libpf"

// Handle is the opaque identity the host runtime assigns to a function. Two
// captures of the same function yield the same Handle for the lifetime of
// the process. The zero Handle is never valid.
type Handle uintptr

// Handles reserved for the synthetic frames that stand in for runtime
// housekeeping. Host walkers never hand these out.
const (
	HandleGC Handle = iota + 1
	HandleMarking
	HandleSweeping

	// FirstHostHandle is the lowest Handle a host walker may assign.
	FirstHostHandle
)

// Synthetic reports whether h is one of the reserved GC-phase handles.
func (h Handle) Synthetic() bool {
	return h >= HandleGC && h < FirstHostHandle
}

// Location is one entry of a captured stack: the function and the line that
// was executing in it.
type Location struct {
	Handle Handle
	Line   int
}

// FrameInfo is the display information of a function.
type FrameInfo struct {
	Name string
	File string
	// Line is the first line of the function, 0 if unknown.
	Line int
}

var syntheticInfo = [...]FrameInfo{
	HandleGC:       {Name: "(garbage collection)"},
	HandleMarking:  {Name: "(marking)"},
	HandleSweeping: {Name: "(sweeping)"},
}

// SyntheticInfo returns the display information of a reserved handle.
func SyntheticInfo(h Handle) (FrameInfo, bool) {
	if !h.Synthetic() {
		return FrameInfo{}, false
	}
	return syntheticInfo[h], true
}

// GCPhase is the housekeeping state of the runtime at the moment a sample
// was triggered.
type GCPhase uint8

const (
	GCNone GCPhase = iota
	GCMarking
	GCSweeping
	// GCOther is any collector activity that is neither marking nor sweeping.
	GCOther
)

var gcPhaseNames = [...]string{
	GCNone:     "none",
	GCMarking:  "marking",
	GCSweeping: "sweeping",
	GCOther:    "other",
}

func (p GCPhase) String() string {
	if int(p) < len(gcPhaseNames) {
		return gcPhaseNames[p]
	}
	return "unknown"
}

// SyntheticStack returns the innermost-first synthetic stack a sample taken
// in phase p is attributed to. Sub-phases are layered on top of the generic
// garbage collection frame. It returns nil for GCNone.
func SyntheticStack(p GCPhase) []Location {
	switch p {
	case GCMarking:
		return []Location{{Handle: HandleMarking}, {Handle: HandleGC}}
	case GCSweeping:
		return []Location{{Handle: HandleSweeping}, {Handle: HandleGC}}
	case GCOther:
		return []Location{{Handle: HandleGC}}
	default:
		return nil
	}
}
