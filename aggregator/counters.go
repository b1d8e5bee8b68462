// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package aggregator // import "go.opentelemetry.io/stackprof/aggregator"

import (
	"maps"

	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/profile"
)

type frameCounters struct {
	samples uint64
	total   uint64

	// seenAt and edgeSeenAt hold the number of the last sample that counted
	// this frame's total and outgoing edge.
	seenAt     uint64
	edgeSeenAt uint64

	lines map[int]profile.LineHits
	edges map[libpf.FrameID]uint64
}

// Counters accumulates per-frame sample counts. It is not safe for
// concurrent use.
type Counters struct {
	frames  []frameCounters
	samples uint64
	weight  uint64

	// countsOnly skips line hits and call edges.
	countsOnly bool
}

// Record counts one captured stack, innermost frame first, weight times.
// lines holds the executing line per stack entry and may be nil.
//
// The innermost frame gains self samples. Every distinct frame gains total
// samples once, however often it recurses. A frame other than the innermost
// one adds the weight to the edge towards the frame it called at its
// innermost occurrence, so that its edges never exceed its non-self samples.
// Counters created with countsOnly set record self and total samples only.
func (c *Counters) Record(stack []libpf.FrameID, lines []int, weight uint64) {
	c.samples++
	c.weight += weight
	if len(stack) == 0 {
		return
	}

	for i, id := range stack {
		f := c.frame(id)
		if f.seenAt == c.samples {
			continue
		}
		f.seenAt = c.samples
		f.total += weight
		if lines != nil && lines[i] > 0 {
			f.addLine(lines[i], weight, i == 0)
		}
	}

	leaf := stack[0]
	c.frame(leaf).samples += weight
	if c.countsOnly {
		return
	}
	for i := 1; i < len(stack); i++ {
		caller := stack[i]
		if caller == leaf {
			continue
		}
		f := c.frame(caller)
		if f.edgeSeenAt == c.samples {
			continue
		}
		f.edgeSeenAt = c.samples
		if f.edges == nil {
			f.edges = make(map[libpf.FrameID]uint64)
		}
		f.edges[stack[i-1]] += weight
	}
}

func (f *frameCounters) addLine(line int, weight uint64, self bool) {
	if f.lines == nil {
		f.lines = make(map[int]profile.LineHits)
	}
	hits := f.lines[line]
	hits.Total += weight
	if self {
		hits.Self += weight
	}
	f.lines[line] = hits
}

func (c *Counters) frame(id libpf.FrameID) *frameCounters {
	for int(id) >= len(c.frames) {
		c.frames = append(c.frames, frameCounters{})
	}
	return &c.frames[id]
}

// Weight returns the sum of all recorded weights.
func (c *Counters) Weight() uint64 {
	return c.weight
}

// Frames returns a deep copy of the counters of every frame, labelled with
// the display information info returns.
func (c *Counters) Frames(info func(libpf.FrameID) (libpf.FrameInfo, bool)) map[libpf.FrameID]*profile.Frame {
	out := make(map[libpf.FrameID]*profile.Frame, len(c.frames))
	for i := range c.frames {
		id := libpf.FrameID(i)
		fc := &c.frames[i]
		fi, synthetic := info(id)
		out[id] = &profile.Frame{
			Name:         fi.Name,
			File:         fi.File,
			Line:         fi.Line,
			Samples:      fc.samples,
			TotalSamples: fc.total,
			Lines:        maps.Clone(fc.lines),
			Edges:        maps.Clone(fc.edges),
			Synthetic:    synthetic,
		}
	}
	return out
}
