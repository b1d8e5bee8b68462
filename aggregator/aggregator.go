// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package aggregator turns captured stacks into per-frame counters: self and
// total samples, per-line hits and call edges.
package aggregator // import "go.opentelemetry.io/stackprof/aggregator"

import (
	"fmt"

	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/profile"
)

// Aggregator interns and counts the stacks of one session. It is not safe
// for concurrent use; the sampler serializes access.
type Aggregator struct {
	table    *FrameTable
	counters Counters

	lines []int
}

func New() *Aggregator {
	return &Aggregator{table: NewFrameTable()}
}

// NewCountsOnly creates an aggregator that keeps self and total samples but
// no line hits or call edges. Profiles built from it rely on the raw stream
// for call structure.
func NewCountsOnly() *Aggregator {
	return &Aggregator{
		table:    NewFrameTable(),
		counters: Counters{countsOnly: true},
	}
}

// Record interns and counts one stack, innermost location first. The IDs of
// the stack are appended to ids[:0] and returned, so the caller can hand
// them on to the raw encoder.
func (a *Aggregator) Record(stack []libpf.Location, r Resolver, weight uint64,
	ids []libpf.FrameID) []libpf.FrameID {
	ids = ids[:0]
	a.lines = a.lines[:0]
	for _, loc := range stack {
		id, _ := a.table.Intern(loc.Handle, r)
		ids = append(ids, id)
		a.lines = append(a.lines, loc.Line)
	}
	a.counters.Record(ids, a.lines, weight)
	return ids
}

// Frames returns the number of interned frames.
func (a *Aggregator) Frames() int {
	return a.table.Len()
}

// Snapshot returns a copy of the counters of every interned frame.
func (a *Aggregator) Snapshot() map[libpf.FrameID]*profile.Frame {
	return a.counters.Frames(a.table.Info)
}

// Replay rebuilds the frame counters of p from its raw stream. The result
// matches the frames of p except for line hits, which the raw stream does
// not carry.
func Replay(p *profile.Profile) (map[libpf.FrameID]*profile.Frame, error) {
	raw, err := p.RawStream()
	if err != nil {
		return nil, err
	}
	records, err := raw.Records()
	if err != nil {
		return nil, err
	}

	var c Counters
	for _, rec := range records {
		for _, id := range rec.Stack {
			if _, ok := p.Frames[id]; !ok {
				return nil, fmt.Errorf("raw stream references unknown frame %d", id)
			}
		}
		c.Record(rec.Stack, nil, rec.Weight)
	}
	// Frames that never occur in the raw stream keep zero counters.
	for id := range p.Frames {
		c.frame(id)
	}

	frames := c.Frames(func(id libpf.FrameID) (libpf.FrameInfo, bool) {
		if f, ok := p.Frames[id]; ok {
			return f.Info(), f.Synthetic
		}
		return libpf.FrameInfo{}, false
	})
	for id := range frames {
		if _, ok := p.Frames[id]; !ok {
			delete(frames, id)
		}
	}
	return frames, nil
}
