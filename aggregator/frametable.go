// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package aggregator // import "go.opentelemetry.io/stackprof/aggregator"

import (
	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/libpf/orderedset"
)

// Resolver looks up the display information of a host handle.
type Resolver interface {
	Resolve(h libpf.Handle) libpf.FrameInfo
}

// FrameTable interns handles into session-local frame IDs. It is not safe
// for concurrent use.
type FrameTable struct {
	ids       *orderedset.OrderedSet[libpf.Handle]
	info      []libpf.FrameInfo
	synthetic []bool
}

// NewFrameTable returns an empty table.
func NewFrameTable() *FrameTable {
	return &FrameTable{ids: orderedset.New[libpf.Handle]()}
}

// Intern returns the ID of h, allocating the next ID on first sighting.
// The resolver is only consulted when a new ID is allocated.
func (t *FrameTable) Intern(h libpf.Handle, r Resolver) (id libpf.FrameID, created bool) {
	idx, exists := t.ids.AddWithCheck(h)
	if exists {
		return libpf.FrameID(idx), false
	}

	info, synthetic := libpf.SyntheticInfo(h)
	if !synthetic {
		info = r.Resolve(h)
	}
	t.info = append(t.info, info)
	t.synthetic = append(t.synthetic, synthetic)
	return libpf.FrameID(idx), true
}

// Info returns the display information of id.
func (t *FrameTable) Info(id libpf.FrameID) (info libpf.FrameInfo, synthetic bool) {
	return t.info[id], t.synthetic[id]
}

// Len returns the number of interned frames.
func (t *FrameTable) Len() int {
	return t.ids.Len()
}
