// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profile // import "go.opentelemetry.io/stackprof/profile"

import (
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/stackprof/libpf"
)

// mergedFrame accumulates one content-identified frame across profiles.
type mergedFrame struct {
	info      libpf.FrameInfo
	synthetic bool
	samples   uint64
	total     uint64
	lines     map[int]LineHits
	edges     map[libpf.ContentID]uint64
}

// Combine merges profiles of the same mode, version and interval into a new
// profile. Frames are matched by name, file and line since frame IDs are
// local to the session that assigned them. The result does not depend on the
// order or grouping of the inputs: its frame IDs follow the content order of
// the frames. Raw streams, sample tags and metadata are not carried over.
func Combine(profiles ...*Profile) (*Profile, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: no profiles to combine", ErrIncompatibleMerge)
	}
	for i, p := range profiles {
		if p == nil {
			return nil, fmt.Errorf("%w: profile %d is nil", ErrIncompatibleMerge, i)
		}
		if err := compatible(profiles[0], p); err != nil {
			return nil, fmt.Errorf("profile %d: %w", i, err)
		}
	}

	out := &Profile{
		Version:  profiles[0].Version,
		Mode:     profiles[0].Mode,
		Interval: profiles[0].Interval,
	}
	byContent := make(map[libpf.ContentID]*mergedFrame)

	for i, p := range profiles {
		out.Samples += p.Samples
		out.GCSamples += p.GCSamples
		out.MissedSamples += p.MissedSamples

		contentOf := make(map[libpf.FrameID]libpf.ContentID, len(p.Frames))
		// Frames of one profile sharing an identity may sit on the same
		// stacks, so their totals can't be added up. The merged total covers
		// the largest of them and at least the merged self and edge weight.
		totals := make(map[libpf.ContentID]uint64, len(p.Frames))
		counted := make(map[libpf.ContentID]uint64, len(p.Frames))
		for id, f := range p.Frames {
			cid := libpf.NewContentID(f.Info())
			contentOf[id] = cid
			totals[cid] = max(totals[cid], f.TotalSamples)
		}

		for id, f := range p.Frames {
			cid := contentOf[id]
			m, ok := byContent[cid]
			if !ok {
				m = &mergedFrame{
					info:  f.Info(),
					lines: make(map[int]LineHits),
					edges: make(map[libpf.ContentID]uint64),
				}
				byContent[cid] = m
			}
			m.synthetic = m.synthetic || f.Synthetic
			m.samples += f.Samples
			counted[cid] += f.Samples
			for line, hits := range f.Lines {
				sum := m.lines[line]
				sum.Total += hits.Total
				sum.Self += hits.Self
				m.lines[line] = sum
			}
			for callee, w := range f.Edges {
				calleeCID, ok := contentOf[callee]
				if !ok {
					return nil, fmt.Errorf("%w: profile %d: frame %d has an edge to unknown frame %d",
						ErrIncompatibleMerge, i, id, callee)
				}
				// A recursive frame's edge goes out from its innermost
				// occurrence, which never calls itself.
				if calleeCID == cid {
					continue
				}
				m.edges[calleeCID] += w
				counted[cid] += w
			}
		}
		for cid, total := range totals {
			byContent[cid].total += max(total, counted[cid])
		}
	}

	order := slices.SortedFunc(maps.Keys(byContent), libpf.ContentID.Compare)
	idOf := make(map[libpf.ContentID]libpf.FrameID, len(order))
	for i, cid := range order {
		idOf[cid] = libpf.FrameID(i)
	}

	out.Frames = make(map[libpf.FrameID]*Frame, len(order))
	for _, cid := range order {
		m := byContent[cid]
		f := &Frame{
			Name:         m.info.Name,
			File:         m.info.File,
			Line:         m.info.Line,
			Samples:      m.samples,
			TotalSamples: m.total,
			Synthetic:    m.synthetic,
		}
		if len(m.lines) > 0 {
			f.Lines = m.lines
		}
		if len(m.edges) > 0 {
			f.Edges = make(map[libpf.FrameID]uint64, len(m.edges))
			for callee, w := range m.edges {
				f.Edges[idOf[callee]] = w
			}
		}
		out.Frames[idOf[cid]] = f
	}
	return out, nil
}

func compatible(a, b *Profile) error {
	switch {
	case a.Mode != b.Mode:
		return fmt.Errorf("%w: mode %s != %s", ErrIncompatibleMerge, b.Mode, a.Mode)
	case a.Version != b.Version:
		return fmt.Errorf("%w: version %v != %v", ErrIncompatibleMerge, b.Version, a.Version)
	case a.Interval != b.Interval:
		return fmt.Errorf("%w: interval %d != %d", ErrIncompatibleMerge, b.Interval, a.Interval)
	}
	return nil
}
