// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package reporter renders profiles for humans and other tools and moves them
// between processes: text tables, graphviz call graphs, annotated source,
// collapsed stacks and pprof, written to local files or S3 objects.
package reporter // import "go.opentelemetry.io/stackprof/reporter"

import (
	"cmp"
	"slices"

	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/profile"
)

type entry struct {
	id    libpf.FrameID
	frame *profile.Frame
}

// byHotness returns the frames of p, most self samples first.
func byHotness(p *profile.Profile) []entry {
	entries := make([]entry, 0, len(p.Frames))
	for id, f := range p.Frames {
		entries = append(entries, entry{id: id, frame: f})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.frame.Samples, a.frame.Samples); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	return entries
}

func maxSelf(p *profile.Profile) uint64 {
	var m uint64
	for _, f := range p.Frames {
		m = max(m, f.Samples)
	}
	return m
}

// percent returns part of whole in percent, 0 for an empty whole.
func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
