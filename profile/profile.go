// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile defines the assembled, immutable result of a profiling
// session, its JSON serialization and the merge of independently collected
// profiles.
package profile // import "go.opentelemetry.io/stackprof/profile"

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/rawstream"
	"go.opentelemetry.io/stackprof/tags"
)

// Version is the data format version written into every profile.
const Version = 1.2

var (
	// ErrIncompatibleMerge is returned when profiles of different mode,
	// version or interval are combined.
	ErrIncompatibleMerge = errors.New("incompatible profiles")
	// ErrMissingRawData is returned by operations that need the raw sample
	// stream of a profile collected without it.
	ErrMissingRawData = errors.New("profile was collected without raw data")
)

// Mode is the kind of trigger that drove sampling.
type Mode string

const (
	ModeCPU    Mode = "cpu"
	ModeWall   Mode = "wall"
	ModeObject Mode = "object"
	ModeCustom Mode = "custom"
)

// ParseMode returns the Mode named s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeCPU, ModeWall, ModeObject, ModeCustom:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// LineHits counts the samples that observed a line. It serializes as the
// pair [total, self].
type LineHits struct {
	Total uint64
	Self  uint64
}

func (l LineHits) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{l.Total, l.Self})
}

func (l *LineHits) UnmarshalJSON(data []byte) error {
	var pair [2]uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("line hits: %w", err)
	}
	l.Total, l.Self = pair[0], pair[1]
	return nil
}

// Frame holds the aggregated counters of one function.
type Frame struct {
	Name string `json:"name"`
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`

	// Samples counts the samples in which the frame was the innermost one.
	Samples uint64 `json:"samples"`
	// TotalSamples counts the samples in which the frame appeared at all.
	TotalSamples uint64 `json:"total_samples"`

	Lines map[int]LineHits          `json:"lines,omitempty"`
	Edges map[libpf.FrameID]uint64 `json:"edges,omitempty"`

	// Synthetic marks the stand-in frames for garbage collection phases.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Info returns the display information of the frame.
func (f *Frame) Info() libpf.FrameInfo {
	return libpf.FrameInfo{Name: f.Name, File: f.File, Line: f.Line}
}

// Profile is the frozen result of a profiling session.
type Profile struct {
	Version  float64 `json:"version"`
	Mode     Mode    `json:"mode"`
	Interval uint64  `json:"interval"`

	Samples       uint64 `json:"samples"`
	GCSamples     uint64 `json:"gc_samples"`
	MissedSamples uint64 `json:"missed_samples"`

	Frames map[libpf.FrameID]*Frame `json:"frames"`

	Raw                rawstream.Stream `json:"raw,omitzero"`
	RawTimestampDeltas []uint64         `json:"raw_timestamp_deltas,omitzero"`

	TagStrings []string `json:"tag_strings,omitzero"`
	SampleTags []uint32 `json:"sample_tags,omitzero"`

	Metadata map[string]any `json:"metadata,omitzero"`
}

// HasRaw reports whether the profile carries a raw sample stream.
func (p *Profile) HasRaw() bool {
	return p.Raw != nil
}

// RawStream returns the raw sample stream.
func (p *Profile) RawStream() (rawstream.Stream, error) {
	if !p.HasRaw() {
		return nil, ErrMissingRawData
	}
	return p.Raw, nil
}

// HasTags reports whether the profile carries sample tags.
func (p *Profile) HasTags() bool {
	return p.TagStrings != nil
}

// SampleTagSets decodes the sample tags into one set per sample.
func (p *Profile) SampleTagSets() ([]tags.Context, error) {
	if !p.HasTags() {
		return nil, fmt.Errorf("%w: no sample tags", ErrMissingRawData)
	}
	return tags.Decode(p.TagStrings, p.SampleTags)
}

// FrameIDs returns the frame IDs in ascending order.
func (p *Profile) FrameIDs() []libpf.FrameID {
	return slices.Sorted(maps.Keys(p.Frames))
}

// Validate checks the accounting invariants of the profile.
func (p *Profile) Validate() error {
	var self, syntheticSelf uint64
	for id, f := range p.Frames {
		if f == nil {
			return fmt.Errorf("frame %d: missing", id)
		}
		if f.TotalSamples < f.Samples {
			return fmt.Errorf("frame %d (%s): total %d below self %d",
				id, f.Name, f.TotalSamples, f.Samples)
		}
		var edges uint64
		for callee, w := range f.Edges {
			if _, ok := p.Frames[callee]; !ok {
				return fmt.Errorf("frame %d (%s): edge to unknown frame %d", id, f.Name, callee)
			}
			edges += w
		}
		if edges > f.TotalSamples-f.Samples {
			return fmt.Errorf("frame %d (%s): edge weight %d exceeds non-self samples %d",
				id, f.Name, edges, f.TotalSamples-f.Samples)
		}
		if f.Synthetic {
			syntheticSelf += f.Samples
		} else {
			self += f.Samples
		}
	}
	if self+p.GCSamples != p.Samples {
		return fmt.Errorf("self samples %d plus gc samples %d do not add up to %d",
			self, p.GCSamples, p.Samples)
	}
	if syntheticSelf != p.GCSamples {
		return fmt.Errorf("synthetic frames hold %d samples, want %d gc samples",
			syntheticSelf, p.GCSamples)
	}

	if p.HasRaw() {
		weight, err := p.Raw.Weight()
		if err != nil {
			return err
		}
		if weight != p.Samples {
			return fmt.Errorf("raw stream holds %d samples, want %d", weight, p.Samples)
		}
		if p.RawTimestampDeltas != nil && uint64(len(p.RawTimestampDeltas)) != p.Samples {
			return fmt.Errorf("%d timestamp deltas for %d samples",
				len(p.RawTimestampDeltas), p.Samples)
		}
	}
	if p.HasTags() {
		sets, err := p.SampleTagSets()
		if err != nil {
			return err
		}
		if uint64(len(sets)) != p.Samples {
			return fmt.Errorf("%d tag sets for %d samples", len(sets), p.Samples)
		}
	}
	return nil
}
