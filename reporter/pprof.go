// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "go.opentelemetry.io/stackprof/reporter"

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"

	"go.opentelemetry.io/stackprof/libpf"
	stackprof "go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/tags"
)

// ToPprof converts p into a pprof profile.
//
// With a raw stream every sample keeps its full stack and its tags become
// labels. Without one only self samples are known, so each frame with self
// samples becomes a sample with a one-frame stack.
func ToPprof(p *stackprof.Profile) (*profile.Profile, error) {
	out := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		Comments:   []string{fmt.Sprintf("stackprof %s profile", p.Mode)},
	}
	switch p.Mode {
	case stackprof.ModeCPU, stackprof.ModeWall:
		out.SampleType = append(out.SampleType, &profile.ValueType{Type: string(p.Mode), Unit: "microseconds"})
		out.PeriodType = &profile.ValueType{Type: string(p.Mode), Unit: "microseconds"}
		out.Period = int64(p.Interval)
	case stackprof.ModeObject:
		out.PeriodType = &profile.ValueType{Type: "objects", Unit: "count"}
		out.Period = int64(p.Interval)
	default:
		out.PeriodType = &profile.ValueType{Type: "samples", Unit: "count"}
		out.Period = 1
	}
	out.DefaultSampleType = out.SampleType[len(out.SampleType)-1].Type

	b := newPprofBuilder(p, out)
	if !p.HasRaw() {
		for _, id := range p.FrameIDs() {
			if f := p.Frames[id]; f.Samples > 0 {
				b.add([]libpf.FrameID{id}, f.Samples, nil)
			}
		}
		return compact(out)
	}

	records, err := p.Raw.Records()
	if err != nil {
		return nil, err
	}
	var sets []tags.Context
	if p.HasTags() {
		if sets, err = p.SampleTagSets(); err != nil {
			return nil, err
		}
	}
	next := 0
	for _, rec := range records {
		if sets == nil {
			b.add(rec.Stack, rec.Weight, nil)
			continue
		}
		for range rec.Weight {
			var labels tags.Context
			if next < len(sets) {
				labels = sets[next]
			}
			next++
			b.add(rec.Stack, 1, labels)
		}
	}
	return compact(out)
}

// WritePprof writes p as a gzipped pprof protobuf.
func WritePprof(w io.Writer, p *stackprof.Profile) error {
	out, err := ToPprof(p)
	if err != nil {
		return err
	}
	return out.Write(w)
}

type pprofBuilder struct {
	src       *stackprof.Profile
	out       *profile.Profile
	locations map[libpf.FrameID]*profile.Location
	valueLen  int
}

func newPprofBuilder(src *stackprof.Profile, out *profile.Profile) *pprofBuilder {
	return &pprofBuilder{
		src:       src,
		out:       out,
		locations: make(map[libpf.FrameID]*profile.Location, len(src.Frames)),
		valueLen:  len(out.SampleType),
	}
}

func (b *pprofBuilder) location(id libpf.FrameID) *profile.Location {
	if loc, ok := b.locations[id]; ok {
		return loc
	}
	var info libpf.FrameInfo
	if f, ok := b.src.Frames[id]; ok {
		info = f.Info()
	} else {
		info.Name = fmt.Sprintf("(unknown frame %d)", id)
	}
	fn := &profile.Function{
		ID:         uint64(len(b.out.Function) + 1),
		Name:       info.Name,
		SystemName: info.Name,
		Filename:   info.File,
		StartLine:  int64(info.Line),
	}
	loc := &profile.Location{
		ID:   uint64(len(b.out.Location) + 1),
		Line: []profile.Line{{Function: fn, Line: int64(info.Line)}},
	}
	b.out.Function = append(b.out.Function, fn)
	b.out.Location = append(b.out.Location, loc)
	b.locations[id] = loc
	return loc
}

func (b *pprofBuilder) add(stack []libpf.FrameID, weight uint64, labels tags.Context) {
	s := &profile.Sample{
		Location: make([]*profile.Location, 0, len(stack)),
		Value:    []int64{int64(weight)},
	}
	for _, id := range stack {
		s.Location = append(s.Location, b.location(id))
	}
	if b.valueLen > 1 {
		s.Value = append(s.Value, int64(weight*b.src.Interval))
	}
	if len(labels) > 0 {
		s.Label = make(map[string][]string, len(labels))
		for k, v := range labels {
			s.Label[k] = []string{v}
		}
	}
	b.out.Sample = append(b.out.Sample, s)
}

// compact merges samples with identical stacks and labels.
func compact(p *profile.Profile) (*profile.Profile, error) {
	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid pprof profile: %w", err)
	}
	return profile.Merge([]*profile.Profile{p})
}
