// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/stackprof/libpf"
)

// renumbered returns a copy of p with frame IDs permuted, as another session
// discovering the same frames in a different order would assign them.
func renumbered(p *Profile, perm map[libpf.FrameID]libpf.FrameID) *Profile {
	out := *p
	out.Frames = make(map[libpf.FrameID]*Frame, len(p.Frames))
	for id, f := range p.Frames {
		nf := *f
		if f.Edges != nil {
			nf.Edges = make(map[libpf.FrameID]uint64, len(f.Edges))
			for callee, w := range f.Edges {
				nf.Edges[perm[callee]] = w
			}
		}
		out.Frames[perm[id]] = &nf
	}
	return &out
}

// byName indexes the frames of p by name for comparisons that must not
// depend on frame IDs.
func byName(t *testing.T, p *Profile) map[string]*Frame {
	t.Helper()
	out := make(map[string]*Frame, len(p.Frames))
	for _, f := range p.Frames {
		require.NotContains(t, out, f.Name)
		out[f.Name] = f
	}
	return out
}

func otherProfile() *Profile {
	return &Profile{
		Version:       Version,
		Mode:          ModeWall,
		Interval:      1000,
		Samples:       2,
		MissedSamples: 3,
		Frames: map[libpf.FrameID]*Frame{
			0: {
				Name: "main.main", File: "main.go", Line: 1,
				TotalSamples: 2,
				Lines:        map[int]LineHits{4: {Total: 2}},
				Edges:        map[libpf.FrameID]uint64{1: 2},
			},
			1: {
				Name: "main.other", File: "other.go", Line: 5,
				Samples: 2, TotalSamples: 2,
				Lines: map[int]LineHits{6: {Total: 2, Self: 2}},
			},
		},
	}
}

func TestCombine(t *testing.T) {
	a := sampleProfile()
	b := otherProfile()

	merged, err := Combine(a, b)
	require.NoError(t, err)
	require.NoError(t, merged.Validate())

	assert.Equal(t, uint64(6), merged.Samples)
	assert.Equal(t, uint64(1), merged.GCSamples)
	assert.Equal(t, uint64(3), merged.MissedSamples)
	assert.False(t, merged.HasRaw())
	assert.False(t, merged.HasTags())
	assert.Nil(t, merged.Metadata)

	frames := byName(t, merged)
	require.Len(t, frames, 5)

	main := frames["main.main"]
	assert.Equal(t, uint64(0), main.Samples)
	assert.Equal(t, uint64(5), main.TotalSamples)
	assert.Equal(t, map[int]LineHits{3: {Total: 3}, 4: {Total: 2}}, main.Lines)

	edges := make(map[string]uint64)
	for callee, w := range main.Edges {
		edges[merged.Frames[callee].Name] = w
	}
	assert.Equal(t, map[string]uint64{"main.work": 3, "main.other": 2}, edges)
	assert.True(t, frames["(garbage collection)"].Synthetic)
}

func TestCombineOrderIndependent(t *testing.T) {
	a := sampleProfile()
	b := otherProfile()
	c := renumbered(sampleProfile(), map[libpf.FrameID]libpf.FrameID{0: 3, 1: 0, 2: 1, 3: 2})

	abc, err := Combine(a, b, c)
	require.NoError(t, err)
	cab, err := Combine(c, a, b)
	require.NoError(t, err)
	ab, err := Combine(a, b)
	require.NoError(t, err)
	abThenC, err := Combine(ab, c)
	require.NoError(t, err)
	bc, err := Combine(b, c)
	require.NoError(t, err)
	aThenBC, err := Combine(a, bc)
	require.NoError(t, err)

	assert.Equal(t, abc, cab)
	assert.Equal(t, abc, abThenC)
	assert.Equal(t, abc, aThenBC)
}

func TestCombineDoubles(t *testing.T) {
	single, err := Combine(sampleProfile())
	require.NoError(t, err)
	double, err := Combine(sampleProfile(), sampleProfile())
	require.NoError(t, err)

	assert.Equal(t, 2*single.Samples, double.Samples)
	assert.Equal(t, 2*single.GCSamples, double.GCSamples)
	require.Len(t, double.Frames, len(single.Frames))
	for id, f := range single.Frames {
		d := double.Frames[id]
		assert.Equal(t, f.Name, d.Name)
		assert.Equal(t, 2*f.Samples, d.Samples)
		assert.Equal(t, 2*f.TotalSamples, d.TotalSamples)
		for callee, w := range f.Edges {
			assert.Equal(t, 2*w, d.Edges[callee])
		}
		for line, hits := range f.Lines {
			assert.Equal(t, LineHits{Total: 2 * hits.Total, Self: 2 * hits.Self}, d.Lines[line])
		}
	}
}

func TestCombineSharedIdentity(t *testing.T) {
	// Two frames of one profile with the same name, file and line, one
	// calling the other: main -> F -> F -> leaf, four times.
	p := &Profile{
		Version:  Version,
		Mode:     ModeCPU,
		Interval: 1000,
		Samples:  4,
		Frames: map[libpf.FrameID]*Frame{
			0: {Name: "main.main", File: "main.go", Line: 1, TotalSamples: 4,
				Edges: map[libpf.FrameID]uint64{1: 4}},
			1: {Name: "main.F[...]", File: "f.go", Line: 3, TotalSamples: 4,
				Edges: map[libpf.FrameID]uint64{2: 4}},
			2: {Name: "main.F[...]", File: "f.go", Line: 3, TotalSamples: 4,
				Edges: map[libpf.FrameID]uint64{3: 4}},
			3: {Name: "main.leaf", File: "leaf.go", Line: 9, Samples: 4, TotalSamples: 4},
		},
	}
	require.NoError(t, p.Validate())

	tests := map[string]struct {
		inputs    []*Profile
		wantTotal uint64
	}{
		"single": {inputs: []*Profile{p}, wantTotal: 4},
		"double": {inputs: []*Profile{p, p}, wantTotal: 8},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := Combine(tc.inputs...)
			require.NoError(t, err)
			require.NoError(t, c.Validate())
			require.Len(t, c.Frames, 3)

			frames := byName(t, c)
			f := frames["main.F[...]"]
			assert.Equal(t, tc.wantTotal, f.TotalSamples)
			assert.Zero(t, f.Samples)
			assert.Len(t, f.Edges, 1)
			assert.Equal(t, tc.wantTotal, frames["main.main"].TotalSamples)
		})
	}
}

func TestCombineIncompatible(t *testing.T) {
	tests := map[string]func(*Profile){
		"mode":     func(p *Profile) { p.Mode = ModeCPU },
		"version":  func(p *Profile) { p.Version = 1.1 },
		"interval": func(p *Profile) { p.Interval = 10 },
		"dangling edge": func(p *Profile) {
			p.Frames[2].Edges[42] = 1
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			b := sampleProfile()
			mutate(b)
			merged, err := Combine(sampleProfile(), b)
			require.ErrorIs(t, err, ErrIncompatibleMerge)
			assert.Nil(t, merged)
		})
	}

	_, err := Combine()
	assert.ErrorIs(t, err, ErrIncompatibleMerge)
	_, err = Combine(sampleProfile(), nil)
	assert.ErrorIs(t, err, ErrIncompatibleMerge)
}
