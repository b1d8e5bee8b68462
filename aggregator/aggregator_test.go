// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package aggregator

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/rawstream"
)

type fakeResolver struct {
	calls map[libpf.Handle]int
}

func (r *fakeResolver) Resolve(h libpf.Handle) libpf.FrameInfo {
	if r.calls == nil {
		r.calls = make(map[libpf.Handle]int)
	}
	r.calls[h]++
	return libpf.FrameInfo{
		Name: fmt.Sprintf("fn%d", h),
		File: "file.go",
		Line: int(h) * 10,
	}
}

const (
	hMain = libpf.FirstHostHandle + iota
	hWork
	hLeaf
)

func loc(h libpf.Handle, line int) libpf.Location {
	return libpf.Location{Handle: h, Line: line}
}

func TestFrameTable(t *testing.T) {
	r := &fakeResolver{}
	table := NewFrameTable()

	id, created := table.Intern(hWork, r)
	assert.Equal(t, libpf.FrameID(0), id)
	assert.True(t, created)

	id, created = table.Intern(libpf.HandleGC, r)
	assert.Equal(t, libpf.FrameID(1), id)
	assert.True(t, created)

	id, created = table.Intern(hWork, r)
	assert.Equal(t, libpf.FrameID(0), id)
	assert.False(t, created)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, map[libpf.Handle]int{hWork: 1}, r.calls)

	info, synthetic := table.Info(1)
	assert.True(t, synthetic)
	assert.Equal(t, "(garbage collection)", info.Name)
	info, synthetic = table.Info(0)
	assert.False(t, synthetic)
	assert.Equal(t, "fn5", info.Name)
}

func TestRecord(t *testing.T) {
	tests := map[string]struct {
		stacks [][]libpf.Location
		// expected counters by handle
		self  map[libpf.Handle]uint64
		total map[libpf.Handle]uint64
		edges map[libpf.Handle]map[libpf.Handle]uint64
	}{
		"simple chain": {
			stacks: [][]libpf.Location{
				{loc(hLeaf, 31), loc(hWork, 21), loc(hMain, 11)},
				{loc(hLeaf, 31), loc(hWork, 21), loc(hMain, 11)},
				{loc(hWork, 22), loc(hMain, 11)},
			},
			self:  map[libpf.Handle]uint64{hLeaf: 2, hWork: 1, hMain: 0},
			total: map[libpf.Handle]uint64{hLeaf: 2, hWork: 3, hMain: 3},
			edges: map[libpf.Handle]map[libpf.Handle]uint64{
				hWork: {hLeaf: 2},
				hMain: {hWork: 3},
			},
		},
		"recursion counts total once": {
			stacks: [][]libpf.Location{
				{loc(hWork, 21), loc(hWork, 22), loc(hWork, 22), loc(hMain, 11)},
			},
			self:  map[libpf.Handle]uint64{hWork: 1, hMain: 0},
			total: map[libpf.Handle]uint64{hWork: 1, hMain: 1},
			edges: map[libpf.Handle]map[libpf.Handle]uint64{
				hMain: {hWork: 1},
			},
		},
		"mutual recursion": {
			stacks: [][]libpf.Location{
				{loc(hLeaf, 31), loc(hWork, 21), loc(hLeaf, 32), loc(hWork, 21), loc(hMain, 11)},
			},
			self:  map[libpf.Handle]uint64{hLeaf: 1, hWork: 0, hMain: 0},
			total: map[libpf.Handle]uint64{hLeaf: 1, hWork: 1, hMain: 1},
			edges: map[libpf.Handle]map[libpf.Handle]uint64{
				hWork: {hLeaf: 1},
				hMain: {hWork: 1},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r := &fakeResolver{}
			agg := New()
			ids := make(map[libpf.Handle]libpf.FrameID)
			var buf []libpf.FrameID
			for _, stack := range test.stacks {
				buf = agg.Record(stack, r, 1, buf)
				require.Len(t, buf, len(stack))
				for i, l := range stack {
					ids[l.Handle] = buf[i]
				}
			}

			frames := agg.Snapshot()
			require.Len(t, frames, len(test.total))
			for h, total := range test.total {
				f := frames[ids[h]]
				assert.Equal(t, total, f.TotalSamples, "total of %s", f.Name)
				assert.Equal(t, test.self[h], f.Samples, "self of %s", f.Name)
				want := map[libpf.FrameID]uint64(nil)
				if e, ok := test.edges[h]; ok {
					want = make(map[libpf.FrameID]uint64)
					for callee, w := range e {
						want[ids[callee]] = w
					}
				}
				assert.Equal(t, want, f.Edges, "edges of %s", f.Name)
			}
		})
	}
}

func TestRecordLines(t *testing.T) {
	r := &fakeResolver{}
	agg := New()
	agg.Record([]libpf.Location{loc(hLeaf, 31), loc(hWork, 21)}, r, 1, nil)
	agg.Record([]libpf.Location{loc(hWork, 22)}, r, 1, nil)
	agg.Record([]libpf.Location{loc(hLeaf, 0), loc(hWork, 21)}, r, 1, nil)

	frames := agg.Snapshot()
	assert.Equal(t, map[int]profile.LineHits{31: {Total: 1, Self: 1}}, frames[0].Lines)
	assert.Equal(t, map[int]profile.LineHits{
		21: {Total: 2},
		22: {Total: 1, Self: 1},
	}, frames[1].Lines)

	// Snapshots are copies.
	frames[1].Lines[21] = profile.LineHits{}
	assert.Equal(t, uint64(2), agg.Snapshot()[1].Lines[21].Total)
}

func TestRecordGC(t *testing.T) {
	r := &fakeResolver{}
	agg := New()
	agg.Record(libpf.SyntheticStack(libpf.GCMarking), r, 1, nil)
	agg.Record(libpf.SyntheticStack(libpf.GCSweeping), r, 1, nil)
	agg.Record(libpf.SyntheticStack(libpf.GCOther), r, 1, nil)

	frames := agg.Snapshot()
	byName := make(map[string]*profile.Frame)
	for _, f := range frames {
		assert.True(t, f.Synthetic)
		byName[f.Name] = f
	}
	assert.Equal(t, uint64(1), byName["(garbage collection)"].Samples)
	assert.Equal(t, uint64(3), byName["(garbage collection)"].TotalSamples)
	assert.Equal(t, uint64(1), byName["(marking)"].Samples)
	assert.Equal(t, uint64(1), byName["(sweeping)"].Samples)
	assert.Empty(t, r.calls)
}

// randomStacks builds a reproducible workload with recursion and repeats.
func randomStacks(n int) [][]libpf.Location {
	rng := rand.New(rand.NewPCG(1, 2))
	stacks := make([][]libpf.Location, 0, n)
	for range n {
		depth := 1 + rng.IntN(6)
		stack := make([]libpf.Location, depth)
		for i := range stack {
			stack[i] = loc(libpf.FirstHostHandle+libpf.Handle(rng.IntN(5)), 1+rng.IntN(3))
		}
		repeat := 1 + rng.IntN(3)
		for range repeat {
			stacks = append(stacks, stack)
		}
	}
	return stacks
}

func TestReplay(t *testing.T) {
	r := &fakeResolver{}
	agg := New()
	var enc rawstream.Encoder
	var ids []libpf.FrameID

	stacks := randomStacks(500)
	stacks = append(stacks, libpf.SyntheticStack(libpf.GCMarking))
	for _, stack := range stacks {
		ids = agg.Record(stack, r, 1, ids)
		enc.Record(ids, 0)
	}
	enc.Flush()

	p := &profile.Profile{
		Version:   profile.Version,
		Mode:      profile.ModeCustom,
		Samples:   uint64(len(stacks)),
		GCSamples: 1,
		Frames:    agg.Snapshot(),
		Raw:       enc.Stream(),
	}
	require.NoError(t, p.Validate())

	replayed, err := Replay(p)
	require.NoError(t, err)
	require.Len(t, replayed, len(p.Frames))
	for id, f := range p.Frames {
		want := *f
		want.Lines = nil
		assert.Equal(t, &want, replayed[id])
	}
}

func TestCountsOnly(t *testing.T) {
	r := &fakeResolver{}
	full, counts := New(), NewCountsOnly()
	for _, stack := range randomStacks(200) {
		full.Record(stack, r, 1, nil)
		counts.Record(stack, r, 1, nil)
	}

	want := full.Snapshot()
	got := counts.Snapshot()
	require.Len(t, got, len(want))
	for id, f := range want {
		assert.Equal(t, f.Samples, got[id].Samples, "self of %s", f.Name)
		assert.Equal(t, f.TotalSamples, got[id].TotalSamples, "total of %s", f.Name)
		assert.Empty(t, got[id].Lines)
		assert.Empty(t, got[id].Edges)
	}
}

func TestReplayErrors(t *testing.T) {
	p := &profile.Profile{Frames: map[libpf.FrameID]*profile.Frame{0: {Name: "a"}}}
	_, err := Replay(p)
	require.ErrorIs(t, err, profile.ErrMissingRawData)

	p.Raw = rawstream.Stream{1, 7, 1}
	_, err = Replay(p)
	require.Error(t, err)

	p.Raw = rawstream.Stream{1, 0}
	_, err = Replay(p)
	require.ErrorIs(t, err, rawstream.ErrCorrupt)
}
