// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package rawstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/stackprof/libpf"
)

func ids(v ...libpf.FrameID) []libpf.FrameID { return v }

func TestEncoder(t *testing.T) {
	tests := map[string]struct {
		stacks   [][]libpf.FrameID
		expected Stream
		runs     int
	}{
		"empty": {},
		"single run": {
			stacks:   [][]libpf.FrameID{ids(2, 1, 0), ids(2, 1, 0), ids(2, 1, 0)},
			expected: Stream{3, 0, 1, 2, 3},
			runs:     1,
		},
		"alternating": {
			stacks:   [][]libpf.FrameID{ids(1, 0), ids(2, 0), ids(1, 0)},
			expected: Stream{2, 0, 1, 1, 2, 0, 2, 1, 2, 0, 1, 1},
			runs:     3,
		},
		"prefix is a different stack": {
			stacks:   [][]libpf.FrameID{ids(1, 0), ids(0), ids(0)},
			expected: Stream{2, 0, 1, 1, 1, 0, 2},
			runs:     2,
		},
		"empty stack": {
			stacks:   [][]libpf.FrameID{ids(), ids()},
			expected: Stream{0, 2},
			runs:     1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var enc Encoder
			for i, stack := range test.stacks {
				enc.Record(stack, uint64(i))
			}
			enc.Flush()
			enc.Flush()
			assert.Equal(t, test.expected, enc.Stream())
			assert.Equal(t, test.runs, enc.Runs())
			assert.Len(t, enc.TimestampDeltas(), len(test.stacks))

			weight, err := enc.Stream().Weight()
			require.NoError(t, err)
			assert.Equal(t, uint64(len(test.stacks)), weight)

			samples, err := enc.Stream().Samples()
			require.NoError(t, err)
			require.Len(t, samples, len(test.stacks))
			for i := range samples {
				assert.Equal(t, []libpf.FrameID(test.stacks[i]), samples[i])
			}
		})
	}
}

func TestEncoderDoesNotAliasInput(t *testing.T) {
	var enc Encoder
	stack := ids(3, 4)
	enc.Record(stack, 0)
	stack[0] = 9
	enc.Record(ids(3, 4), 0)
	enc.Flush()
	assert.Equal(t, Stream{2, 4, 3, 2}, enc.Stream())
}

func TestRecords(t *testing.T) {
	records, err := Stream{2, 0, 1, 5, 1, 7, 1}.Records()
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Stack: ids(1, 0), Weight: 5},
		{Stack: ids(7), Weight: 1},
	}, records)
}

func TestCorrupt(t *testing.T) {
	tests := map[string]Stream{
		"depth past end": {5, 1, 2},
		"missing weight": {1, 3},
		"zero weight":    {1, 3, 0},
		"dangling depth": {1, 3, 1, 0},
	}

	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Records()
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
