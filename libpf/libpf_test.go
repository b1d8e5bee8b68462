// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntheticStack(t *testing.T) {
	tests := map[string]struct {
		phase    GCPhase
		expected []Handle
	}{
		"none":     {phase: GCNone},
		"marking":  {phase: GCMarking, expected: []Handle{HandleMarking, HandleGC}},
		"sweeping": {phase: GCSweeping, expected: []Handle{HandleSweeping, HandleGC}},
		"other":    {phase: GCOther, expected: []Handle{HandleGC}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var handles []Handle
			for _, loc := range SyntheticStack(test.phase) {
				assert.True(t, loc.Handle.Synthetic())
				assert.Zero(t, loc.Line)
				handles = append(handles, loc.Handle)
			}
			assert.Equal(t, test.expected, handles)
		})
	}
}

func TestSyntheticInfo(t *testing.T) {
	info, ok := SyntheticInfo(HandleGC)
	assert.True(t, ok)
	assert.Equal(t, "(garbage collection)", info.Name)

	info, ok = SyntheticInfo(HandleSweeping)
	assert.True(t, ok)
	assert.Equal(t, "(sweeping)", info.Name)

	_, ok = SyntheticInfo(FirstHostHandle)
	assert.False(t, ok)
	_, ok = SyntheticInfo(0)
	assert.False(t, ok)
}

func TestContentID(t *testing.T) {
	a := NewContentID(FrameInfo{Name: "main.work", File: "main.go", Line: 10})
	b := NewContentID(FrameInfo{Name: "main.work", File: "main.go", Line: 10})
	assert.Equal(t, a, b)
	assert.Zero(t, a.Compare(b))

	// Field boundaries are part of the identity.
	c := NewContentID(FrameInfo{Name: "main.wor", File: "kmain.go", Line: 10})
	assert.NotEqual(t, a, c)

	d := NewContentID(FrameInfo{Name: "main.work", File: "main.go", Line: 11})
	assert.NotEqual(t, a, d)
	assert.Equal(t, -a.Compare(d), d.Compare(a))
	assert.Len(t, a.String(), 32)
}
