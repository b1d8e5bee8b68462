// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package rawstream implements the replayable log of captured stacks.
//
// A stream is a flat sequence of records
//
//	depth, id_root, ..., id_leaf, weight
//
// where weight counts consecutive samples that captured exactly this stack.
// Stacks are passed in and handed out innermost frame first.
package rawstream // import "go.opentelemetry.io/stackprof/rawstream"

import (
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/stackprof/libpf"
)

// ErrCorrupt is returned when a stream can't be decoded.
var ErrCorrupt = errors.New("corrupt raw stream")

// Encoder appends samples to a stream, collapsing runs of identical stacks.
// It is not safe for concurrent use.
type Encoder struct {
	stream Stream
	deltas []uint64

	// last is the stack of the pending run, weight its sample count.
	last   []libpf.FrameID
	weight uint64
	runs   int
}

// Record appends one sample. delta is the time in microseconds since the
// previous sample.
func (e *Encoder) Record(stack []libpf.FrameID, delta uint64) {
	e.deltas = append(e.deltas, delta)
	if e.weight > 0 && slices.Equal(stack, e.last) {
		e.weight++
		return
	}
	e.flush()
	e.last = append(e.last[:0], stack...)
	e.weight = 1
}

// Flush writes out the pending run. It is safe to call repeatedly.
func (e *Encoder) Flush() {
	e.flush()
}

func (e *Encoder) flush() {
	if e.weight == 0 {
		return
	}
	e.stream = append(e.stream, uint64(len(e.last)))
	for i := len(e.last) - 1; i >= 0; i-- {
		e.stream = append(e.stream, uint64(e.last[i]))
	}
	e.stream = append(e.stream, e.weight)
	e.weight = 0
	e.runs++
}

// Runs returns the number of flushed records.
func (e *Encoder) Runs() int {
	return e.runs
}

// Stream returns a copy of the flushed stream.
func (e *Encoder) Stream() Stream {
	return slices.Clone(e.stream)
}

// TimestampDeltas returns a copy of the per-sample timestamp deltas.
func (e *Encoder) TimestampDeltas() []uint64 {
	return slices.Clone(e.deltas)
}

// Stream is an encoded raw sample log.
type Stream []uint64

// Record is one decoded run of identical stacks.
type Record struct {
	// Stack holds the frames innermost first.
	Stack  []libpf.FrameID
	Weight uint64
}

// Records decodes the stream.
func (s Stream) Records() ([]Record, error) {
	var out []Record
	err := s.each(func(stack []libpf.FrameID, weight uint64) {
		out = append(out, Record{Stack: slices.Clone(stack), Weight: weight})
	})
	return out, err
}

// Samples expands the stream into one stack per sample, in collection
// order. Samples of the same run share the same slice.
func (s Stream) Samples() ([][]libpf.FrameID, error) {
	var out [][]libpf.FrameID
	err := s.each(func(stack []libpf.FrameID, weight uint64) {
		stack = slices.Clone(stack)
		for range weight {
			out = append(out, stack)
		}
	})
	return out, err
}

// Weight returns the number of samples in the stream.
func (s Stream) Weight() (uint64, error) {
	var total uint64
	err := s.each(func(_ []libpf.FrameID, weight uint64) {
		total += weight
	})
	return total, err
}

// each calls fn for every record. The stack passed to fn is reused.
func (s Stream) each(fn func(stack []libpf.FrameID, weight uint64)) error {
	var stack []libpf.FrameID
	for pos := 0; pos < len(s); {
		depth := s[pos]
		if len(s)-pos < 2 || depth > uint64(len(s)-pos-2) {
			return fmt.Errorf("%w: record at offset %d exceeds stream", ErrCorrupt, pos)
		}
		stack = stack[:0]
		for i := pos + int(depth); i > pos; i-- {
			stack = append(stack, libpf.FrameID(s[i]))
		}
		weight := s[pos+int(depth)+1]
		if weight == 0 {
			return fmt.Errorf("%w: zero weight at offset %d", ErrCorrupt, pos)
		}
		fn(stack, weight)
		pos += int(depth) + 2
	}
	return nil
}
