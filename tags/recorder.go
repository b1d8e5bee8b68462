// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package tags // import "go.opentelemetry.io/stackprof/tags"

import (
	"fmt"
	"strconv"

	"go.opentelemetry.io/stackprof/libpf"
)

// Recorder appends one tag set per sample to a run-length encoded stream.
// It is not safe for concurrent use.
type Recorder struct {
	names []string
	table *Table

	stream []uint32
	// last is the key/value index list of the most recent set and repeatAt
	// the stream position of its repeat counter, -1 before the first sample.
	last     []uint32
	repeatAt int
	scratch  []uint32

	samples uint64
}

// NewRecorder creates a recorder subscribed to names, in that order.
// Duplicate names are subscribed once.
func NewRecorder(names []string) (*Recorder, error) {
	seen := make(libpf.Set[string], len(names))
	subscribed := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, ErrInvalidName
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = libpf.Void{}
		subscribed = append(subscribed, name)
	}
	if len(subscribed) > MaxTags {
		return nil, fmt.Errorf("%w: %d subscribed, at most %d allowed",
			ErrTooManyTags, len(subscribed), MaxTags)
	}
	return &Recorder{
		names:    subscribed,
		table:    NewTable(),
		repeatAt: -1,
	}, nil
}

// Names returns the subscribed tag names.
func (r *Recorder) Names() []string {
	return r.names
}

// Record appends the tag set for one sample taken on thread threadID with
// tag context ctx. Only subscribed names are kept, in subscription order.
func (r *Recorder) Record(ctx Context, threadID uint64) {
	set := r.scratch[:0]
	for _, name := range r.names {
		var value string
		if name == ThreadID {
			value = strconv.FormatUint(threadID, 10)
		} else {
			v, ok := ctx[name]
			if !ok {
				continue
			}
			value = v
		}
		set = append(set, r.table.Intern(name), r.table.Intern(value))
	}
	r.scratch = set
	r.samples++

	if r.repeatAt >= 0 && libpf.SlicesEqual(set, r.last) {
		r.stream[r.repeatAt]++
		return
	}

	r.last = append(r.last[:0], set...)
	r.stream = append(r.stream, uint32(len(set)/2))
	r.stream = append(r.stream, set...)
	r.stream = append(r.stream, 1)
	r.repeatAt = len(r.stream) - 1
}

// Samples returns the number of recorded tag sets.
func (r *Recorder) Samples() uint64 {
	return r.samples
}

// Strings returns a copy of the string table.
func (r *Recorder) Strings() []string {
	return r.table.Strings()
}

// Stream returns a copy of the encoded sample tag stream.
func (r *Recorder) Stream() []uint32 {
	out := make([]uint32, len(r.stream))
	copy(out, r.stream)
	return out
}
