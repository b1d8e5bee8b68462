// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package tags // import "go.opentelemetry.io/stackprof/tags"

import "fmt"

// Run is one decoded entry of a sample tag stream: a tag set and the number
// of consecutive samples that carried it.
type Run struct {
	Tags   Context
	Repeat uint32
}

// DecodeRuns decodes a sample tag stream without expanding repeats.
func DecodeRuns(strs []string, stream []uint32) ([]Run, error) {
	var runs []Run
	lookup := func(idx uint32) (string, error) {
		if int(idx) >= len(strs) {
			return "", fmt.Errorf("%w: string index %d out of range (%d strings)",
				ErrCorruptStream, idx, len(strs))
		}
		return strs[idx], nil
	}

	for pos := 0; pos < len(stream); {
		n := int(stream[pos])
		end := pos + 1 + 2*n
		if end >= len(stream) {
			return nil, fmt.Errorf("%w: truncated set at offset %d", ErrCorruptStream, pos)
		}
		set := make(Context, n)
		for i := pos + 1; i < end; i += 2 {
			k, err := lookup(stream[i])
			if err != nil {
				return nil, err
			}
			v, err := lookup(stream[i+1])
			if err != nil {
				return nil, err
			}
			set[k] = v
		}
		repeat := stream[end]
		if repeat == 0 {
			return nil, fmt.Errorf("%w: zero repeat at offset %d", ErrCorruptStream, end)
		}
		runs = append(runs, Run{Tags: set, Repeat: repeat})
		pos = end + 1
	}
	return runs, nil
}

// Decode expands a sample tag stream into one tag set per sample. Samples
// of the same run share the same Context value.
func Decode(strs []string, stream []uint32) ([]Context, error) {
	runs, err := DecodeRuns(strs, stream)
	if err != nil {
		return nil, err
	}
	var out []Context
	for _, run := range runs {
		for range run.Repeat {
			out = append(out, run.Tags)
		}
	}
	return out, nil
}
