// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "go.opentelemetry.io/stackprof/reporter"

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/rawstream"
)

// WriteCollapsed writes the raw samples of p as collapsed stacks, one
// "root;...;leaf count" line per distinct stack, sorted by stack. It
// requires the raw sample stream.
func WriteCollapsed(w io.Writer, p *profile.Profile) error {
	raw, err := p.RawStream()
	if err != nil {
		return err
	}
	records, err := raw.Records()
	if err != nil {
		return err
	}

	counts := make(map[string]uint64)
	var sb strings.Builder
	for _, rec := range records {
		sb.Reset()
		for i := len(rec.Stack) - 1; i >= 0; i-- {
			f, ok := p.Frames[rec.Stack[i]]
			if !ok {
				return fmt.Errorf("%w: unknown frame %d", rawstream.ErrCorrupt, rec.Stack[i])
			}
			if sb.Len() > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(strings.ReplaceAll(f.Name, ";", ":"))
		}
		counts[sb.String()] += rec.Weight
	}

	bw := bufio.NewWriter(w)
	for _, stack := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(bw, "%s %d\n", stack, counts[stack])
	}
	return bw.Flush()
}
