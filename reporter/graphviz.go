// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "go.opentelemetry.io/stackprof/reporter"

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strings"

	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/profile"
)

// WriteGraphviz writes the call graph of p in the dot language. If filter is
// not nil, only frames matching it and the callees that account for most of
// their time are included.
func WriteGraphviz(w io.Writer, p *profile.Profile, filter *regexp.Regexp) error {
	entries := byHotness(p)
	var keep libpf.Set[libpf.FrameID]
	if filter != nil {
		keep = reachable(p, entries, filter)
	}
	maxSamples := maxSelf(p)
	overall := max(p.Samples, 1)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph profile {")
	for _, e := range entries {
		if keep != nil {
			if _, ok := keep[e.id]; !ok {
				continue
			}
		}
		f := e.frame
		label := ""
		if f.Samples < f.TotalSamples {
			label = fmt.Sprintf("%d (%2.1f%%)\\rof ", f.Samples, percent(f.Samples, p.Samples))
		}
		label += fmt.Sprintf("%d (%2.1f%%)\\r", f.TotalSamples, percent(f.TotalSamples, p.Samples))
		fontSize := 10.0
		if maxSamples > 0 {
			fontSize += float64(f.Samples) / float64(maxSamples) * 28
		}
		size := float64(f.TotalSamples)/float64(overall)*2 + 0.5

		fmt.Fprintf(bw, "  %d [size=%g] [fontsize=%g] [penwidth=\"%g\"] [shape=box] [label=\"%s\\n%s\"];\n",
			e.id, size, fontSize, size, dotEscaper.Replace(f.Name), label)
		for _, callee := range slices.Sorted(maps.Keys(f.Edges)) {
			if keep != nil {
				if _, ok := keep[callee]; !ok {
					continue
				}
			}
			weight := f.Edges[callee]
			size := float64(weight)/float64(overall)*2 + 0.5
			fmt.Fprintf(bw, "  %d -> %d [label=\"%d\"] [weight=\"%d\"] [penwidth=\"%g\"];\n",
				e.id, callee, weight, weight, size)
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// reachable marks the frames matching filter and follows edges into callees
// that spend most of their total time below the marked caller.
func reachable(p *profile.Profile, entries []entry, filter *regexp.Regexp) libpf.Set[libpf.FrameID] {
	marked := make(libpf.Set[libpf.FrameID])
	var stack []libpf.FrameID
	for _, e := range entries {
		if filter.MatchString(e.frame.Name) {
			stack = append(stack, e.id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := marked[id]; ok {
			continue
		}
		marked[id] = libpf.Void{}
		for callee, weight := range p.Frames[id].Edges {
			c, ok := p.Frames[callee]
			if ok && float64(c.TotalSamples) <= float64(weight)*1.2 {
				stack = append(stack, callee)
			}
		}
	}
	return marked
}
