// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "go.opentelemetry.io/stackprof/reporter"

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"regexp"
	"slices"

	"go.opentelemetry.io/stackprof/profile"
)

// sourceContext is the number of lines shown after the first line of a
// function without line hits.
const sourceContext = 5

// WriteSource writes the source of every frame whose name matches name,
// annotated with the samples of each line.
func WriteSource(w io.Writer, p *profile.Profile, name *regexp.Regexp) error {
	bw := bufio.NewWriter(w)
	for _, e := range byHotness(p) {
		f := e.frame
		if f.Synthetic || !name.MatchString(f.Name) {
			continue
		}
		first := max(f.Line, 1)
		last := first + sourceContext
		if len(f.Lines) > 0 {
			last = slices.Max(slices.Collect(maps.Keys(f.Lines)))
		}
		fmt.Fprintf(bw, "%s (%s:%d)\n", f.Name, f.File, first)

		src, err := os.ReadFile(f.File)
		if err != nil {
			fmt.Fprintf(bw, "  source not available: %v\n", err)
			continue
		}
		for i, code := range bytes.SplitAfter(src, []byte("\n")) {
			lineNo := i + 1
			if lineNo < first || lineNo > last {
				continue
			}
			code = bytes.TrimRight(code, "\n")
			if hits, ok := f.Lines[lineNo]; ok {
				fmt.Fprintf(bw, "%5d %7s / %7s  | %5d  | %s\n", hits.Total,
					fmt.Sprintf("(%2.1f%%", percent(hits.Total, p.Samples)),
					fmt.Sprintf("%2.1f%%)", percent(hits.Total, f.TotalSamples)),
					lineNo, code)
			} else {
				fmt.Fprintf(bw, "%25s| %5d  | %s\n", "", lineNo, code)
			}
		}
	}
	return bw.Flush()
}
