// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "go.opentelemetry.io/stackprof/reporter"

import (
	"bufio"
	"fmt"
	"io"

	"go.opentelemetry.io/stackprof/profile"
)

// WriteText writes one line per frame with its total and self samples, most
// self samples first.
func WriteText(w io.Writer, p *profile.Profile) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%10s    (pct)  %10s    (pct)     FRAME\n", "TOTAL", "SAMPLES")
	for _, e := range byHotness(p) {
		f := e.frame
		fmt.Fprintf(bw, "%10d %8s  %10d %8s     %s\n",
			f.TotalSamples, fmt.Sprintf("(%2.1f%%)", percent(f.TotalSamples, p.Samples)),
			f.Samples, fmt.Sprintf("(%2.1f%%)", percent(f.Samples, p.Samples)),
			f.Name)
	}
	return bw.Flush()
}
