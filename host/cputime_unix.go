//go:build unix

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package host // import "go.opentelemetry.io/stackprof/host"

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ProcessCPUTime returns the user and system CPU time consumed by the process.
func ProcessCPUTime() (time.Duration, error) {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0, fmt.Errorf("failed to get resource usage: %w", err)
	}
	return time.Duration(usage.Utime.Nano() + usage.Stime.Nano()), nil
}
