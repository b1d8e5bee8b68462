//go:build !unix

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package host // import "go.opentelemetry.io/stackprof/host"

import (
	"fmt"
	"runtime"
	"time"
)

// ProcessCPUTime is the stub implementation for systems without getrusage,
// always failing at runtime with an error if used.
func ProcessCPUTime() (time.Duration, error) {
	return 0, fmt.Errorf("unsupported os %s", runtime.GOOS)
}
