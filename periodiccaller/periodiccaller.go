// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package periodiccaller allows periodic calls of functions.
package periodiccaller // import "go.opentelemetry.io/stackprof/periodiccaller"

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/stackprof/libpf"
)

// Start starts a timer that calls <callback> every <interval> until the <ctx> is canceled
// or the returned function is called. The returned function waits for a running callback
// to return.
func Start(ctx context.Context, interval time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan libpf.Void)
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				callback()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// Clock returns a monotonic reading of some time source, e.g. consumed CPU time.
type Clock func() (time.Duration, error)

// StartOnClock polls <clock> every <interval> of wall time and calls <callback> whenever
// at least <interval> of clock time passed since the last call. Several elapsed intervals
// between two polls result in a single call. It stops like Start.
func StartOnClock(ctx context.Context, interval time.Duration, clock Clock,
	callback func()) (func(), error) {
	last, err := clock()
	if err != nil {
		return nil, fmt.Errorf("failed to read clock: %w", err)
	}

	failures := 0
	return Start(ctx, interval, func() {
		now, err := clock()
		if err != nil {
			if failures == 0 {
				log.Warnf("Failed to read clock: %v", err)
			}
			failures++
			return
		}
		if elapsed := now - last; elapsed >= interval {
			last += elapsed - elapsed%interval
			callback()
		}
	}), nil
}
