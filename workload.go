// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"slices"
	"strconv"
	"time"

	"go.opentelemetry.io/stackprof/host"
	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/sampler"
	"go.opentelemetry.io/stackprof/tags"
)

// customEvery is the number of workload rounds between explicit samples.
const customEvery = 64

// runWorkload keeps workers threads busy until duration elapsed or ctx is
// done. The first half of each worker's rounds is tagged stage=warmup, the
// rest stage=steady.
func runWorkload(ctx context.Context, thr *host.Thread, s *sampler.Session,
	workers int, duration time.Duration) {
	deadline := time.Now().Add(duration)
	half := time.Now().Add(duration / 2)

	var done []<-chan libpf.Void
	for i := range max(workers, 1) {
		thr.Tags().Set(tags.DefaultSource, tags.Context{"worker": strconv.Itoa(i)})
		done = append(done, thr.Spawn(func(w *host.Thread) {
			setStage(w, "warmup")
			steady := false
			for round := 0; ctx.Err() == nil && time.Now().Before(deadline); round++ {
				if !steady && time.Now().After(half) {
					setStage(w, "steady")
					steady = true
				}
				workRound(w, s, round)
			}
		}, host.InheritTags()))
	}
	thr.Tags().Clear(tags.DefaultSource)
	for _, ch := range done {
		<-ch
	}
}

// setStage keeps the inherited tags of thr and sets its stage tag.
func setStage(thr *host.Thread, stage string) {
	ctx := thr.Tags().Check(tags.DefaultSource)
	ctx["stage"] = stage
	thr.Tags().Set(tags.DefaultSource, ctx)
}

//go:noinline
func workRound(thr *host.Thread, s *sampler.Session, round int) {
	data := fill(thr, s, 512)
	sortValues(data)
	_ = checksum(thr, s, data)
	if round%customEvery == 0 {
		s.Sample(thr)
	}
}

//go:noinline
func fill(thr *host.Thread, s *sampler.Session, n int) []int {
	data := make([]int, n)
	s.Allocated(thr)
	x := n
	for i := range data {
		x = (x*1103515245 + 12345) & 0x7fffffff
		data[i] = x
	}
	s.Checkpoint(thr)
	return data
}

//go:noinline
func sortValues(data []int) {
	slices.Sort(data)
}

//go:noinline
func checksum(thr *host.Thread, s *sampler.Session, data []int) int {
	sum := 0
	for i, v := range data {
		sum ^= v + i
		if i%128 == 0 {
			s.Checkpoint(thr)
		}
	}
	return sum
}
