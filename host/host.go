// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package host adapts the Go runtime to the profiler: cooperative threads with
// their tag contexts, the stack walker that turns program counters into frame
// handles, the garbage collection probe and the process CPU clock.
package host // import "go.opentelemetry.io/stackprof/host"

import (
	"sync/atomic"

	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/tags"
)

var lastThreadID atomic.Uint64

// Thread is a unit of work that can be sampled. It is owned by the goroutine
// that runs it; its tag store must only be used from there.
type Thread struct {
	id   uint64
	tags *tags.Store
}

// NewThread returns a thread with a fresh ID and an empty tag context.
func NewThread() *Thread {
	return &Thread{
		id:   lastThreadID.Add(1),
		tags: tags.NewStore(),
	}
}

// ID returns the process-unique ID of the thread.
func (t *Thread) ID() uint64 {
	return t.id
}

// Tags returns the tag store of the thread.
func (t *Thread) Tags() *tags.Store {
	return t.tags
}

type spawnConfig struct {
	inherit []string
}

// SpawnOption configures Thread.Spawn.
type SpawnOption func(*spawnConfig)

// InheritTags makes the spawned thread start with a copy of the parent's tag
// contexts of the given sources, or of tags.DefaultSource if none are named.
func InheritTags(sources ...string) SpawnOption {
	if len(sources) == 0 {
		sources = []string{tags.DefaultSource}
	}
	return func(cfg *spawnConfig) {
		cfg.inherit = append(cfg.inherit, sources...)
	}
}

// Spawn runs fn on a new thread in its own goroutine and returns a channel
// that is closed when fn returns.
//
// Inherited tags are copied when Spawn is called and installed by the child
// before fn runs. Changes either side makes afterwards are not seen by the
// other. Nothing orders the installation against samplers running on other
// threads, so a sample attributed to the child may observe its empty context.
func (t *Thread) Spawn(fn func(*Thread), opts ...SpawnOption) <-chan libpf.Void {
	var cfg spawnConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var snapshot map[string]tags.Context
	if len(cfg.inherit) > 0 {
		snapshot = t.tags.Snapshot(cfg.inherit...)
	}

	done := make(chan libpf.Void)
	go func() {
		defer close(done)
		child := NewThread()
		child.tags.Install(snapshot)
		fn(child)
	}()
	return done
}
