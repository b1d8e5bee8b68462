// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package sampler // import "go.opentelemetry.io/stackprof/sampler"

import (
	"context"
	"sync"

	"go.opentelemetry.io/stackprof/host"
	"go.opentelemetry.io/stackprof/profile"
)

// Profiler allows at most one running session at a time.
type Profiler struct {
	mu      sync.Mutex
	session *Session
}

// Start starts a session unless one is already running.
func (p *Profiler) Start(ctx context.Context, cfg Config) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil && p.session.Running() {
		return nil, ErrAlreadyRunning
	}
	s, err := Start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.session = s
	return s, nil
}

// Stop stops the running session and returns its profile.
func (p *Profiler) Stop(ctx context.Context) (*profile.Profile, error) {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()
	if s == nil {
		return nil, ErrNotRunning
	}
	return s.Stop(ctx)
}

// StopSession stops s, which Start returned, and releases the profiler if it
// still holds s. A session that is already stopped returns ErrNotRunning and
// leaves a newer session running.
func (p *Profiler) StopSession(ctx context.Context, s *Session) (*profile.Profile, error) {
	p.mu.Lock()
	if p.session == s {
		p.session = nil
	}
	p.mu.Unlock()
	return s.Stop(ctx)
}

// Running reports whether a session is running.
func (p *Profiler) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil && p.session.Running()
}

// Session returns the running session or nil.
func (p *Profiler) Session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil || !p.session.Running() {
		return nil
	}
	return p.session
}

// Run profiles fn on a fresh thread and returns the profile once fn returns.
// fn must call Checkpoint at its safe points for timer-driven modes to
// capture anything.
func Run(ctx context.Context, cfg Config, fn func(*host.Thread, *Session)) (*profile.Profile, error) {
	s, err := Start(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fn(host.NewThread(), s)
	return s.Stop(ctx)
}
