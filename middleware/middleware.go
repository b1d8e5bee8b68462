// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package middleware profiles HTTP requests. Each request served while no
// other session is running is profiled in its own session; the profile is
// written to a directory when the request completes.
package middleware // import "go.opentelemetry.io/stackprof/middleware"

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/stackprof/host"
	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/reporter"
	"go.opentelemetry.io/stackprof/sampler"
	"go.opentelemetry.io/stackprof/tags"
)

// Setting is a middleware option that is either fixed or computed from the
// request. It is resolved once per request.
type Setting[T any] struct {
	value T
	fn    func(*http.Request) T
}

// Static returns a setting that always resolves to v.
func Static[T any](v T) Setting[T] {
	return Setting[T]{value: v}
}

// Computed returns a setting resolved by calling fn with the request.
func Computed[T any](fn func(*http.Request) T) Setting[T] {
	return Setting[T]{fn: fn}
}

// Resolve returns the value of the setting for r.
func (s Setting[T]) Resolve(r *http.Request) T {
	if s.fn != nil {
		return s.fn(r)
	}
	return s.value
}

// Options configures the middleware.
type Options struct {
	// Enabled decides per request whether it is profiled.
	Enabled Setting[bool]
	// Mode selects the sampling mode. The zero setting selects cpu.
	Mode Setting[profile.Mode]
	// Interval is the sampling interval, 0 selects the mode's default.
	Interval uint64
	// Raw enables the raw sample stream.
	Raw bool
	// Tags are recorded with every sample. The middleware provides "method"
	// and "path"; handlers may add more to the tags.DefaultSource context
	// of the request thread.
	Tags []string
	// Dir, if set, is where profiles are saved. It may be an s3://bucket/prefix
	// URL.
	Dir string
	// Compress writes zstd compressed profiles.
	Compress bool
	// Done, if set, receives every completed profile.
	Done func(*http.Request, *profile.Profile)
}

// Middleware profiles HTTP requests.
type Middleware struct {
	opts     Options
	profiler sampler.Profiler
}

// New returns a middleware configured by opts.
func New(opts Options) *Middleware {
	return &Middleware{opts: opts}
}

type ctxKey struct{}

type requestProfile struct {
	thread  *host.Thread
	session *sampler.Session
}

// Checkpoint is a safe point of the request r belongs to. Handlers of
// timer-driven modes call it regularly; it does nothing for requests that
// are not profiled.
func Checkpoint(ctx context.Context) {
	if rp, ok := ctx.Value(ctxKey{}).(*requestProfile); ok {
		rp.session.Checkpoint(rp.thread)
	}
}

// Sample captures the stack of the caller if the request is profiled.
func Sample(ctx context.Context) {
	if rp, ok := ctx.Value(ctxKey{}).(*requestProfile); ok {
		rp.session.Sample(rp.thread)
	}
}

// Thread returns the thread of the profiled request or nil.
func Thread(ctx context.Context) *host.Thread {
	if rp, ok := ctx.Value(ctxKey{}).(*requestProfile); ok {
		return rp.thread
	}
	return nil
}

// Handler wraps next with request profiling.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.opts.Enabled.Resolve(r) {
			next.ServeHTTP(w, r)
			return
		}

		mode := m.opts.Mode.Resolve(r)
		if mode == "" {
			mode = profile.ModeCPU
		}
		cfg := sampler.Config{
			Mode:     mode,
			Interval: m.opts.Interval,
			Raw:      m.opts.Raw,
			Tags:     m.opts.Tags,
			Metadata: map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			},
		}
		session, err := m.profiler.Start(r.Context(), cfg)
		if err != nil {
			if !errors.Is(err, sampler.ErrAlreadyRunning) {
				log.Warnf("Failed to start profiling %s %s: %v", r.Method, r.URL.Path, err)
			}
			next.ServeHTTP(w, r)
			return
		}

		thr := host.NewThread()
		thr.Tags().Set(tags.DefaultSource, tags.Context{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		rp := &requestProfile{thread: thr, session: session}
		defer m.finish(r, rp)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rp)))
	})
}

func (m *Middleware) finish(r *http.Request, rp *requestProfile) {
	// The request context may already be canceled.
	ctx := context.WithoutCancel(r.Context())
	p, err := m.profiler.StopSession(ctx, rp.session)
	if err != nil {
		log.Errorf("Failed to stop profiling %s %s: %v", r.Method, r.URL.Path, err)
		return
	}
	if m.opts.Dir != "" {
		out := m.outPath(p.Mode)
		if err = reporter.Save(ctx, out, p); err != nil {
			log.Errorf("Failed to save profile to %s: %v", out, err)
		} else {
			log.Debugf("Saved profile of %s %s to %s", r.Method, r.URL.Path, out)
		}
	}
	if m.opts.Done != nil {
		m.opts.Done(r, p)
	}
}

func (m *Middleware) outPath(mode profile.Mode) string {
	name := fmt.Sprintf("stackprof-%s-%s.json", mode, uuid.NewString())
	if m.opts.Compress {
		name += reporter.ZstdSuffix
	}
	if strings.HasPrefix(m.opts.Dir, "s3://") {
		return strings.TrimSuffix(m.opts.Dir, "/") + "/" + name
	}
	return filepath.Join(m.opts.Dir, name)
}
