// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/reporter"
	"go.opentelemetry.io/stackprof/tags"
)

func TestSetting(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/debug", nil)
	assert.True(t, Static(true).Resolve(r))
	assert.False(t, Setting[bool]{}.Resolve(r))

	byPath := Computed(func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, "/debug")
	})
	assert.True(t, byPath.Resolve(r))
	assert.False(t, byPath.Resolve(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestHandler(t *testing.T) {
	tests := map[string]struct {
		enabled  Setting[bool]
		path     string
		profiled bool
	}{
		"disabled": {
			enabled: Static(false),
			path:    "/",
		},
		"enabled": {
			enabled:  Static(true),
			path:     "/",
			profiled: true,
		},
		"computed off": {
			enabled: Computed(func(r *http.Request) bool { return r.URL.Path == "/slow" }),
			path:    "/fast",
		},
		"computed on": {
			enabled:  Computed(func(r *http.Request) bool { return r.URL.Path == "/slow" }),
			path:     "/slow",
			profiled: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			var got *profile.Profile
			m := New(Options{
				Enabled: tc.enabled,
				Mode:    Static(profile.ModeCustom),
				Tags:    []string{"path"},
				Dir:     dir,
				Done: func(_ *http.Request, p *profile.Profile) {
					got = p
				},
			})

			handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Sample(r.Context())
				Checkpoint(r.Context())
				Sample(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, http.StatusNoContent, rec.Code)

			files, err := os.ReadDir(dir)
			require.NoError(t, err)
			if !tc.profiled {
				assert.Nil(t, got)
				assert.Empty(t, files)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, uint64(2), got.Samples)
			assert.Equal(t, tc.path, got.Metadata["path"])
			sets, err := got.SampleTagSets()
			require.NoError(t, err)
			assert.Equal(t, []tags.Context{{"path": tc.path}, {"path": tc.path}}, sets)

			require.Len(t, files, 1)
			assert.True(t, strings.HasPrefix(files[0].Name(), "stackprof-custom-"))
			saved, err := reporter.Load(t.Context(), filepath.Join(dir, files[0].Name()))
			require.NoError(t, err)
			assert.Equal(t, got.Samples, saved.Samples)
		})
	}
}

func TestConcurrentRequests(t *testing.T) {
	var mu sync.Mutex
	var profiled int
	m := New(Options{
		Enabled: Static(true),
		Mode:    Static(profile.ModeCustom),
		Done: func(*http.Request, *profile.Profile) {
			mu.Lock()
			profiled++
			mu.Unlock()
		},
	})

	inside := make(chan struct{})
	release := make(chan struct{})
	slow := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, Thread(r.Context()))
		close(inside)
		<-release
	}))
	fast := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Served unprofiled while the slow request holds the profiler.
		assert.Nil(t, Thread(r.Context()))
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		slow.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	}()
	<-inside
	fast.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fast", nil))
	close(release)
	<-done

	assert.Equal(t, 1, profiled)
	assert.False(t, m.profiler.Running())
}

func TestOutPath(t *testing.T) {
	tests := map[string]struct {
		opts   Options
		prefix string
		suffix string
	}{
		"dir":        {opts: Options{Dir: "/tmp/prof"}, prefix: "/tmp/prof/stackprof-wall-", suffix: ".json"},
		"compressed": {opts: Options{Dir: "/tmp/prof", Compress: true}, prefix: "/tmp/prof/stackprof-wall-", suffix: ".json.zst"},
		"s3":         {opts: Options{Dir: "s3://bucket/prefix/"}, prefix: "s3://bucket/prefix/stackprof-wall-", suffix: ".json"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			out := New(tc.opts).outPath(profile.ModeWall)
			assert.True(t, strings.HasPrefix(out, tc.prefix), out)
			assert.True(t, strings.HasSuffix(out, tc.suffix), out)
		})
	}
}
