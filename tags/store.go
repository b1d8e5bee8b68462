// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package tags // import "go.opentelemetry.io/stackprof/tags"

import "maps"

// Context maps tag keys to their current values.
type Context map[string]string

// Store holds the tag contexts of one thread, keyed by source. A Store is
// owned by its thread and must only be used from it. Every mutation installs
// a fresh Context, so a Context obtained from Lookup is never modified
// afterwards.
type Store struct {
	sources map[string]Context
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sources: make(map[string]Context)}
}

// Set merges tags into the context of source.
func (s *Store) Set(source string, tags Context) {
	next := make(Context, len(s.sources[source])+len(tags))
	maps.Copy(next, s.sources[source])
	maps.Copy(next, tags)
	s.sources[source] = next
}

// Unset removes keys from the context of source.
func (s *Store) Unset(source string, keys ...string) {
	cur, ok := s.sources[source]
	if !ok {
		return
	}
	next := maps.Clone(cur)
	for _, k := range keys {
		delete(next, k)
	}
	s.sources[source] = next
}

// Clear empties the context of source.
func (s *Store) Clear(source string) {
	if _, ok := s.sources[source]; ok {
		s.sources[source] = Context{}
	}
}

// Check returns a copy of the context of source.
func (s *Store) Check(source string) Context {
	cur := s.sources[source]
	if cur == nil {
		return Context{}
	}
	return maps.Clone(cur)
}

// With sets tags for the duration of fn and then restores the previous
// context of source, including any changes fn made to other keys.
func (s *Store) With(source string, tags Context, fn func()) {
	before, had := s.sources[source]
	defer func() {
		if had {
			s.sources[source] = before
		} else {
			delete(s.sources, source)
		}
	}()
	s.Set(source, tags)
	fn()
}

// Lookup returns the context of source without copying it. The result must
// not be modified.
func (s *Store) Lookup(source string) Context {
	return s.sources[source]
}

// Snapshot copies the contexts of the given sources. Empty contexts are
// left out.
func (s *Store) Snapshot(sources ...string) map[string]Context {
	snap := make(map[string]Context, len(sources))
	for _, src := range sources {
		if cur := s.sources[src]; len(cur) > 0 {
			snap[src] = maps.Clone(cur)
		}
	}
	return snap
}

// Install replaces the contexts named in snap.
func (s *Store) Install(snap map[string]Context) {
	for src, ctx := range snap {
		s.sources[src] = maps.Clone(ctx)
	}
}
