// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package xsync // import "go.opentelemetry.io/stackprof/libpf/xsync"

import "sync"

// Mutex is a thin wrapper around sync.Mutex that hides away the data it protects, so that
// the data can't be reached without holding the lock:
//
//	type Session struct {
//		state xsync.Mutex[sessionState]
//	}
//
//	func (s *Session) record(stack []libpf.Location) {
//		state := s.state.Lock()
//		defer s.state.Unlock(&state)
//		state.counters.Record(stack)
//	}
//
// Unlock clears the caller's pointer, so a use after unlock crashes in tests instead of
// racing silently.
type Mutex[T any] struct {
	guarded T
	mutex   sync.Mutex
}

// NewMutex creates a new mutex guarding the given value.
func NewMutex[T any](guarded T) Mutex[T] {
	return Mutex[T]{
		guarded: guarded,
	}
}

// Lock locks the mutex, returning a pointer to the protected data.
//
// The caller **must not** let the returned pointer leak out of the scope of the function where it
// was originally created, except for temporarily borrowing it to other functions.
func (mtx *Mutex[T]) Lock() *T {
	mtx.mutex.Lock()
	return &mtx.guarded
}

// TryLock is like Lock but returns nil instead of blocking when the mutex is held.
func (mtx *Mutex[T]) TryLock() *T {
	if !mtx.mutex.TryLock() {
		return nil
	}
	return &mtx.guarded
}

// Unlock unlocks the mutex after previously being locked by Lock or TryLock.
//
// Pass a reference to the pointer returned from Lock here to ensure it is invalidated.
func (mtx *Mutex[T]) Unlock(ref **T) {
	*ref = nil
	mtx.mutex.Unlock()
}
