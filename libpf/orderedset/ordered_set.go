// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package orderedset provides a set that hands out dense indices in
// insertion order.
package orderedset // import "go.opentelemetry.io/stackprof/libpf/orderedset"

// OrderedSet is a set that keeps order of insertion. The index of an
// element never changes once assigned.
type OrderedSet[T comparable] struct {
	index map[T]uint32
	items []T
}

// New returns an empty set.
func New[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{index: make(map[T]uint32)}
}

// Add adds an element to the set and returns its index.
func (os *OrderedSet[T]) Add(key T) uint32 {
	idx, _ := os.AddWithCheck(key)
	return idx
}

// AddWithCheck adds an element to the set, returns its index and presence state.
func (os *OrderedSet[T]) AddWithCheck(key T) (uint32, bool) {
	if idx, exists := os.index[key]; exists {
		return idx, true
	}

	idx := uint32(len(os.items))
	os.index[key] = idx
	os.items = append(os.items, key)
	return idx, false
}

// Index returns the index of key, if present.
func (os *OrderedSet[T]) Index(key T) (uint32, bool) {
	idx, ok := os.index[key]
	return idx, ok
}

// At returns the element with index idx. It panics if idx is out of range.
func (os *OrderedSet[T]) At(idx uint32) T {
	return os.items[idx]
}

// Len returns the number of elements.
func (os *OrderedSet[T]) Len() int {
	return len(os.items)
}

// ToSlice returns a copy of the elements of the set, in insertion order.
func (os *OrderedSet[T]) ToSlice() []T {
	ret := make([]T, len(os.items))
	copy(ret, os.items)
	return ret
}
