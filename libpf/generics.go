// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "go.opentelemetry.io/stackprof/libpf"

// Void allows to use maps as sets without memory allocation for the values.
type Void struct{}

// Set is a convenience alias for a map with a `Void` key.
type Set[T comparable] map[T]Void

// SlicesEqual checks whether two slices are element-wise equal.
func SlicesEqual[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
