// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package tags // import "go.opentelemetry.io/stackprof/tags"

import "go.opentelemetry.io/stackprof/libpf/orderedset"

// Table interns tag keys and values. Indices are assigned in first-seen
// order and never change.
type Table struct {
	strings *orderedset.OrderedSet[string]
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{strings: orderedset.New[string]()}
}

// Intern returns the index of s, truncated to MaxLength bytes.
func (t *Table) Intern(s string) uint32 {
	return t.strings.Add(Truncate(s))
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	return t.strings.Len()
}

// Strings returns the interned strings in index order.
func (t *Table) Strings() []string {
	return t.strings.ToSlice()
}
