// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package tags implements per-thread tag contexts and the recorder that
// attaches a tag set to every collected sample.
//
// Keys and values of all samples share one string table. The per-sample
// stream is encoded as
//
//	[n, key_1, value_1, ..., key_n, value_n, repeat]*
//
// where the indices point into the string table and repeat is the number of
// consecutive samples that carried exactly this set.
package tags // import "go.opentelemetry.io/stackprof/tags"

import (
	"errors"
	"unicode/utf8"
)

const (
	// MaxTags is the maximum number of tag names a session may subscribe to.
	MaxTags = 64
	// MaxLength is the maximum length in bytes of a tag key or value. Longer
	// strings are truncated.
	MaxLength = 64

	// DefaultSource is the tag source read when a session does not name one.
	DefaultSource = "stackprof"
	// ThreadID is a built-in tag name that resolves to the sampled thread's ID.
	ThreadID = "thread_id"
)

var (
	// ErrTooManyTags is returned when more than MaxTags names are subscribed.
	ErrTooManyTags = errors.New("too many tags")
	// ErrInvalidName is returned for an empty tag name.
	ErrInvalidName = errors.New("invalid tag name")
	// ErrCorruptStream is returned when a sample tag stream can't be decoded.
	ErrCorruptStream = errors.New("corrupt sample tag stream")
)

// Truncate shortens s to at most MaxLength bytes. It cuts at the last rune
// boundary at or below MaxLength, so a valid UTF-8 string stays valid.
func Truncate(s string) string {
	if len(s) <= MaxLength {
		return s
	}
	n := MaxLength
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
