// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package libpf holds the identity types shared by every part of the
// profiler: frame handles and IDs, synthetic GC-phase frames and the content
// identity used to merge profiles.
package libpf // import "go.opentelemetry.io/stackprof/libpf"

// MaxStackDepth is the number of innermost frames a capture keeps.
const MaxStackDepth = 2048
