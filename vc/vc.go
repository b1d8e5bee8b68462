// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package vc provides buildtime information.
package vc // import "go.opentelemetry.io/stackprof/vc"

import (
	"fmt"
	"runtime/debug"
)

var (
	// The following variables are going to be set at link time using ldflags
	// and can be referenced later in the program. When they are not set, the
	// module information embedded by the Go toolchain is used instead.

	// revision of the service
	revision = ""
	// buildTimestamp, timestamp of the build
	buildTimestamp = ""
	// version in vX.Y.Z{-N-abbrev} format (via git-describe --tags)
	version = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if revision == "" {
				revision = s.Value
			}
		case "vcs.time":
			if buildTimestamp == "" {
				buildTimestamp = s.Value
			}
		}
	}
}

// Revision of the service.
func Revision() string {
	return revision
}

// BuildTimestamp returns the timestamp of the build.
func BuildTimestamp() string {
	return buildTimestamp
}

// Version in vX.Y.Z{-N-abbrev} format.
func Version() string {
	return version
}

// String summarizes the build information in one line.
func String() string {
	v := version
	if v == "" {
		v = "unknown"
	}
	return fmt.Sprintf("%s (revision %s, built %s)", v, orUnknown(revision),
		orUnknown(buildTimestamp))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
