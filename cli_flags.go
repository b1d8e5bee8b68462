// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"

	"go.opentelemetry.io/stackprof/sampler"
)

const (
	// Default values for CLI flags
	defaultArgMode     = "wall"
	defaultArgDuration = 2 * time.Second
	defaultArgFormat   = formatText

	envVarPrefix = "STACKPROF"
)

// Help strings for command line arguments
var (
	verboseHelp  = "Enable verbose logging and debugging capabilities."
	configHelp   = "Path to a plain configuration file with one 'flag value' per line."
	modeHelp     = "Sampling mode: cpu, wall, object or custom."
	intervalHelp = fmt.Sprintf("Sampling interval in microseconds for cpu and wall, "+
		"allocations per sample for object. Range [1,%d], 0 selects the mode's default.",
		sampler.MaxInterval)
	rawHelp      = "Record the raw sample stream and its timestamp deltas."
	tagsHelp     = "Comma-separated list of tags to record with every sample."
	metadataHelp = "JSON object stored in the profile's metadata."
	outHelp      = "Output path, optionally ending in .zst, or s3://bucket/key URL. " +
		"Defaults to a unique file name in the current directory."
	durationHelp  = "How long the built-in workload runs."
	ignoreGCHelp  = "Do not attribute samples to garbage collection."
	aggregateHelp = "Aggregate line hits and call edges. Disable to rely on the raw stream."
	debugHelp     = "Log session debug information."
	workersHelp   = "Number of workload threads."
	combineHelp   = "Output path of the combined profile, optionally ending in .zst, or s3://bucket/key URL."
	formatHelp    = fmt.Sprintf("Report format: %s.", strings.Join(reportFormats, ", "))
	filterHelp    = "Regular expression selecting frames for the graphviz and source formats."
	reportHelp    = "Write the report to this file instead of standard output."
)

func rootOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current
		// version does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	}
}

// subOptions lets subcommand flags be set from the environment, e.g.
// STACKPROF_RECORD_MODE.
func subOptions(name string) []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envVarPrefix + "_" + strings.ToUpper(name)),
	}
}

// splitList splits a comma-separated flag value, dropping empty elements.
func splitList(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
