// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

// To add a new metric append an entry to metrics.json. ONLY APPEND !
// Then add the matching constant below; TestDefinitionsMatchIDs checks both agree.

// Below are the different metric IDs that we currently implement.
const (

	// Leave out the 0 value. It's an indication of not explicitly initialized variables.
	IDInvalid = 0

	// Samples captured successfully, including garbage collection samples
	IDSamples = 1

	// Sampling triggers that could not be captured
	IDMissedSamples = 2

	// Samples attributed to garbage collection phases
	IDGCSamples = 3

	// Sampling triggers fired by timers, clocks or events
	IDTriggers = 4

	// Distinct frames interned by the last completed session
	IDFrames = 5

	// Raw stream records written, after run-length encoding
	IDRawRecords = 6

	// Distinct tag strings interned by the last completed session
	IDTagStrings = 7

	// Symbolization cache hits
	IDSymbolCacheHit = 8

	// Symbolization cache misses
	IDSymbolCacheMiss = 9

	// Completed profiling sessions
	IDSessions = 10

	// Profiles merged into combined profiles
	IDCombinedProfiles = 11

	// max number of ID values, keep this as *last entry*
	IDMax = 12
)
