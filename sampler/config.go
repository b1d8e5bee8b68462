// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package sampler // import "go.opentelemetry.io/stackprof/sampler"

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/stackprof/host"
	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/reporter"
	"go.opentelemetry.io/stackprof/tags"
)

const (
	// DefaultInterval is the sampling period in microseconds of the cpu and
	// wall modes.
	DefaultInterval = 1000
	// DefaultObjectInterval is the number of allocations per sample of the
	// object mode.
	DefaultObjectInterval = 1
	// MaxInterval is the largest accepted interval.
	MaxInterval = 999999
)

// ErrConfiguration is the class of all configuration errors.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError reports an invalid configuration field. It matches
// ErrConfiguration with errors.Is.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration of %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Config describes a profiling session.
type Config struct {
	// Mode selects the trigger. Defaults to wall.
	Mode profile.Mode
	// Interval is the sampling period in microseconds for cpu and wall and
	// the number of allocations per sample for object. It is ignored for
	// custom. 0 selects the mode's default.
	Interval uint64
	// Raw enables the raw sample stream and its timestamp deltas.
	Raw bool
	// Tags are the tag names recorded with every sample, in order.
	Tags []string
	// TagSource names the tag context read from sampled threads. Defaults to
	// tags.DefaultSource.
	TagSource string
	// Metadata is copied into the profile.
	Metadata map[string]any
	// Out, if set, is where the profile is written at stop: a file path,
	// optionally ending in .zst, or an s3://bucket/key URL.
	Out string
	// Debug enables per-session debug logging.
	Debug bool
	// IgnoreGC disables attributing samples to garbage collection phases.
	IgnoreGC bool
	// NoAggregate skips line hits and call edges. Self and total samples are
	// still counted; the raw stream, if enabled, carries the call structure.
	NoAggregate bool
	// GCProbe reports collector activity to the triggers. Defaults to host.NoGC.
	GCProbe host.GCProbe
	// Walker captures stacks. Defaults to a walker shared by all sessions.
	Walker *host.Walker
}

// Validate checks if the configuration is valid. All returned errors match
// ErrConfiguration.
func (cfg *Config) Validate() error {
	if cfg.Mode != "" {
		if _, err := profile.ParseMode(string(cfg.Mode)); err != nil {
			return &ConfigurationError{Field: "mode", Err: err}
		}
	}
	if cfg.Mode != profile.ModeCustom && cfg.Interval > MaxInterval {
		return &ConfigurationError{
			Field: "interval",
			Err:   fmt.Errorf("%d is out of range [1,%d]", cfg.Interval, MaxInterval),
		}
	}
	if _, err := tags.NewRecorder(cfg.Tags); err != nil {
		return &ConfigurationError{Field: "tags", Err: err}
	}
	if cfg.Out != "" {
		if _, err := reporter.ParseDestination(cfg.Out); err != nil {
			return &ConfigurationError{Field: "out", Err: err}
		}
	}
	return nil
}

// withDefaults returns a copy of cfg with all defaults filled in.
func (cfg Config) withDefaults() Config {
	if cfg.Mode == "" {
		cfg.Mode = profile.ModeWall
	}
	if cfg.Interval == 0 {
		if cfg.Mode == profile.ModeObject {
			cfg.Interval = DefaultObjectInterval
		} else {
			cfg.Interval = DefaultInterval
		}
	}
	if cfg.TagSource == "" {
		cfg.TagSource = tags.DefaultSource
	}
	if cfg.GCProbe == nil {
		cfg.GCProbe = host.NoGC
	}
	return cfg
}

// ParseMetadata parses metadata given as text. It must be a JSON object.
func ParseMetadata(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != '{' {
		return nil, &ConfigurationError{
			Field: "metadata",
			Err:   errors.New("must be a key-value mapping"),
		}
	}
	var md map[string]any
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, &ConfigurationError{Field: "metadata", Err: err}
	}
	return md, nil
}
