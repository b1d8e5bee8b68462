// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profile // import "go.opentelemetry.io/stackprof/profile"

import (
	"encoding/json"
	"fmt"
	"io"

	"go.opentelemetry.io/stackprof/libpf"
)

// Encode writes p as JSON.
func Encode(w io.Writer, p *Profile) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return nil
}

// Decode reads a JSON profile.
func Decode(r io.Reader) (*Profile, error) {
	var p Profile
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if p.Frames == nil {
		p.Frames = make(map[libpf.FrameID]*Frame)
	}
	return &p, nil
}
