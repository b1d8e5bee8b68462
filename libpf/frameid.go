// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "go.opentelemetry.io/stackprof/libpf"

import (
	"fmt"
	"strconv"
)

// FrameID is the session-local index of an interned frame. IDs are dense,
// start at zero and follow discovery order. They are only meaningful within
// the profile that assigned them.
type FrameID uint32

// String returns the decimal representation, which is also the JSON object
// key used for the frame.
func (id FrameID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseFrameID parses the decimal representation of a FrameID.
func ParseFrameID(s string) (FrameID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid frame id %q: %w", s, err)
	}
	return FrameID(v), nil
}
