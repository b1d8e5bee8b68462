// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "go.opentelemetry.io/stackprof/libpf"

import (
	"cmp"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// ContentID identifies a frame by what it shows (name, file and line)
// rather than by the session that discovered it. Frames of independently
// collected profiles with equal ContentID are the same function.
type ContentID struct {
	hi uint64
	lo uint64
}

// NewContentID hashes the display information of a frame.
func NewContentID(info FrameInfo) ContentID {
	h := xxh3.New()
	var sep [1]byte
	_, _ = h.WriteString(info.Name)
	_, _ = h.Write(sep[:])
	_, _ = h.WriteString(info.File)
	_, _ = h.Write(sep[:])
	var line [8]byte
	binary.LittleEndian.PutUint64(line[:], uint64(int64(info.Line)))
	_, _ = h.Write(line[:])
	sum := h.Sum128()
	return ContentID{hi: sum.Hi, lo: sum.Lo}
}

// Compare orders content IDs. It returns -1, 0 or +1.
func (c ContentID) Compare(other ContentID) int {
	if r := cmp.Compare(c.hi, other.hi); r != 0 {
		return r
	}
	return cmp.Compare(c.lo, other.lo)
}

// String returns the hex representation.
func (c ContentID) String() string {
	return fmt.Sprintf("%016x%016x", c.hi, c.lo)
}
