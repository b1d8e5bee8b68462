//go:build unix

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessCPUTime(t *testing.T) {
	before, err := ProcessCPUTime()
	require.NoError(t, err)

	deadline := time.Now().Add(20 * time.Millisecond)
	x := 0
	for time.Now().Before(deadline) {
		x++
	}

	after, err := ProcessCPUTime()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after, before)
	assert.Positive(t, x)
}
