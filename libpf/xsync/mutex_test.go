// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package xsync_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/stackprof/libpf/xsync"
)

type counters struct {
	samples uint64
	stacks  [][]int
}

func TestMutex(t *testing.T) {
	m := xsync.NewMutex(counters{samples: 41})

	c := m.Lock()
	c.samples++
	m.Unlock(&c)
	// Unlock zeros the reference to make sure we can't accidentally use it after unlocking.
	assert.Nil(t, c)

	c = m.Lock()
	defer m.Unlock(&c)
	assert.Equal(t, uint64(42), c.samples)
}

func TestMutex_TryLock(t *testing.T) {
	m := xsync.NewMutex(counters{})

	held := m.Lock()
	assert.Nil(t, m.TryLock())
	m.Unlock(&held)

	c := m.TryLock()
	require.NotNil(t, c)
	c.stacks = append(c.stacks, []int{1, 2})
	m.Unlock(&c)
}

func TestMutex_Concurrent(t *testing.T) {
	m := xsync.NewMutex(counters{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				c := m.Lock()
				c.samples++
				m.Unlock(&c)
			}
		}()
	}
	wg.Wait()

	c := m.Lock()
	defer m.Unlock(&c)
	assert.Equal(t, uint64(8000), c.samples)
}
