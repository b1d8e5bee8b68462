// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package successfailurecounter counts the outcome of attempts that either succeed or fail,
// such as the capture of a due sample.
//
// Counters is safe for concurrent use. An Attempt is not: it belongs to the goroutine that
// started it.
package successfailurecounter // import "go.opentelemetry.io/stackprof/successfailurecounter"

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Counters accumulates the outcomes of many attempts.
type Counters struct {
	success atomic.Uint64
	failure atomic.Uint64
}

// Success returns the number of successful attempts.
func (c *Counters) Success() uint64 {
	return c.success.Load()
}

// Failure returns the number of failed attempts.
func (c *Counters) Failure() uint64 {
	return c.failure.Load()
}

// AddFailures counts n attempts that failed without being started, e.g. because they were
// superseded before they could run.
func (c *Counters) AddFailures(n uint64) {
	c.failure.Add(n)
}

// Begin starts an attempt whose outcome is counted exactly once.
func (c *Counters) Begin() Attempt {
	return Attempt{counters: c}
}

// Attempt reports the outcome of a single attempt to its Counters.
type Attempt struct {
	counters *Counters
	sealed   bool
}

// ReportSuccess increments the success counter or logs an error otherwise.
func (a *Attempt) ReportSuccess() {
	if a.sealed {
		log.Errorf("Attempted to report success/failure status more than once.")
		return
	}
	a.counters.success.Add(1)
	a.sealed = true
}

// ReportFailure increments the failure counter or logs an error otherwise. The reason is
// logged at debug level.
func (a *Attempt) ReportFailure(reason error) {
	if a.sealed {
		log.Errorf("Attempted to report failure/success status more than once.")
		return
	}
	if reason != nil {
		log.Debugf("Attempt failed: %v", reason)
	}
	a.counters.failure.Add(1)
	a.sealed = true
}

// Sealed reports whether the outcome was already counted.
func (a *Attempt) Sealed() bool {
	return a.sealed
}

// DefaultToSuccess increments the success counter if no counter was updated before.
func (a *Attempt) DefaultToSuccess() {
	if !a.sealed {
		a.counters.success.Add(1)
		a.sealed = true
	}
}

// DefaultToFailure increments the failure counter if no counter was updated before.
func (a *Attempt) DefaultToFailure() {
	if !a.sealed {
		a.counters.failure.Add(1)
		a.sealed = true
	}
}
