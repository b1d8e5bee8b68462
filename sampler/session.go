// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package sampler // import "go.opentelemetry.io/stackprof/sampler"

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/stackprof/aggregator"
	"go.opentelemetry.io/stackprof/host"
	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/libpf/xsync"
	"go.opentelemetry.io/stackprof/metrics"
	"go.opentelemetry.io/stackprof/periodiccaller"
	"go.opentelemetry.io/stackprof/profile"
	"go.opentelemetry.io/stackprof/rawstream"
	"go.opentelemetry.io/stackprof/reporter"
	"go.opentelemetry.io/stackprof/successfailurecounter"
	"go.opentelemetry.io/stackprof/tags"
)

var (
	// ErrAlreadyRunning is returned when a profiler is started twice.
	ErrAlreadyRunning = errors.New("profiler already running")
	// ErrNotRunning is returned when a stopped session is stopped again.
	ErrNotRunning = errors.New("profiler not running")

	errSessionStopped = errors.New("session stopped")
)

// captureSkip leaves out capture and the public method that called it, so
// that stacks start at the code that reached the safe point.
const captureSkip = 2

var sharedWalker = sync.OnceValues(host.NewWalker)

// Session is one running profiling session.
//
// Triggers only touch atomics: they count themselves and either note an
// unrecorded garbage collection sample or mark a sample as due. A due sample
// is captured at the next safe point, i.e. the next call to Checkpoint on a
// sampled thread. A trigger arriving while a sample is still due replaces it
// and the replaced sample is missed.
type Session struct {
	cfg    Config
	walker *host.Walker

	stopTriggers func()
	stopped      atomic.Bool

	triggers atomic.Uint64
	due      atomic.Bool
	objects  atomic.Uint64
	captures successfailurecounter.Counters

	// unrecorded garbage collection samples; gcMarking and gcSweeping are
	// subsets of gcPending
	gcPending  atomic.Uint64
	gcMarking  atomic.Uint64
	gcSweeping atomic.Uint64

	locations sync.Pool

	state xsync.Mutex[sessionState]
}

type sessionState struct {
	agg  *aggregator.Aggregator
	raw  *rawstream.Encoder
	tags *tags.Recorder

	ids        []libpf.FrameID
	samples    uint64
	gcSamples  uint64
	lastSample time.Time
	stopped    bool
}

// Start validates cfg and starts a session. Timer-driven modes start their
// trigger goroutine immediately; it runs until Stop or until ctx is done.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	walker := cfg.Walker
	if walker == nil {
		var err error
		if walker, err = sharedWalker(); err != nil {
			return nil, err
		}
	}

	state := sessionState{
		agg:        aggregator.New(),
		lastSample: time.Now(),
	}
	if cfg.NoAggregate {
		state.agg = aggregator.NewCountsOnly()
	}
	if cfg.Raw {
		state.raw = &rawstream.Encoder{}
	}
	if len(cfg.Tags) > 0 {
		rec, err := tags.NewRecorder(cfg.Tags)
		if err != nil {
			return nil, &ConfigurationError{Field: "tags", Err: err}
		}
		state.tags = rec
	}

	s := &Session{
		cfg:    cfg,
		walker: walker,
		state:  xsync.NewMutex(state),
		locations: sync.Pool{
			New: func() any {
				buf := make([]libpf.Location, 0, 64)
				return &buf
			},
		},
	}

	interval := time.Duration(cfg.Interval) * time.Microsecond
	switch cfg.Mode {
	case profile.ModeWall:
		s.stopTriggers = periodiccaller.Start(ctx, interval, s.trigger)
	case profile.ModeCPU:
		stop, err := periodiccaller.StartOnClock(ctx, interval, host.ProcessCPUTime, s.trigger)
		if err != nil {
			return nil, fmt.Errorf("failed to start cpu clock: %w", err)
		}
		s.stopTriggers = stop
	}

	if cfg.Debug {
		log.Debugf("Started %s profiling session with interval %d", cfg.Mode, cfg.Interval)
	}
	return s, nil
}

// Config returns the effective configuration of the session.
func (s *Session) Config() Config {
	return s.cfg
}

// Running reports whether the session has not been stopped yet.
func (s *Session) Running() bool {
	return !s.stopped.Load()
}

// trigger is called by the timer goroutines.
func (s *Session) trigger() {
	if s.stopped.Load() {
		return
	}
	s.triggers.Add(1)

	if !s.cfg.IgnoreGC {
		if phase := s.cfg.GCProbe.Phase(); phase != libpf.GCNone {
			switch phase {
			case libpf.GCMarking:
				s.gcMarking.Add(1)
			case libpf.GCSweeping:
				s.gcSweeping.Add(1)
			}
			s.gcPending.Add(1)
			return
		}
	}

	if s.due.Swap(true) {
		// The previous sample never reached a safe point.
		s.captures.AddFailures(1)
	}
}

// Checkpoint is a safe point of thr. It records pending garbage collection
// samples and captures the stack of the caller if a sample is due. Sampled
// code should call it regularly, e.g. once per loop iteration.
func (s *Session) Checkpoint(thr *host.Thread) {
	if s.gcPending.Load() > 0 {
		s.flushGC(thr)
	}
	if s.due.Swap(false) {
		s.capture(thr)
	}
}

// Sample captures the stack of the caller immediately. It is the trigger of
// the custom mode and works in every mode.
func (s *Session) Sample(thr *host.Thread) {
	if s.stopped.Load() {
		return
	}
	s.triggers.Add(1)
	s.capture(thr)
}

// Allocated reports an allocation event in the object mode. Every
// Interval-th event captures the stack of the caller.
func (s *Session) Allocated(thr *host.Thread) {
	if s.cfg.Mode != profile.ModeObject || s.stopped.Load() {
		return
	}
	if s.objects.Add(1)%s.cfg.Interval != 0 {
		return
	}
	s.triggers.Add(1)
	s.capture(thr)
}

// capture walks the stack outside of the lock and records it. Any failure,
// including a panic, only costs this one sample.
func (s *Session) capture(thr *host.Thread) {
	attempt := s.captures.Begin()
	defer func() {
		if r := recover(); r != nil {
			attempt.ReportFailure(fmt.Errorf("capture fault: %v", r))
		}
		attempt.DefaultToFailure()
	}()

	bufRef := s.locations.Get().(*[]libpf.Location)
	defer s.locations.Put(bufRef)

	stack, err := s.walker.Walk(captureSkip, *bufRef)
	*bufRef = stack
	if err != nil {
		attempt.ReportFailure(err)
		return
	}

	var tagCtx tags.Context
	if len(s.cfg.Tags) > 0 {
		tagCtx = thr.Tags().Lookup(s.cfg.TagSource)
	}
	now := time.Now()

	state := s.state.Lock()
	defer s.state.Unlock(&state)
	if state.stopped {
		attempt.ReportFailure(errSessionStopped)
		return
	}
	// now was taken before the lock, another sample may be newer.
	delta := uint64(max(now.Sub(state.lastSample).Microseconds(), 0))
	state.record(stack, s.walker, tagCtx, thr.ID(), delta)
	if now.After(state.lastSample) {
		state.lastSample = now
	}
	attempt.ReportSuccess()
}

// flushGC records the unrecorded garbage collection samples as synthetic
// stacks. thr may be nil at stop.
func (s *Session) flushGC(thr *host.Thread) {
	state := s.state.Lock()
	defer s.state.Unlock(&state)
	if state.stopped {
		return
	}
	s.flushGCLocked(state, thr)
}

func (s *Session) flushGCLocked(state *sessionState, thr *host.Thread) {
	n := s.gcPending.Swap(0)
	if n == 0 {
		return
	}
	// A trigger may have counted its phase but not yet its sample; leave
	// such phases for the next flush.
	marking := s.gcMarking.Swap(0)
	if marking > n {
		s.gcMarking.Add(marking - n)
		marking = n
	}
	sweeping := s.gcSweeping.Swap(0)
	if sweeping > n-marking {
		s.gcSweeping.Add(sweeping - (n - marking))
		sweeping = n - marking
	}

	var tagCtx tags.Context
	var threadID uint64
	if thr != nil {
		threadID = thr.ID()
		if len(s.cfg.Tags) > 0 {
			tagCtx = thr.Tags().Lookup(s.cfg.TagSource)
		}
	}

	// The samples were due one interval apart, the last one just now.
	now := time.Now()
	interval := s.cfg.Interval
	elapsed := uint64(max(now.Sub(state.lastSample).Microseconds(), 0))
	first := uint64(0)
	if elapsed > (n-1)*interval {
		first = elapsed - (n-1)*interval
	}

	for i := range n {
		phase := libpf.GCOther
		switch {
		case i < marking:
			phase = libpf.GCMarking
		case i < marking+sweeping:
			phase = libpf.GCSweeping
		}
		delta := interval
		if i == 0 {
			delta = first
		}
		state.record(libpf.SyntheticStack(phase), s.walker, tagCtx, threadID, delta)
		state.gcSamples++
	}
	state.lastSample = now
}

func (st *sessionState) record(stack []libpf.Location, r aggregator.Resolver,
	tagCtx tags.Context, threadID, delta uint64) {
	st.ids = st.agg.Record(stack, r, 1, st.ids)
	st.samples++
	if st.raw != nil {
		st.raw.Record(st.ids, delta)
	}
	if st.tags != nil {
		st.tags.Record(tagCtx, threadID)
	}
}

// Stop stops the triggers, records pending garbage collection samples and
// returns the assembled profile. A sample still due is missed. If Out is
// configured, the profile is written there before Stop returns.
func (s *Session) Stop(ctx context.Context) (*profile.Profile, error) {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil, ErrNotRunning
	}
	if s.stopTriggers != nil {
		s.stopTriggers()
	}

	state := s.state.Lock()
	s.flushGCLocked(state, nil)
	if s.due.Swap(false) {
		s.captures.AddFailures(1)
	}
	state.stopped = true
	p := s.assemble(state)
	s.state.Unlock(&state)

	s.report(p)

	if s.cfg.Out != "" {
		if err := reporter.Save(ctx, s.cfg.Out, p); err != nil {
			return p, fmt.Errorf("failed to write profile to %s: %w", s.cfg.Out, err)
		}
	}
	return p, nil
}

func (s *Session) assemble(state *sessionState) *profile.Profile {
	triggers := s.triggers.Load()
	p := &profile.Profile{
		Version:   profile.Version,
		Mode:      s.cfg.Mode,
		Interval:  s.cfg.Interval,
		Samples:   state.samples,
		GCSamples: state.gcSamples,
		Frames:    state.agg.Snapshot(),
		Metadata:  maps.Clone(s.cfg.Metadata),
	}
	// Every trigger either produced a sample or was missed.
	if triggers > state.samples {
		p.MissedSamples = triggers - state.samples
	}

	if state.raw != nil {
		state.raw.Flush()
		p.Raw = state.raw.Stream()
		p.RawTimestampDeltas = state.raw.TimestampDeltas()
		if p.Raw == nil {
			p.Raw = rawstream.Stream{}
			p.RawTimestampDeltas = []uint64{}
		}
	}
	if state.tags != nil {
		p.TagStrings = state.tags.Strings()
		p.SampleTags = state.tags.Stream()
	}
	return p
}

func (s *Session) report(p *profile.Profile) {
	cache := s.walker.CacheStatistics()
	var rawRecords, tagStrings int
	state := s.state.Lock()
	if state.raw != nil {
		rawRecords = state.raw.Runs()
	}
	if state.tags != nil {
		tagStrings = len(state.tags.Strings())
	}
	frames := state.agg.Frames()
	s.state.Unlock(&state)

	metrics.AddSlice([]metrics.Metric{
		{ID: metrics.IDSamples, Value: metrics.MetricValue(p.Samples)},
		{ID: metrics.IDMissedSamples, Value: metrics.MetricValue(p.MissedSamples)},
		{ID: metrics.IDGCSamples, Value: metrics.MetricValue(p.GCSamples)},
		{ID: metrics.IDTriggers, Value: metrics.MetricValue(s.triggers.Load())},
		{ID: metrics.IDFrames, Value: metrics.MetricValue(frames)},
		{ID: metrics.IDRawRecords, Value: metrics.MetricValue(rawRecords)},
		{ID: metrics.IDTagStrings, Value: metrics.MetricValue(tagStrings)},
		{ID: metrics.IDSymbolCacheHit, Value: metrics.MetricValue(cache.Hit)},
		{ID: metrics.IDSymbolCacheMiss, Value: metrics.MetricValue(cache.Miss)},
		{ID: metrics.IDSessions, Value: 1},
	})

	if s.cfg.Debug {
		log.Debugf("Stopped %s profiling session: %d samples, %d gc, %d missed, %d frames",
			p.Mode, p.Samples, p.GCSamples, p.MissedSamples, frames)
		log.Debugf("Captures: %d succeeded, %d failed",
			s.captures.Success(), s.captures.Failure())
	}
}
