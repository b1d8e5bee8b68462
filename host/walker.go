// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package host // import "go.opentelemetry.io/stackprof/host"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/zeebo/xxh3"

	"go.opentelemetry.io/stackprof/libpf"
	"go.opentelemetry.io/stackprof/libpf/freelru"
	"go.opentelemetry.io/stackprof/libpf/xsync"
)

// ErrEmptyStack is returned when a walk yields no frames.
var ErrEmptyStack = errors.New("empty stack")

// pcCacheSize is the number of program counters whose symbolization is
// cached. Hot loops touch far fewer distinct return addresses.
const pcCacheSize = 16384

// symbol is one (possibly inlined) function a program counter expands to.
type symbol struct {
	handle libpf.Handle
	line   int
}

// funcKey identifies a function independently of where it was inlined.
// pc is only set for frames without symbol information.
type funcKey struct {
	name string
	file string
	pc   uintptr
}

type handleTable struct {
	byFunc map[funcKey]libpf.Handle
	info   map[libpf.Handle]libpf.FrameInfo
	next   libpf.Handle
}

// Walker captures goroutine stacks and resolves their frames. It is safe
// for concurrent use.
type Walker struct {
	cache   *freelru.SyncedLRU[uintptr, []symbol]
	handles xsync.Mutex[handleTable]
	pcs     sync.Pool
}

func hashPC(pc uintptr) uint32 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(pc))
	return uint32(xxh3.Hash(b[:]))
}

// NewWalker creates a walker with an empty symbolization cache.
func NewWalker() (*Walker, error) {
	cache, err := freelru.NewSynced[uintptr, []symbol](pcCacheSize, hashPC)
	if err != nil {
		return nil, fmt.Errorf("failed to create pc cache: %w", err)
	}
	return &Walker{
		cache: cache,
		handles: xsync.NewMutex(handleTable{
			byFunc: make(map[funcKey]libpf.Handle),
			info:   make(map[libpf.Handle]libpf.FrameInfo),
			next:   libpf.FirstHostHandle,
		}),
		pcs: sync.Pool{
			New: func() any {
				buf := make([]uintptr, libpf.MaxStackDepth)
				return &buf
			},
		},
	}, nil
}

// Walk appends the calling goroutine's stack, innermost frame first, to
// buf[:0]. skip is the number of callers of Walk to leave out; 0 starts the
// stack at the function calling Walk. At most libpf.MaxStackDepth program
// counters are examined.
func (w *Walker) Walk(skip int, buf []libpf.Location) ([]libpf.Location, error) {
	pcsRef := w.pcs.Get().(*[]uintptr)
	defer w.pcs.Put(pcsRef)
	pcs := *pcsRef

	// Skip runtime.Callers and Walk itself.
	n := runtime.Callers(skip+2, pcs)
	buf = buf[:0]
	for _, pc := range pcs[:n] {
		syms, ok := w.cache.Get(pc)
		if !ok {
			syms = w.symbolize(pc)
			w.cache.Add(pc, syms)
		}
		for _, s := range syms {
			buf = append(buf, libpf.Location{Handle: s.handle, Line: s.line})
		}
	}
	if len(buf) == 0 {
		return buf, ErrEmptyStack
	}
	return buf, nil
}

// symbolize expands pc into its inlined functions, innermost first.
func (w *Walker) symbolize(pc uintptr) []symbol {
	var syms []symbol
	frames := runtime.CallersFrames([]uintptr{pc})
	for {
		frame, more := frames.Next()
		if frame.Function != "runtime.goexit" && (frame.Function != "" || frame.PC != 0) {
			syms = append(syms, symbol{handle: w.intern(&frame), line: frame.Line})
		}
		if !more {
			break
		}
	}
	return syms
}

// intern returns the handle of the function frame executes. Inlined and
// out-of-line copies of a function share one handle, and its line is where
// the function starts, so frames resolve alike in every process.
func (w *Walker) intern(frame *runtime.Frame) libpf.Handle {
	key := funcKey{name: frame.Function, file: frame.File}
	if key.name == "" {
		key.pc = frame.PC
	}
	table := w.handles.Lock()
	defer w.handles.Unlock(&table)

	if h, ok := table.byFunc[key]; ok {
		return h
	}
	h := table.next
	table.next++
	table.byFunc[key] = h

	info := libpf.FrameInfo{
		Name: frame.Function,
		File: frame.File,
		Line: frame.StartLine,
	}
	if info.Name == "" {
		info.Name = fmt.Sprintf("0x%x", frame.PC)
	}
	if info.Line == 0 && frame.Func != nil {
		if _, line := frame.Func.FileLine(frame.Entry); line > 0 {
			info.Line = line
		}
	}
	table.info[h] = info
	return h
}

// Resolve returns the display information of a handle handed out by Walk.
func (w *Walker) Resolve(h libpf.Handle) libpf.FrameInfo {
	table := w.handles.Lock()
	defer w.handles.Unlock(&table)
	if info, ok := table.info[h]; ok {
		return info
	}
	return libpf.FrameInfo{Name: fmt.Sprintf("(unknown handle %d)", h)}
}

// CacheStatistics returns and resets the hit/miss counters of the
// symbolization cache.
func (w *Walker) CacheStatistics() freelru.Statistics {
	return w.cache.GetAndResetStatistics()
}
