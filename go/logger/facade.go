package logger

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
)

// Backend is a named sink for formatted log lines, like the debugcon port or a serial line.
type Backend interface {
	Name() string
	io.Writer
}

// DuplicateBackendError hands the rejected backend back to the caller.
type DuplicateBackendError struct {
	Backend Backend
}

func (e *DuplicateBackendError) Error() string {
	return fmt.Sprintf("logging backend %q already registered", e.Backend.Name())
}

// Allocator provides the memory buffered messages live in until they are flushed.
// *heap.Heap satisfies it.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(b []byte) error
}

type goHeap struct{}

func (goHeap) Alloc(size int) ([]byte, error) { return make([]byte, size), nil }
func (goHeap) Free(b []byte) error            { return nil }

// the facade is in exactly one of these
type state interface {
	isState()
}

type buffering struct {
	msgs [][]byte
}

type flushed struct{}

func (*buffering) isState() {}
func (flushed) isState()    {}

// Facade buffers every record until Flush hands them over to the backends, then writes through.
type Facade struct {
	state    state
	backends []Backend
	alloc    Allocator
	max      Level

	// records the allocator could not hold
	lost int
	// scratch space for formatting
	scratch bytes.Buffer
}

// New returns a buffering facade. A nil alloc buffers on the Go heap.
func New(alloc Allocator) *Facade {
	if alloc == nil {
		alloc = goHeap{}
	}
	return &Facade{state: &buffering{}, alloc: alloc, max: Trace}
}

func (f *Facade) SetLevel(l Level) { f.max = l }
func (f *Facade) Level() Level     { return f.max }

func (f *Facade) Enabled(l Level) bool {
	return l <= f.max
}

func (f *Facade) Log(r *Record) {
	if !f.Enabled(r.Level) {
		return
	}
	f.scratch.Reset()
	Format(&f.scratch, r)
	switch s := f.state.(type) {
	case *buffering:
		msg, err := f.alloc.Alloc(f.scratch.Len())
		if err != nil {
			f.lost++
			return
		}
		copy(msg, f.scratch.Bytes())
		s.msgs = append(s.msgs, msg)
	case flushed:
		f.writeAll(f.scratch.Bytes())
	}
}

// log on behalf of the facade itself, attributed to whoever called into it
func (f *Facade) logSelf(level Level, depth int, msg string) {
	r := &Record{Level: level, Message: msg}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		r.File, r.Line = filepath.Base(file), line
	}
	f.Log(r)
}

func (f *Facade) writeAll(msg []byte) {
	for _, b := range f.backends {
		// nowhere to report a failing backend to
		b.Write(msg)
	}
}

// AddBackend registers b unless a backend with the same name exists. Works in either state.
func (f *Facade) AddBackend(b Backend) error {
	for _, v := range f.backends {
		if v.Name() == b.Name() {
			return &DuplicateBackendError{Backend: b}
		}
	}
	f.backends = append(f.backends, b)
	return nil
}

func (f *Facade) Backends() []Backend {
	return append([]Backend(nil), f.backends...)
}

// Flush delivers the buffered messages in order to every backend registered now, then switches to
// writing through. Flushing again only logs that it did nothing.
func (f *Facade) Flush() {
	s, ok := f.state.(*buffering)
	if !ok {
		f.logSelf(Debug, 1, "flushing multiple times is a no-op")
		return
	}
	f.state = flushed{}
	for _, msg := range s.msgs {
		f.writeAll(msg)
		f.alloc.Free(msg)
	}
	if f.lost > 0 {
		f.logSelf(Warn, 1, fmt.Sprintf("%d buffered log records did not fit into memory", f.lost))
		f.lost = 0
	}
}

func (f *Facade) Flushed() bool {
	_, ok := f.state.(flushed)
	return ok
}

// Buffered returns the number of messages waiting for Flush.
func (f *Facade) Buffered() int {
	if s, ok := f.state.(*buffering); ok {
		return len(s.msgs)
	}
	return 0
}

// BufferedMessages copies out the messages waiting for Flush.
func (f *Facade) BufferedMessages() []string {
	s, ok := f.state.(*buffering)
	if !ok {
		return nil
	}
	out := make([]string, len(s.msgs))
	for i, msg := range s.msgs {
		out[i] = string(msg)
	}
	return out
}
