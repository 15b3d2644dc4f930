package logger

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// The process-wide sink behind the level helpers. It has no locking: the boot core runs on a single
// core with interrupts off and never re-enters the logger, so there is only ever one caller. Anything
// that breaks that assumption needs a mutex here first.
var global struct {
	facade *Facade
	// records logged before Init, which had nowhere to go
	early int
}

// Init starts a fresh log for this boot, buffering in alloc until Flush.
func Init(alloc Allocator) *Facade {
	global.facade = New(alloc)
	if global.early > 0 {
		global.facade.logSelf(Warn, 1, fmt.Sprintf("%d log records were dropped before the logger was initialized", global.early))
		global.early = 0
	}
	return global.facade
}

// Default returns the facade Init created, or nil.
func Default() *Facade {
	return global.facade
}

func AddBackend(b Backend) error {
	if global.facade == nil {
		return errors.New("logger not initialized")
	}
	return global.facade.AddBackend(b)
}

func Flush() {
	if global.facade != nil {
		global.facade.Flush()
	}
}

func SetLevel(l Level) {
	if global.facade != nil {
		global.facade.SetLevel(l)
	}
}

// Logf logs at level, attributing the record to the function depth frames above the caller.
func Logf(depth int, level Level, format string, args ...interface{}) {
	if global.facade == nil {
		global.early++
		return
	}
	if !global.facade.Enabled(level) {
		return
	}
	r := &Record{Level: level, Message: fmt.Sprintf(format, args...)}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		r.File, r.Line = filepath.Base(file), line
	}
	global.facade.Log(r)
}

func Errorf(format string, args ...interface{}) { Logf(1, Error, format, args...) }
func Warnf(format string, args ...interface{})  { Logf(1, Warn, format, args...) }
func Infof(format string, args ...interface{})  { Logf(1, Info, format, args...) }
func Debugf(format string, args ...interface{}) { Logf(1, Debug, format, args...) }
func Tracef(format string, args ...interface{}) { Logf(1, Trace, format, args...) }
