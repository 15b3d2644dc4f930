package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type Level int

const (
	Error Level = iota + 1
	Warn
	Info
	Debug
	Trace
)

var levelNames = []string{"", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (l Level) String() string {
	if l >= Error && l <= Trace {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames[1:] {
		if strings.EqualFold(s, name) {
			return Level(i + 1), nil
		}
	}
	return 0, errors.Errorf("unknown log level %q", s)
}

// Record is one log statement. File and Line are zero when the origin is unknown.
type Record struct {
	Level   Level
	File    string
	Line    int
	Message string
}

// Format renders r as "[LEVEL FILE@LINE]: MESSAGE\n" with the level right-aligned.
func Format(w io.Writer, r *Record) error {
	file := r.File
	if file == "" {
		file = "<unknown>"
	}
	_, err := fmt.Fprintf(w, "[%5s %s@%d]: %s\n", r.Level, file, r.Line, r.Message)
	return err
}

func (r *Record) String() string {
	var b strings.Builder
	Format(&b, r)
	return b.String()
}
