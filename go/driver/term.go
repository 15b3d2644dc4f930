package driver

import (
	"bytes"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

var levelColors = map[string]string{
	"ERROR": ansi.ColorCode("red+b"),
	"WARN":  ansi.ColorCode("yellow+b"),
	"INFO":  ansi.ColorCode("green"),
	"DEBUG": ansi.ColorCode("cyan"),
	"TRACE": ansi.ColorCode("black+h"),
}

// Term is a host-side backend for formatted log lines. With Color set, the level tag is highlighted.
type Term struct {
	W     io.Writer
	Color bool
}

// NewStdoutTerm writes to stdout, coloring only when stdout is a terminal.
func NewStdoutTerm() *Term {
	fd := os.Stdout.Fd()
	color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return &Term{W: colorable.NewColorableStdout(), Color: color}
}

func (t *Term) Name() string { return "term" }

func (t *Term) Write(p []byte) (int, error) {
	if !t.Color {
		return t.W.Write(p)
	}
	if _, err := t.W.Write(Colorize(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Colorize highlights the level of every "[LEVEL file@line]: msg" line in p.
func Colorize(p []byte) []byte {
	var out bytes.Buffer
	for len(p) > 0 {
		line := p
		if i := bytes.IndexByte(p, '\n'); i >= 0 {
			line = p[:i+1]
		}
		p = p[len(line):]
		out.Write(colorLine(line))
	}
	return out.Bytes()
}

func colorLine(line []byte) []byte {
	if len(line) < 7 || line[0] != '[' {
		return line
	}
	tag := line[1:6]
	color, ok := levelColors[string(bytes.TrimLeft(tag, " "))]
	if !ok {
		return line
	}
	var out bytes.Buffer
	out.WriteByte('[')
	out.WriteString(color)
	out.Write(tag)
	out.WriteString(ansi.Reset)
	out.Write(line[6:])
	return out.Bytes()
}
