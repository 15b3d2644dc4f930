// Package cmdline parses the loader command line: [--load=module] [--loggers=serial,debugcon]
package cmdline

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	loadRe    = regexp.MustCompile(`--load=(?P<load>[A-Za-z0-9_.-]+)`)
	loggersRe = regexp.MustCompile(`--loggers=(?P<loggers>[a-z]+(,[a-z]+)*)`)
)

type Logger int

const (
	Debugcon Logger = iota + 1
	Serial
)

func (l Logger) String() string {
	switch l {
	case Debugcon:
		return "debugcon"
	case Serial:
		return "serial"
	}
	return "unknown"
}

func ParseLogger(name string) (Logger, bool) {
	switch name {
	case "debugcon":
		return Debugcon, true
	case "serial":
		return Serial, true
	}
	return 0, false
}

type Args struct {
	// module to load as the kernel
	Load string
	// in command line order, unknown names dropped
	Loggers []Logger
}

func (a *Args) String() string {
	var parts []string
	if a.Load != "" {
		parts = append(parts, "--load="+a.Load)
	}
	if len(a.Loggers) > 0 {
		names := make([]string, len(a.Loggers))
		for i, l := range a.Loggers {
			names[i] = l.String()
		}
		parts = append(parts, "--loggers="+strings.Join(names, ","))
	}
	return strings.Join(parts, " ")
}

// Parse extracts the options it knows from cmdline and ignores everything else.
// An option that is present with a value that doesn't match its syntax is an error.
func Parse(cmdline string) (*Args, error) {
	args := &Args{}
	if m := loadRe.FindStringSubmatch(cmdline); m != nil {
		args.Load = m[loadRe.SubexpIndex("load")]
	} else if strings.Contains(cmdline, "--load=") {
		return nil, errors.Errorf("malformed --load= in %q", cmdline)
	}
	if m := loggersRe.FindStringSubmatch(cmdline); m != nil {
		for _, name := range strings.Split(m[loggersRe.SubexpIndex("loggers")], ",") {
			if l, ok := ParseLogger(name); ok {
				args.Loggers = append(args.Loggers, l)
			}
		}
	} else if strings.Contains(cmdline, "--loggers=") {
		return nil, errors.Errorf("malformed --loggers= in %q", cmdline)
	}
	return args, nil
}
