package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

type command struct {
	name, desc string
	main       func(args []string)
}

var commands = make(map[string]*command)

// Register adds a subcommand. main receives argv with the program and command name joined as argv[0].
func Register(name, desc string, main func(args []string)) {
	commands[name] = &command{name, desc, main}
}

// Usage lists the registered subcommands.
func Usage(w io.Writer, prog string) {
	var names []string
	pad := 0
	for name := range commands {
		names = append(names, name)
		if len(name) > pad {
			pad = len(name)
		}
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-*s | %s\n", pad, name, commands[name].desc)
	}
	fmt.Fprintf(w, "\nExample: %s boot -v -level trace -cmdline --loggers=debugcon,serial\n\n", prog)
}

// Dispatch runs the subcommand named by argv[1]. It returns false if there is none.
func Dispatch(argv []string, stderr io.Writer) bool {
	if len(argv) < 2 {
		Usage(stderr, argv[0])
		return false
	}
	cmd, ok := commands[argv[1]]
	if !ok {
		fmt.Fprintf(stderr, "Command '%s' not found.\n\n", argv[1])
		Usage(stderr, argv[0])
		return false
	}
	args := append([]string{strings.Join(argv[:2], " ")}, argv[2:]...)
	cmd.main(args)
	return true
}

func Main() {
	if !Dispatch(os.Args, os.Stderr) {
		os.Exit(1)
	}
}
