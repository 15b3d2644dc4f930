package models

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// PrintFlags lists flags with their defaults in one column and the usage text wrapped to 80 columns.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	heads := make([]string, len(flags))
	width := 0
	for i, f := range flags {
		head := "-" + f.Name
		if f.DefValue != "" {
			head += " (" + f.DefValue + ")"
		}
		heads[i] = head
		if len(head) > width {
			width = len(head)
		}
	}
	indent := strings.Repeat(" ", width+4)
	textWidth := 80 - len(indent)
	if textWidth < 20 {
		textWidth = 20
	}
	for i, f := range flags {
		lines := wrap(f.Usage, textWidth)
		fmt.Fprintf(w, "  %-*s  %s\n", width, heads[i], lines[0])
		for _, l := range lines[1:] {
			fmt.Fprintf(w, "%s%s\n", indent, l)
		}
	}
}

// wrap breaks s into lines of at most width bytes at spaces, keeping its own newlines.
func wrap(s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			if line != "" && len(line)+1+len(word) > width {
				lines = append(lines, line)
				line = ""
			}
			if line != "" {
				line += " "
			}
			line += word
		}
		lines = append(lines, line)
	}
	return lines
}
