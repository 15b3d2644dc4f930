package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"
)

var (
	colorSame = ansi.ColorCode("default:default")
	colorNew  = ansi.ColorCode("default+bu:default")
)

// StatusDiff compares register dumps against a baseline, so a trace can show what the boot touched.
type StatusDiff struct {
	Arch *Arch
	base map[int]uint64
}

func (s *StatusDiff) dump(c RegReader) ([]RegVal, error) {
	regs, err := s.Arch.RegDump(c)
	if err != nil {
		return nil, err
	}
	base := make(map[int]uint64, len(regs))
	for _, r := range regs {
		base[r.Enum] = r.Val
	}
	s.base = base
	return regs, nil
}

// Mark records the current registers as the baseline for the next Changes call.
func (s *StatusDiff) Mark(c RegReader) error {
	_, err := s.dump(c)
	return err
}

// Changes compares the registers with the baseline, then makes them the new baseline.
func (s *StatusDiff) Changes(c RegReader, onlyChanged bool) (*Changes, error) {
	old := s.base
	regs, err := s.dump(c)
	if err != nil {
		return nil, err
	}
	cs := &Changes{Digits: s.Arch.Bits / 4}
	for _, r := range regs {
		ch := &Change{Enum: r.Enum, Name: r.Name, Old: old[r.Enum], New: r.Val}
		if !onlyChanged || ch.Changed() {
			cs.Changes = append(cs.Changes, ch)
		}
	}
	return cs, nil
}

type Change struct {
	Enum     int
	Name     string
	Old, New uint64
}

func (c *Change) Changed() bool {
	return c.Old != c.New
}

// ChangeMask is a run of hex digits that either all changed or all stayed.
type ChangeMask struct {
	Old, New string
	Changed  bool
}

// Mask splits the hex digits of the old and new value into runs of changed and unchanged digits.
func (c *Change) Mask(digits int) []ChangeMask {
	newHex := fmt.Sprintf("%0*x", digits, c.New)
	oldHex := fmt.Sprintf("%0*x", digits, c.Old)
	var masks []ChangeMask
	start := 0
	for i := 1; i <= len(newHex); i++ {
		if i < len(newHex) && (newHex[i] != oldHex[i]) == (newHex[start] != oldHex[start]) {
			continue
		}
		masks = append(masks, ChangeMask{
			Old:     oldHex[start:i],
			New:     newHex[start:i],
			Changed: newHex[start] != oldHex[start],
		})
		start = i
	}
	return masks
}

// Format renders the register as "name 0xvalue". A changed register is marked with '+', or with
// color, by highlighting the digits that changed.
func (c *Change) Format(digits int, color bool) string {
	if !c.Changed() {
		return fmt.Sprintf("  %4s 0x%0*x", c.Name, digits, c.New)
	}
	if !color {
		return fmt.Sprintf("+ %4s 0x%0*x", c.Name, digits, c.New)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  %s%4s%s 0x", colorNew, c.Name, ansi.Reset)
	for _, m := range c.Mask(digits) {
		if m.Changed {
			b.WriteString(colorNew)
		} else {
			b.WriteString(colorSame)
		}
		b.WriteString(m.New)
	}
	b.WriteString(ansi.Reset)
	return b.String()
}

type Changes struct {
	Digits  int
	Changes []*Change
}

// perRow registers are printed on each line of String.
const perRow = 4

func (cs *Changes) String(color bool) string {
	var b strings.Builder
	for i, c := range cs.Changes {
		b.WriteString(c.Format(cs.Digits, color))
		if i%perRow == perRow-1 || i == len(cs.Changes)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func (cs *Changes) Count() int {
	n := 0
	for _, c := range cs.Changes {
		if c.Changed() {
			n++
		}
	}
	return n
}

func (cs *Changes) Find(enum int) *Change {
	for _, c := range cs.Changes {
		if c.Enum == enum {
			return c
		}
	}
	return nil
}
