package env

import (
	"fmt"

	"github.com/lunixbochs/bootcorn/go/mem"
	"github.com/lunixbochs/bootcorn/go/models"
)

type SymbolRow struct {
	Name            string
	Low, High, Phys uint64
}

// Report is the memory map summary printed once the environment is known.
type Report struct {
	LinkAddr uint64
	LoadAddr uint64
	Offset   int64
	Symbols  []SymbolRow
}

// Describe reports where the loader was linked, where it ended up, and where the boot stub's page
// tables live in each view.
func Describe(tr *mem.Translator, win *mem.Window, syms *models.LinkerSymbols) *Report {
	r := &Report{
		LinkAddr: syms.LinkAddrBoot,
		LoadAddr: tr.VirtToPhys(syms.LinkAddrBoot),
		Offset:   tr.LoadOffset(),
	}
	for _, s := range syms.BootPageTables() {
		r.Symbols = append(r.Symbols, SymbolRow{
			Name: s.Name,
			Low:  s.Value,
			High: win.LowToHigh(s.Value),
			Phys: tr.VirtToPhys(s.Value),
		})
	}
	return r
}

func (r *Report) Header() []string {
	return []string{
		fmt.Sprintf("bootcorn expected load at 0x%014x (phys)", r.LinkAddr),
		fmt.Sprintf("           actual load at 0x%014x (phys)", r.LoadAddr),
		fmt.Sprintf("             with offset %s", mem.FormatOffset(r.Offset)),
	}
}

func (r *Report) Table() []string {
	lines := []string{
		"",
		"SYMBOL            |       VIRT (low) |        VIRT (high) |             PHYS",
	}
	for _, s := range r.Symbols {
		lines = append(lines, fmt.Sprintf("%-17s | 0x%014x | 0x%016x | 0x%014x", s.Name, s.Low, s.High, s.Phys))
	}
	return lines
}

func (r *Report) Lines() []string {
	return append(r.Header(), r.Table()...)
}
