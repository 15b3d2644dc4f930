package models

import (
	"fmt"
	"sort"

	"github.com/lunixbochs/bootcorn/go/mem"
)

type Symbol struct {
	Name  string
	Value uint64
	// an optional symbol may be absent from an image
	Optional bool
}

func (s Symbol) String() string {
	return fmt.Sprintf("%-17s = 0x%016x", s.Name, s.Value)
}

// LinkerSymbols are the addresses the link step hands the loader. They are configuration: nothing at
// runtime computes or changes them. All of them are link addresses.
type LinkerSymbols struct {
	// stack region, begin inclusive and end exclusive
	StackBegin, StackEnd uint64
	// heap arena, begin inclusive and end exclusive
	HeapBegin, HeapEnd uint64

	LinkAddrBoot   uint64
	LinkAddrLoader uint64

	// page table backing memory owned by the boot stub
	BootMemPtL4   uint64
	BootMemPtL3Hi uint64
	BootMemPtL3Lo uint64
	BootMemPtL2Hi uint64
	BootMemPtL2Lo uint64
	BootMemPtL1Hi uint64
}

// symbol names as they appear in the loader image
const (
	SymStackBegin     = "stack_begin"
	SymStackEnd       = "stack_end"
	SymHeapBegin      = "heap_begin"
	SymHeapEnd        = "heap_end"
	SymLinkAddrBoot   = "LINK_ADDR_BOOT"
	SymLinkAddrLoader = "LINK_ADDR_LOADER"
	SymBootMemPtL4    = "boot_mem_pt_l4"
	SymBootMemPtL3Hi  = "boot_mem_pt_l3_hi"
	SymBootMemPtL3Lo  = "boot_mem_pt_l3_lo"
	SymBootMemPtL2Hi  = "boot_mem_pt_l2_hi"
	SymBootMemPtL2Lo  = "boot_mem_pt_l2_lo"
	SymBootMemPtL1Hi  = "boot_mem_pt_l1_hi"
)

// Fields maps every symbol name to the field holding it.
func (s *LinkerSymbols) Fields() map[string]*uint64 {
	return map[string]*uint64{
		SymStackBegin:     &s.StackBegin,
		SymStackEnd:       &s.StackEnd,
		SymHeapBegin:      &s.HeapBegin,
		SymHeapEnd:        &s.HeapEnd,
		SymLinkAddrBoot:   &s.LinkAddrBoot,
		SymLinkAddrLoader: &s.LinkAddrLoader,
		SymBootMemPtL4:    &s.BootMemPtL4,
		SymBootMemPtL3Hi:  &s.BootMemPtL3Hi,
		SymBootMemPtL3Lo:  &s.BootMemPtL3Lo,
		SymBootMemPtL2Hi:  &s.BootMemPtL2Hi,
		SymBootMemPtL2Lo:  &s.BootMemPtL2Lo,
		SymBootMemPtL1Hi:  &s.BootMemPtL1Hi,
	}
}

// Symbols lists every linker symbol, sorted by address.
func (s *LinkerSymbols) Symbols() []Symbol {
	var out []Symbol
	for name, p := range s.Fields() {
		out = append(out, Symbol{Name: name, Value: *p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value == out[j].Value {
			return out[i].Name < out[j].Name
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// BootPageTables lists the boot stub's page table symbols in the order they are reported.
func (s *LinkerSymbols) BootPageTables() []Symbol {
	return []Symbol{
		{Name: SymBootMemPtL4, Value: s.BootMemPtL4},
		{Name: SymBootMemPtL3Hi, Value: s.BootMemPtL3Hi},
		{Name: SymBootMemPtL3Lo, Value: s.BootMemPtL3Lo},
		{Name: SymBootMemPtL2Hi, Value: s.BootMemPtL2Hi},
		{Name: SymBootMemPtL2Lo, Value: s.BootMemPtL2Lo},
		{Name: SymBootMemPtL1Hi, Value: s.BootMemPtL1Hi},
	}
}

// Window derives the shared 2 MiB link window. The boot stub region ends after its last page table,
// the loader region after the stack or heap, whichever comes last.
func (s *LinkerSymbols) Window() *mem.Window {
	lowEnd := s.LinkAddrBoot
	for _, pt := range s.BootPageTables() {
		if end := pt.Value + mem.PageSize; end > lowEnd {
			lowEnd = end
		}
	}
	highEnd := s.StackEnd
	if s.HeapEnd > highEnd {
		highEnd = s.HeapEnd
	}
	return &mem.Window{
		LowBase: s.LinkAddrBoot, LowSize: lowEnd - s.LinkAddrBoot,
		HighBase: s.LinkAddrLoader, HighSize: highEnd - s.LinkAddrLoader,
	}
}

const (
	defaultLinkAddrBoot   = 0x100000
	defaultLinkAddrLoader = 0xffffffff88110000
	defaultStackSize      = 0x10000
	defaultHeapSize       = 0x40000
)

// DefaultSymbols is the layout the stock linker script produces.
func DefaultSymbols() *LinkerSymbols {
	pt := uint64(defaultLinkAddrBoot + mem.PageSize)
	loader := uint64(defaultLinkAddrLoader)
	return &LinkerSymbols{
		// canary word, usable stack, tail padding
		StackBegin: loader + 0x40000,
		StackEnd:   loader + 0x40000 + 8 + defaultStackSize + 8,
		HeapBegin:  loader + 0x60000,
		HeapEnd:    loader + 0x60000 + defaultHeapSize,

		LinkAddrBoot:   defaultLinkAddrBoot,
		LinkAddrLoader: loader,

		BootMemPtL4:   pt,
		BootMemPtL3Hi: pt + 1*mem.PageSize,
		BootMemPtL3Lo: pt + 2*mem.PageSize,
		BootMemPtL2Hi: pt + 3*mem.PageSize,
		BootMemPtL2Lo: pt + 4*mem.PageSize,
		BootMemPtL1Hi: pt + 5*mem.PageSize,
	}
}
