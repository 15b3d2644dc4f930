package models

import (
	"testing"
)

func TestDefaultSymbols(t *testing.T) {
	s := DefaultSymbols()
	w := s.Window()
	if err := w.Check(); err != nil {
		t.Fatal(err)
	}
	if w.LowSize != 0x7000 || w.HighSize != 0xa0000 {
		t.Fatalf("unexpected window %+v", *w)
	}
	if s.StackBegin%16 != 0 || (s.StackEnd-s.StackBegin)%16 != 0 {
		t.Fatalf("stack region %#x-%#x is not aligned", s.StackBegin, s.StackEnd)
	}
	if !w.InHigh(s.StackBegin) || !w.InHigh(s.HeapEnd-1) || !w.InLow(s.BootMemPtL1Hi) {
		t.Fatal("symbols outside the window")
	}
}

func TestSymbolFields(t *testing.T) {
	var s LinkerSymbols
	fields := s.Fields()
	if len(fields) != 12 {
		t.Fatalf("%d fields", len(fields))
	}
	*fields[SymHeapEnd] = 0x1234
	if s.HeapEnd != 0x1234 {
		t.Fatal("Fields() does not point into the struct")
	}
	syms := DefaultSymbols().Symbols()
	if syms[0].Name != SymLinkAddrBoot || syms[len(syms)-1].Name != SymHeapEnd {
		t.Fatalf("Symbols() not sorted: %v", syms)
	}
}

func TestSymbolString(t *testing.T) {
	var tests = []struct {
		sym  Symbol
		want string
	}{
		{Symbol{Name: "link_addr_boot", Value: 0x100000}, "link_addr_boot    = 0x0000000000100000"},
		{Symbol{Name: "heap_begin", Value: 0xffffffff88170000}, "heap_begin        = 0xffffffff88170000"},
	}
	for _, test := range tests {
		if got := test.sym.String(); got != test.want {
			t.Errorf("got %q, want %q", got, test.want)
		}
	}
}
