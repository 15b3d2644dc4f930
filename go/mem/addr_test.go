package mem

import (
	"testing"
)

func TestPageTableIndices(t *testing.T) {
	addr := VirtAddr(0xdeadbeef13371337)
	indices := []uint64{369, 153, 444, 381}
	offsets := []uint64{0xb88, 0x4c8, 0xde0, 0xbe8}
	for i, l := range []Level{Level1, Level2, Level3, Level4} {
		if got := addr.PTIndex(l); got != indices[i] {
			t.Errorf("PTIndex(%d) = %d, expecting %d", l, got, indices[i])
		}
		if got := addr.PTOffset(l); got != offsets[i] {
			t.Errorf("PTOffset(%d) = %#x, expecting %#x", l, got, offsets[i])
		}
	}
	if addr.PageOffset() != 0x337 {
		t.Errorf("PageOffset() = %#x", addr.PageOffset())
	}
	mustPanic(t, "PTIndex(0)", func() { addr.PTIndex(0) })
	mustPanic(t, "PTIndex(5)", func() { addr.PTIndex(5) })
}

func TestAddrString(t *testing.T) {
	if s := VirtAddr(0x100000).String(); s != "0x0000000000100000" {
		t.Errorf("VirtAddr.String() = %s", s)
	}
	if s := PhysAddr(0xffe00000).String(); s != "0x00000000ffe00000" {
		t.Errorf("PhysAddr.String() = %s", s)
	}
}
