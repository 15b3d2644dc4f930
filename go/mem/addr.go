package mem

import (
	"fmt"
)

// VirtAddr is a link-time address, as the loader was built to see it.
type VirtAddr uint64

// PhysAddr is where a byte actually sits in machine memory.
type PhysAddr uint64

func (v VirtAddr) String() string {
	return fmt.Sprintf("0x%016x", uint64(v))
}

func (p PhysAddr) String() string {
	return fmt.Sprintf("0x%016x", uint64(p))
}

// Level names a page table level in 4-level x86_64 paging, 1 being the page table, 4 the PML4.
type Level int

const (
	Level1 Level = iota + 1
	Level2
	Level3
	Level4
)

const (
	pageShift  = 12
	indexBits  = 9
	indexMask  = 1<<indexBits - 1
	entrySize  = 8
	PageSize   = 1 << pageShift
	HugeSize   = 1 << (pageShift + indexBits) // one level 2 entry
	hugeOffset = HugeSize - 1
)

func (l Level) valid() bool {
	return l >= Level1 && l <= Level4
}

// PTIndex returns the index into the page table of the given level that translates v.
func (v VirtAddr) PTIndex(l Level) uint64 {
	if !l.valid() {
		panic(fmt.Sprintf("invalid page table level %d", l))
	}
	shift := pageShift + indexBits*uint(l-1)
	return uint64(v) >> shift & indexMask
}

// PTOffset is PTIndex as a byte offset into the table.
func (v VirtAddr) PTOffset(l Level) uint64 {
	return v.PTIndex(l) * entrySize
}

// PageOffset is the offset into the 4 KiB page.
func (v VirtAddr) PageOffset() uint64 {
	return uint64(v) & (PageSize - 1)
}
