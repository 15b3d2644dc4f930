package cpu

import (
	"fmt"
	"sort"
)

// MemError is a failed access. Enum is one of the MEM_* error values hooks receive.
type MemError struct {
	Addr uint64
	Size int
	Enum int
}

var memErrors = map[int]string{
	MEM_WRITE_UNMAPPED: "unmapped write",
	MEM_READ_UNMAPPED:  "unmapped read",
	MEM_FETCH_UNMAPPED: "unmapped fetch",
	MEM_WRITE_PROT:     "protected write",
	MEM_READ_PROT:      "protected read",
	MEM_FETCH_PROT:     "protected exec",
}

func (m *MemError) Error() string {
	reason, ok := memErrors[m.Enum]
	if !ok {
		reason = "memory error"
	}
	return fmt.Sprintf("%s at %#x(%d)", reason, m.Addr, m.Size)
}

// MemSim stands in for physical memory.
type MemSim struct {
	Mem Pages
}

// carve cuts the pages at the edges of addr:size. Pieces inside the range are returned separately
// from the rest, and both keep sharing the original memory.
func (m *MemSim) carve(addr, size uint64) (outside, inside Pages) {
	end := addr + size
	for _, p := range m.Mem {
		start, n, ok := p.Intersect(addr, size)
		if !ok {
			outside = append(outside, p)
			continue
		}
		if p.Addr < start {
			outside = append(outside, p.slice(p.Addr, start-p.Addr))
		}
		inside = append(inside, p.slice(start, n))
		if pend := p.Addr + p.Size; pend > end {
			outside = append(outside, p.slice(end, pend-end))
		}
	}
	return outside, inside
}

// RangeValid reports whether addr:size is mapped without holes, and whether all of it allows prot.
func (m *MemSim) RangeValid(addr, size uint64, prot int) (mapped, allowed bool) {
	end := addr + size
	next := addr
	allowed = true
	for i := m.Mem.bsearch(addr); i >= 0 && i < len(m.Mem); i++ {
		p := m.Mem[i]
		if !p.Contains(next) {
			break
		}
		if prot != 0 && p.Prot&prot != prot {
			allowed = false
		}
		next = p.Addr + p.Size
		if next >= end {
			return true, allowed
		}
	}
	return false, false
}

// Map replaces whatever is mapped at addr:size with a fresh page. Unless zero is set, bytes that
// were already mapped there are carried over.
func (m *MemSim) Map(addr, size uint64, prot int, zero bool) *Page {
	page := &Page{Addr: addr, Size: size, Prot: prot, Data: make([]byte, size)}
	outside, inside := m.carve(addr, size)
	if !zero {
		for _, p := range inside {
			copy(page.Data[p.Addr-addr:], p.Data)
		}
	}
	m.Mem = append(outside, page)
	sort.Sort(m.Mem)
	return page
}

func (m *MemSim) Prot(addr, size uint64, prot int) {
	outside, inside := m.carve(addr, size)
	for _, p := range inside {
		p.Prot = prot
	}
	m.Mem = append(outside, inside...)
	sort.Sort(m.Mem)
}

func (m *MemSim) Unmap(addr, size uint64) {
	m.Mem, _ = m.carve(addr, size)
}

func (m *MemSim) check(addr uint64, n, prot int, write bool) error {
	mapped, allowed := m.RangeValid(addr, uint64(n), prot)
	if mapped && allowed {
		return nil
	}
	var enum int
	switch {
	case write && !mapped:
		enum = MEM_WRITE_UNMAPPED
	case write:
		enum = MEM_WRITE_PROT
	case prot&PROT_EXEC != 0 && !mapped:
		enum = MEM_FETCH_UNMAPPED
	case prot&PROT_EXEC != 0:
		enum = MEM_FETCH_PROT
	case !mapped:
		enum = MEM_READ_UNMAPPED
	default:
		enum = MEM_READ_PROT
	}
	return &MemError{Addr: addr, Size: n, Enum: enum}
}

// each walks the page memory behind addr:n, which must be mapped.
func (m *MemSim) each(addr uint64, n int, fn func(off int, b []byte)) {
	off := 0
	for i := m.Mem.bsearch(addr); i >= 0 && i < len(m.Mem) && off < n; i++ {
		p := m.Mem[i]
		b := p.Data[addr+uint64(off)-p.Addr:]
		if len(b) > n-off {
			b = b[:n-off]
		}
		fn(off, b)
		off += len(b)
	}
}

// Read fills p from addr. A non-zero prot must be allowed by every page touched.
func (m *MemSim) Read(addr uint64, p []byte, prot int) error {
	if err := m.check(addr, len(p), prot, false); err != nil {
		return err
	}
	m.each(addr, len(p), func(off int, b []byte) { copy(p[off:], b) })
	return nil
}

func (m *MemSim) Write(addr uint64, p []byte, prot int) error {
	if err := m.check(addr, len(p), prot, true); err != nil {
		return err
	}
	m.each(addr, len(p), func(off int, b []byte) { copy(b, p[off:]) })
	return nil
}

// Slice returns the backing bytes of addr:size without copying. The range must sit in one page.
func (m *MemSim) Slice(addr, size uint64) ([]byte, error) {
	p := m.Mem.Find(addr)
	if p == nil || addr+size > p.Addr+p.Size {
		return nil, &MemError{Addr: addr, Size: int(size), Enum: MEM_READ_UNMAPPED}
	}
	o := addr - p.Addr
	return p.Data[o : o+size : o+size], nil
}
