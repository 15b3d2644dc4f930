package cpu

import (
	"fmt"
	"strings"
)

// Page is one mapping of simulated physical memory.
type Page struct {
	Addr uint64
	Size uint64
	Prot int
	Data []byte
}

func protString(prot int) string {
	b := []byte("---")
	for i, c := range "rwx" {
		if prot&(1<<uint(i)) != 0 {
			b[i] = byte(c)
		}
	}
	return string(b)
}

func (p *Page) String() string {
	return fmt.Sprintf("%#x-%#x %s", p.Addr, p.Addr+p.Size, protString(p.Prot))
}

func (p *Page) Contains(addr uint64) bool {
	return addr >= p.Addr && addr-p.Addr < p.Size
}

// Intersect clips addr:size to the page. ok is false if they do not overlap.
func (p *Page) Intersect(addr, size uint64) (start, n uint64, ok bool) {
	start, end := p.Addr, p.Addr+p.Size
	if addr > start {
		start = addr
	}
	if addr+size < end {
		end = addr + size
	}
	if end <= start {
		return 0, 0, false
	}
	return start, end - start, true
}

func (p *Page) Overlaps(addr, size uint64) bool {
	_, _, ok := p.Intersect(addr, size)
	return ok
}

// slice returns a page for addr:size sharing p's memory.
func (p *Page) slice(addr, size uint64) *Page {
	o := addr - p.Addr
	return &Page{Addr: addr, Size: size, Prot: p.Prot, Data: p.Data[o : o+size : o+size]}
}

// Pages is kept sorted by address and never overlaps.
type Pages []*Page

func (p Pages) Len() int           { return len(p) }
func (p Pages) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p Pages) Less(i, j int) bool { return p[i].Addr < p[j].Addr }

func (p Pages) String() string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}

// index of the page containing addr, or -1
func (p Pages) bsearch(addr uint64) int {
	lo, hi := 0, len(p)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch pg := p[mid]; {
		case pg.Contains(addr):
			return mid
		case addr < pg.Addr:
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return -1
}

func (p Pages) Find(addr uint64) *Page {
	if i := p.bsearch(addr); i >= 0 {
		return p[i]
	}
	return nil
}

// FindRange returns every page overlapping addr:size, in address order.
func (p Pages) FindRange(addr, size uint64) Pages {
	var ret Pages
	for _, v := range p {
		if v.Overlaps(addr, size) {
			ret = append(ret, v)
		}
	}
	return ret
}
