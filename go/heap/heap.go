package heap

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/pkg/errors"
)

var (
	ErrOutOfMemory    = errors.New("out of memory")
	ErrNotInitialized = errors.New("heap not initialized")
)

// every allocation is rounded up to a granule and starts on one
const Granule = 16

type span struct {
	off, size int
}

// Heap is a first-fit free list allocator over one arena. The arena usually aliases machine
// memory (see cpu.Cpu.MemSlice), so whatever is allocated is visible to the machine as well.
//
// Init binds the arena and has no double-init detection: calling it again silently forgets every
// outstanding allocation. The boot sequence has exactly one call site.
type Heap struct {
	arena  []byte
	free   []span      // sorted by offset, never adjacent
	used   map[int]int // offset -> rounded size
	allocs int
}

func New() *Heap {
	return &Heap{}
}

func (h *Heap) Init(arena []byte) {
	size := len(arena) &^ (Granule - 1)
	h.arena = arena[:size:size]
	h.free = []span{{0, size}}
	h.used = make(map[int]int)
	h.allocs = 0
}

func (h *Heap) Initialized() bool {
	return h.arena != nil
}

func round(size int) int {
	return (size + Granule - 1) &^ (Granule - 1)
}

// Alloc returns a zeroed block of size bytes.
func (h *Heap) Alloc(size int) ([]byte, error) {
	if !h.Initialized() {
		return nil, ErrNotInitialized
	}
	if size <= 0 {
		return nil, errors.Errorf("invalid allocation size %d", size)
	}
	need := round(size)
	for i, s := range h.free {
		if s.size < need {
			continue
		}
		if s.size == need {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i] = span{s.off + need, s.size - need}
		}
		h.used[s.off] = need
		h.allocs++
		b := h.arena[s.off : s.off+size : s.off+need]
		for j := range b {
			b[j] = 0
		}
		return b, nil
	}
	return nil, errors.Wrapf(ErrOutOfMemory, "allocating %d bytes (%d free)", size, h.Stats().Free)
}

func (h *Heap) offset(b []byte) (int, bool) {
	if cap(b) == 0 || len(h.arena) == 0 {
		return 0, false
	}
	start := uintptr(unsafe.Pointer(&h.arena[0]))
	p := uintptr(unsafe.Pointer(&b[:1][0]))
	if p < start || p >= start+uintptr(len(h.arena)) {
		return 0, false
	}
	return int(p - start), true
}

// Free returns a block from Alloc to the heap, merging it with free neighbours.
func (h *Heap) Free(b []byte) error {
	if !h.Initialized() {
		return ErrNotInitialized
	}
	off, ok := h.offset(b)
	if !ok {
		return errors.New("freeing memory that does not belong to the heap")
	}
	size, ok := h.used[off]
	if !ok {
		return errors.Errorf("freeing %#x which is not allocated", off)
	}
	delete(h.used, off)

	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].off > off })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = span{off, size}
	// merge right, then left
	if i+1 < len(h.free) && h.free[i].off+h.free[i].size == h.free[i+1].off {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].off+h.free[i-1].size == h.free[i].off {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
	return nil
}

type Stats struct {
	Size, Used, Free int
	// largest single allocation that would currently succeed
	Largest int
	// live allocations, and allocations made since Init
	Live, Allocs int
}

func (s Stats) String() string {
	return fmt.Sprintf("heap: %#x bytes, %#x used, %#x free (largest %#x), %d live allocations (%d total)",
		s.Size, s.Used, s.Free, s.Largest, s.Live, s.Allocs)
}

func (h *Heap) Stats() Stats {
	st := Stats{Size: len(h.arena), Live: len(h.used), Allocs: h.allocs}
	for _, s := range h.free {
		st.Free += s.size
		if s.size > st.Largest {
			st.Largest = s.size
		}
	}
	st.Used = st.Size - st.Free
	return st
}
