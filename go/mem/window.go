package mem

import (
	"github.com/pkg/errors"
)

// Window pairs the boot stub region (low) with the loader region (high). Both are linked into the same
// 2 MiB physical window, so every byte of one is reachable through the other's link base.
type Window struct {
	LowBase, LowSize   uint64
	HighBase, HighSize uint64
}

// base of the 2 MiB window each region is linked into
func (w *Window) lowWindow() uint64  { return w.LowBase &^ hugeOffset }
func (w *Window) highWindow() uint64 { return w.HighBase &^ hugeOffset }

// LowWindow is the link address of the first byte of the shared 2 MiB window, as the boot stub sees it.
func (w *Window) LowWindow() uint64 { return w.lowWindow() }

func (w *Window) LowToHigh(low uint64) uint64 {
	return FoldToHighWindow(low, w.highWindow())
}

func (w *Window) HighToLow(high uint64) uint64 {
	return FoldToLowWindow(high, w.lowWindow())
}

// HighToPhys translates a loader address through its boot stub alias, the only region the load offset applies to.
func (w *Window) HighToPhys(t *Translator, high uint64) uint64 {
	return t.VirtToPhys(w.HighToLow(high))
}

func (w *Window) InLow(addr uint64) bool {
	return addr >= w.LowBase && addr-w.LowBase < w.LowSize
}

func (w *Window) InHigh(addr uint64) bool {
	return addr >= w.HighBase && addr-w.HighBase < w.HighSize
}

// ToPhys translates an address from either region.
func (w *Window) ToPhys(t *Translator, addr uint64) (uint64, error) {
	switch {
	case w.InLow(addr):
		return t.VirtToPhys(addr), nil
	case w.InHigh(addr):
		return w.HighToPhys(t, addr), nil
	}
	return 0, errors.Errorf("%#x is outside both link regions", addr)
}

// Check validates the layout the folding arithmetic depends on. The boot path never calls it;
// it is for tooling inspecting a build.
func (w *Window) Check() error {
	regions := []struct {
		name       string
		base, size uint64
	}{
		{"boot", w.LowBase, w.LowSize},
		{"loader", w.HighBase, w.HighSize},
	}
	for _, r := range regions {
		if r.size == 0 {
			return errors.Errorf("%s region is empty", r.name)
		}
		if r.size >= HugeSize {
			return errors.Errorf("%s region is %#x bytes, must be below 2 MiB", r.name, r.size)
		}
		if r.base&^hugeOffset != (r.base+r.size-1)&^hugeOffset {
			return errors.Errorf("%s region %#x(%#x) crosses a 2 MiB boundary", r.name, r.base, r.size)
		}
	}
	lo, hi := w.LowBase&hugeOffset, w.HighBase&hugeOffset
	if lo < hi+w.HighSize && hi < lo+w.LowSize {
		return errors.Errorf("boot and loader regions collide inside the 2 MiB window (%#x vs %#x)", lo, hi)
	}
	return nil
}
