package mem

import (
	"fmt"

	"github.com/pkg/errors"
)

// Translator turns link addresses into physical ones using the load offset the entry stub measured.
// It is configured once per boot and read-only afterwards.
type Translator struct {
	offset     int64
	configured bool
}

func NewTranslator() *Translator {
	return &Translator{}
}

// Configure sets the load offset. Configuring twice is a fatal double-init and panics.
func (t *Translator) Configure(loadOffset int64) {
	if t.configured {
		panic(errors.Errorf("load offset already configured (%s), refusing %s",
			FormatOffset(t.offset), FormatOffset(loadOffset)))
	}
	t.offset = loadOffset
	t.configured = true
}

func (t *Translator) Configured() bool {
	return t.configured
}

// LoadOffset panics if the translator was never configured.
func (t *Translator) LoadOffset() int64 {
	if !t.configured {
		panic(errors.New("load offset read before it was configured"))
	}
	return t.offset
}

// VirtToPhys adds the load offset with two's complement wraparound, so a negative offset moves the address down.
func (t *Translator) VirtToPhys(link uint64) uint64 {
	return uint64(int64(link) + t.LoadOffset())
}

func (t *Translator) Phys(v VirtAddr) PhysAddr {
	return PhysAddr(t.VirtToPhys(uint64(v)))
}

// FoldToHighWindow returns the alias of a boot stub address inside the loader's window.
// Both regions must be smaller than 2 MiB. That is guaranteed by the link layout and not checked.
func FoldToHighWindow(low, highBase uint64) uint64 {
	return highBase + low%HugeSize
}

// FoldToLowWindow is the inverse of FoldToHighWindow.
func FoldToLowWindow(high, lowBase uint64) uint64 {
	return lowBase + high%HugeSize
}

// FormatOffset prints sign and magnitude, so -0x200000 doesn't come out as 0xffffffffffe00000.
// Positive offsets get a leading space to line up with negative ones.
func FormatOffset(off int64) string {
	sign := " "
	mag := uint64(off)
	if off < 0 {
		sign = "-"
		// also right for math.MinInt64
		mag = -mag
	}
	return fmt.Sprintf("%s%#x", sign, mag)
}
