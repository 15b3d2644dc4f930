package stack

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/arch/x86_64"
	"github.com/lunixbochs/bootcorn/go/models/cpu"
)

const (
	// Canary sits right below the usable stack and catches overflows.
	Canary      uint64 = 0x13371337_deadbeef
	CanarySize         = 8
	Alignment          = 16
	MinSize            = Alignment
	DefaultSize        = 0x10000

	// the first stack argument after the return address must be aligned
	FirstParameterOffset = 8
)

// fails to compile if DefaultSize drops below MinSize
const _ = uint(DefaultSize - MinSize)

// Translate maps a link address to the machine address backing it.
type Translate func(link uint64) uint64

type CanaryMismatchError struct {
	Expected, Actual uint64
}

func (e *CanaryMismatchError) Error() string {
	return fmt.Sprintf("stack canary mismatch: expected %#x, got %#x", e.Expected, e.Actual)
}

// Stack is a canary-guarded stack living in machine memory.
//
//	base                       bottom                    top
//	[ canary (8 bytes) ][ usable (size bytes) ......... ][ pad ]
//
// base is 16-byte aligned, so with a size that is a multiple of 16 the adjusted top is aligned as well.
type Stack struct {
	c    cpu.Cpu
	phys Translate
	base uint64
	size uint64

	watch *watch
}

// RegionSize is the number of bytes a stack with size usable bytes occupies.
func RegionSize(size uint64) uint64 {
	return (CanarySize + size + Alignment - 1) &^ (Alignment - 1)
}

func validate(base, size uint64) {
	if size < MinSize {
		panic(errors.Errorf("stack size %#x is below the minimum of %#x", size, MinSize))
	}
	if base%Alignment != 0 {
		panic(errors.Errorf("stack base %#x is not %d-byte aligned", base, Alignment))
	}
}

// New places a stack at base and writes its canary. That write is the only side effect.
func New(c cpu.Cpu, phys Translate, base, size uint64) *Stack {
	validate(base, size)
	s := &Stack{c: c, phys: phys, base: base, size: size}
	var buf [CanarySize]byte
	binary.LittleEndian.PutUint64(buf[:], Canary)
	if err := c.MemWrite(phys(base), buf[:]); err != nil {
		panic(errors.Wrap(err, "writing stack canary failed"))
	}
	return s
}

// Attach wraps a stack somebody else already constructed, such as the live one the entry stub runs on.
func Attach(c cpu.Cpu, phys Translate, base, size uint64) *Stack {
	validate(base, size)
	return &Stack{c: c, phys: phys, base: base, size: size}
}

// CanaryAddr is the link address of the canary word.
func (s *Stack) CanaryAddr() uint64 { return s.base }

// Bottom is the inclusive start of usable space.
func (s *Stack) Bottom() uint64 { return s.base + CanarySize }

// Top is the exclusive end of usable space.
func (s *Stack) Top() uint64 { return s.Bottom() + s.size }

// AdjustedTop is where the stack pointer goes before calling into code on this stack.
func (s *Stack) AdjustedTop() uint64 {
	return s.Top() - Alignment + FirstParameterOffset
}

func (s *Stack) UsableSize() uint64 { return s.size }

// CurrentCanary reads the canary word from memory every time it is called.
func (s *Stack) CurrentCanary() uint64 {
	var buf [CanarySize]byte
	if err := s.c.MemReadInto(buf[:], s.phys(s.base)); err != nil {
		panic(errors.Wrap(err, "reading stack canary failed"))
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (s *Stack) CheckCanary() error {
	if actual := s.CurrentCanary(); actual != Canary {
		return &CanaryMismatchError{Expected: Canary, Actual: actual}
	}
	return nil
}

func (s *Stack) StackPointer() uint64 {
	sp, err := s.c.RegRead(x86_64.RSP)
	if err != nil {
		panic(errors.Wrap(err, "reading stack pointer failed"))
	}
	return sp
}

func (s *Stack) Contains(sp uint64) bool {
	return sp >= s.Bottom() && sp < s.Top()
}

// AssertSanity panics unless the canary is intact and the stack pointer is inside the stack.
func (s *Stack) AssertSanity() {
	if err := s.CheckCanary(); err != nil {
		if s.watch != nil && s.watch.hit != nil {
			panic(errors.Wrap(err, s.watch.hit.String()))
		}
		panic(err)
	}
	sp := s.StackPointer()
	if !s.Contains(sp) {
		panic(errors.Errorf("stack pointer %#x outside of stack [%#x, %#x)", sp, s.Bottom(), s.Top()))
	}
}

// Usage is the number of bytes between the stack pointer and the top, for diagnostics.
func (s *Stack) Usage() uint64 {
	return s.Top() - s.StackPointer()
}

func (s *Stack) String() string {
	return fmt.Sprintf("stack [%#x, %#x) %#x bytes, canary at %#x", s.Bottom(), s.Top(), s.size, s.base)
}
