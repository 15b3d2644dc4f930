package env

import (
	"fmt"

	"github.com/pkg/errors"
)

// Variant is the boot protocol the loader was started with.
type Variant int

const (
	Multiboot1 Variant = iota + 1
	Multiboot2
	XenPvh
)

// magic values the boot stub finds in a register at entry
const (
	MagicMultiboot1 = 0x2badb002
	MagicMultiboot2 = 0x36d76289
	MagicXenPvh     = 0x336ec578
)

func (v Variant) String() string {
	switch v {
	case Multiboot1:
		return "Multiboot1"
	case Multiboot2:
		return "Multiboot2"
	case XenPvh:
		return "XenPvh"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

type UnknownMagicError struct {
	Magic uint64
}

func (e *UnknownMagicError) Error() string {
	return fmt.Sprintf("unknown boot magic %#x", e.Magic)
}

// Classify maps a boot magic to its protocol. It never guesses.
func Classify(magic uint64) (Variant, error) {
	switch magic {
	case MagicMultiboot1:
		return Multiboot1, nil
	case MagicMultiboot2:
		return Multiboot2, nil
	case MagicXenPvh:
		return XenPvh, nil
	}
	return 0, &UnknownMagicError{Magic: magic}
}

// Environment is set once at entry and never changes.
type Environment struct {
	variant Variant
	infoPtr uint64
}

// Init records the boot environment. An unknown magic is fatal and panics.
func Init(magic, infoPtr uint64) *Environment {
	v, err := Classify(magic)
	if err != nil {
		panic(errors.Wrap(err, "cannot identify boot environment"))
	}
	return &Environment{variant: v, infoPtr: infoPtr}
}

func (e *Environment) Variant() Variant { return e.variant }

// InfoPtr is the physical address of the boot information the boot protocol handed over.
func (e *Environment) InfoPtr() uint64 { return e.infoPtr }

func (e *Environment) String() string {
	return fmt.Sprintf("%s, boot information at %#x", e.variant, e.infoPtr)
}
