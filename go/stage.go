package bootcorn

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/arch/x86_64"
	"github.com/lunixbochs/bootcorn/go/mem"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/cpu"
	"github.com/lunixbochs/bootcorn/go/stack"
)

// Devices receive what the machine writes to its debug console and serial port. Nil leaves the
// port unattached.
type Devices struct {
	Debugcon io.Writer
	Serial   io.Writer
}

// Staged is the machine state the entry stub hands to the loader.
type Staged struct {
	Window *mem.Window
	// physical address of the shared 2 MiB window
	PhysBase uint64
	Stack    *stack.Stack
	UART     *cpu.UART16550
	Return   uint64
}

func (s *Staged) String() string {
	return fmt.Sprintf("window %#x-%#x, %s", s.PhysBase, s.PhysBase+WINDOW_SIZE, s.Stack)
}

// StackSize is the usable size of the stack the symbols describe: the region minus the canary word,
// rounded down to the alignment.
func StackSize(syms *models.LinkerSymbols) (uint64, error) {
	region := syms.StackEnd - syms.StackBegin
	if syms.StackEnd <= syms.StackBegin || region < stack.CanarySize+stack.MinSize {
		return 0, errors.Errorf("stack region %#x-%#x is too small", syms.StackBegin, syms.StackEnd)
	}
	return (region - stack.CanarySize) &^ (stack.Alignment - 1), nil
}

// Stage does what the entry stub does before calling into the loader: it backs the window the
// loader was placed in with memory, builds the stack with its canary, pushes the return address
// and attaches the console devices.
func Stage(m *Machine, syms *models.LinkerSymbols, offset int64, dev Devices) (*Staged, error) {
	if offset%WINDOW_ALIGN != 0 {
		return nil, errors.Errorf("load offset %s is not 2 MiB aligned", mem.FormatOffset(offset))
	}
	win := syms.Window()
	if err := win.Check(); err != nil {
		return nil, errors.Wrap(err, "bad link layout")
	}
	if syms.StackBegin%stack.Alignment != 0 {
		return nil, errors.Errorf("stack_begin %#x is not %d-byte aligned", syms.StackBegin, stack.Alignment)
	}
	size, err := StackSize(syms)
	if err != nil {
		return nil, err
	}
	physBase := int64(win.LowWindow()) + offset
	if physBase < 0 {
		return nil, errors.Errorf("load offset %s moves the window below zero", mem.FormatOffset(offset))
	}
	if err := m.MemMapProt(uint64(physBase), WINDOW_SIZE, cpu.PROT_ALL); err != nil {
		return nil, errors.Wrap(err, "MemMapProt() failed")
	}

	// the stub's own view of memory, independent of the loader's translator
	tr := mem.NewTranslator()
	tr.Configure(offset)
	phys := func(link uint64) uint64 { return win.HighToPhys(tr, link) }
	m.SetTranslate(phys)

	st := stack.New(m, phys, syms.StackBegin, size)
	if err := m.RegWrite(x86_64.RSP, st.AdjustedTop()); err != nil {
		return nil, errors.Wrap(err, "RegWrite(RSP) failed")
	}
	// the stub halts if the loader ever returns
	ret := syms.LinkAddrBoot
	if _, err := m.Push(ret); err != nil {
		return nil, errors.Wrap(err, "pushing return address failed")
	}

	staged := &Staged{Window: win, PhysBase: uint64(physBase), Stack: st, Return: ret}
	if dev.Debugcon != nil {
		if err := m.Ports.Attach(DEBUGCON_PORT, 1, cpu.NewSinkDevice(dev.Debugcon)); err != nil {
			return nil, err
		}
	}
	if dev.Serial != nil {
		staged.UART = cpu.NewUART16550(dev.Serial)
		if err := m.Ports.Attach(SERIAL_PORT, SERIAL_PORTS, staged.UART); err != nil {
			return nil, err
		}
	}
	return staged, nil
}

// EntryArgs is what the boot stub passes to the loader's entry point.
type EntryArgs struct {
	Magic      uint64
	InfoPtr    uint64
	LoadOffset int64
}

var entryRegs = []int{x86_64.RDI, x86_64.RSI, x86_64.RDX}

// Load places the arguments in the SysV argument registers.
func (a EntryArgs) Load(m *Machine) error {
	return m.RegWriteBatch(entryRegs, []uint64{a.Magic, a.InfoPtr, uint64(a.LoadOffset)})
}

// ReadEntryArgs reads the arguments back from the argument registers.
func ReadEntryArgs(m *Machine) (EntryArgs, error) {
	vals, err := m.RegReadBatch(entryRegs)
	if err != nil {
		return EntryArgs{}, err
	}
	return EntryArgs{Magic: vals[0], InfoPtr: vals[1], LoadOffset: int64(vals[2])}, nil
}
