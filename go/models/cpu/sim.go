package cpu

import (
	"encoding/binary"
)

// Sim is a simulated machine: paged memory, a register file, memory hooks and an I/O port bus.
// It runs nothing by itself, code on the host drives it.
type Sim struct {
	*Mem
	*Regs
	*Hooks
	Ports *Ports
}

func NewSim(bits uint, order binary.ByteOrder, regs []int) *Sim {
	s := &Sim{
		Mem:   NewMem(bits, order),
		Regs:  NewRegs(bits, regs),
		Ports: NewPorts(),
	}
	s.Hooks = NewHooks(s, s.Mem)
	return s
}

func (s *Sim) Close() error {
	return nil
}

var _ Cpu = &Sim{}
