package bootcorn

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/arch/x86_64"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/cpu"
)

// Machine is the x86_64 machine the boot core runs on: a cpu.Cpu plus its port bus.
type Machine struct {
	cpu.Cpu
	Ports *cpu.Ports

	arch  *models.Arch
	Bsz   int
	order binary.ByteOrder
	// link address to machine address, for stack accesses
	phys func(uint64) uint64
}

func NewMachine(c cpu.Cpu, ports *cpu.Ports) *Machine {
	return &Machine{
		Cpu:   c,
		Ports: ports,
		arch:  x86_64.Arch,
		Bsz:   x86_64.Arch.Bits / 8,
		order: binary.LittleEndian,
		phys:  func(addr uint64) uint64 { return addr },
	}
}

// NewSimMachine creates a machine backed by the simulator.
func NewSimMachine() *Machine {
	sim := cpu.NewSim(uint(x86_64.Arch.Bits), binary.LittleEndian, x86_64.Arch.RegEnums())
	return NewMachine(sim, sim.Ports)
}

func (m *Machine) Arch() *models.Arch {
	return m.arch
}

func (m *Machine) Bits() uint {
	return uint(m.arch.Bits)
}

func (m *Machine) ByteOrder() binary.ByteOrder {
	return m.order
}

// SetTranslate sets how stack addresses in SP are turned into machine addresses.
func (m *Machine) SetTranslate(phys func(uint64) uint64) {
	m.phys = phys
}

func (m *Machine) PackAddr(buf []byte, n uint64) ([]byte, error) {
	return cpu.PackUint(m.order, m.Bsz, buf, n)
}

func (m *Machine) UnpackAddr(buf []byte) uint64 {
	n, err := cpu.UnpackUint(m.order, m.Bsz, buf)
	if err != nil {
		panic(err)
	}
	return n
}

func (m *Machine) PopBytes(p []byte) error {
	sp, err := m.RegRead(m.arch.SP)
	if err != nil {
		return err
	}
	if err := m.MemReadInto(p, m.phys(sp)); err != nil {
		return err
	}
	return m.RegWrite(m.arch.SP, sp+uint64(len(p)))
}

func (m *Machine) PushBytes(p []byte) (uint64, error) {
	sp, err := m.RegRead(m.arch.SP)
	if err != nil {
		return 0, err
	}
	sp -= uint64(len(p))
	if err := m.RegWrite(m.arch.SP, sp); err != nil {
		return 0, err
	}
	return sp, m.MemWrite(m.phys(sp), p)
}

func (m *Machine) Push(n uint64) (uint64, error) {
	var tmp [8]byte
	buf, _ := m.PackAddr(tmp[:], n)
	return m.PushBytes(buf)
}

func (m *Machine) Pop() (uint64, error) {
	var buf [8]byte
	if err := m.PopBytes(buf[:m.Bsz]); err != nil {
		return 0, err
	}
	return m.UnpackAddr(buf[:m.Bsz]), nil
}

func (m *Machine) RegReadBatch(regs []int) ([]uint64, error) {
	vals := make([]uint64, len(regs))
	for i, enum := range regs {
		val, err := m.Cpu.RegRead(enum)
		if err != nil {
			return nil, errors.Wrap(err, "m.RegReadBatch() failed")
		}
		vals[i] = val
	}
	return vals, nil
}

func (m *Machine) RegWriteBatch(regs []int, vals []uint64) error {
	for i, enum := range regs {
		if err := m.Cpu.RegWrite(enum, vals[i]); err != nil {
			return errors.Wrap(err, "m.RegWriteBatch() failed")
		}
	}
	return nil
}
