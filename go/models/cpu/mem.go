package cpu

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// wraps MemSim to make a Cpu interface-compatible memory model
type Mem struct {
	bits uint
	// methods return an error for addresses that do not fit inside mask
	// calculated by NewMem using ^uint64(0) >> (64 - bits)
	mask uint64
	// Mem.hooks is set when passing *Mem to NewHooks()
	hooks *Hooks
	sim   *MemSim

	order binary.ByteOrder
}

func NewMem(bits uint, order binary.ByteOrder) *Mem {
	return &Mem{
		bits:  bits,
		mask:  ^uint64(0) >> (64 - bits),
		sim:   &MemSim{},
		order: order,
	}
}

func (m *Mem) ByteOrder() binary.ByteOrder {
	return m.order
}

func (m *Mem) MemMapProt(addr, size uint64, prot int) error {
	end := addr + size
	if end&m.mask != end || end < addr {
		return errors.Errorf("region %#x-%#x outside memory range", addr, end)
	}
	m.sim.Map(addr, size, prot, false)
	return nil
}

func (m *Mem) MemProt(addr, size uint64, prot int) error {
	if mapped, _ := m.sim.RangeValid(addr, size, 0); !mapped {
		return errors.New("range not mapped")
	}
	m.sim.Prot(addr, size, prot)
	return nil
}

func (m *Mem) MemUnmap(addr, size uint64) error {
	if mapped, _ := m.sim.RangeValid(addr, size, 0); !mapped {
		return errors.New("range not mapped")
	}
	m.sim.Unmap(addr, size)
	return nil
}

func (m *Mem) Mappings() Pages {
	return m.sim.Mem
}

func (m *Mem) MemReadInto(p []byte, addr uint64) error {
	return m.sim.Read(addr, p, 0)
}

func (m *Mem) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	if err := m.MemReadInto(p, addr); err != nil {
		return nil, err
	}
	return p, nil
}

// MemWrite ignores protections (it is the host writing) but still dispatches write hooks,
// so watchers see every store regardless of who made it.
func (m *Mem) MemWrite(addr uint64, p []byte) error {
	if err := m.sim.Write(addr, p, 0); err != nil {
		if merr, ok := err.(*MemError); ok && m.hooks != nil {
			m.hooks.OnFault(merr.Enum, addr, len(p), 0)
		}
		return err
	}
	if m.hooks != nil {
		var val int64
		if len(p) <= 8 {
			var buf [8]byte
			copy(buf[:], p)
			val = int64(m.order.Uint64(buf[:]))
		}
		m.hooks.OnMem(MEM_WRITE, addr, len(p), val)
	}
	return nil
}

func (m *Mem) MemSlice(addr, size uint64) ([]byte, error) {
	return m.sim.Slice(addr, size)
}
