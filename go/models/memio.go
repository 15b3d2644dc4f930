package models

import (
	"github.com/lunixbochs/bootcorn/go/models/cpu"
)

// MemReader streams machine memory starting at Addr.
type MemReader struct {
	C    cpu.Cpu
	Addr uint64
}

func (m *MemReader) Read(p []byte) (int, error) {
	err := m.C.MemReadInto(p, m.Addr)
	if err != nil {
		return 0, err
	}
	m.Addr += uint64(len(p))
	return len(p), nil
}

// MemWriter streams into machine memory starting at Addr.
type MemWriter struct {
	C    cpu.Cpu
	Addr uint64
}

func (m *MemWriter) Write(p []byte) (int, error) {
	err := m.C.MemWrite(m.Addr, p)
	if err != nil {
		return 0, err
	}
	m.Addr += uint64(len(p))
	return len(p), nil
}
