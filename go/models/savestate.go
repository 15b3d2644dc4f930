package models

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/models/cpu"
)

// snapshot format, big endian:
//
// header
// [4]byte("BCSS")
// uint32(format version)
// uint32(number of registers)
// uint32(number of mapped sections)
//
// remainder is a snappy stream
// 1..regs: uint32(register enum), uint64(register value)
// 1..maps: uint64(addr), uint64(len), uint32(prot), <raw memory bytes of len>

const (
	SnapshotMagic   = "BCSS"
	SnapshotVersion = 1
)

var snapshotOptions = &struc.Options{Order: binary.BigEndian}

type snapshotHeader struct {
	Magic    [4]byte
	Version  uint32
	RegCount uint32
	MapCount uint32
}

type snapshotReg struct {
	Enum uint32
	Val  uint64
}

type snapshotMap struct {
	Addr, Size uint64
	Prot       uint32
}

type SnapshotMapping struct {
	Addr, Size uint64
	Prot       int
	Data       []byte
}

type Snapshot struct {
	Regs     map[int]uint64
	Mappings []SnapshotMapping
}

// Save writes the listed registers and every mapping of c to w.
func Save(w io.Writer, c cpu.Cpu, regs []int) error {
	mappings := c.Mappings()
	hdr := snapshotHeader{Version: SnapshotVersion, RegCount: uint32(len(regs)), MapCount: uint32(len(mappings))}
	copy(hdr.Magic[:], SnapshotMagic)
	if err := struc.PackWithOptions(w, &hdr, snapshotOptions); err != nil {
		return errors.Wrap(err, "writing snapshot header")
	}

	body := snappy.NewBufferedWriter(w)
	s := &StrucStream{W: body, Options: snapshotOptions}
	for _, enum := range regs {
		val, err := c.RegRead(enum)
		if err != nil {
			return errors.Wrapf(err, "RegRead(%d) failed", enum)
		}
		if err := s.Pack(&snapshotReg{uint32(enum), val}); err != nil {
			return err
		}
	}
	for _, m := range mappings {
		if err := s.Pack(&snapshotMap{m.Addr, m.Size, uint32(m.Prot)}); err != nil {
			return err
		}
		if _, err := io.CopyN(body, &MemReader{C: c, Addr: m.Addr}, int64(m.Size)); err != nil {
			return errors.Wrapf(err, "saving memory at %#x", m.Addr)
		}
	}
	return body.Close()
}

// Load reads a snapshot written by Save.
func Load(r io.Reader) (*Snapshot, error) {
	var hdr snapshotHeader
	if err := struc.UnpackWithOptions(r, &hdr, snapshotOptions); err != nil {
		return nil, errors.Wrap(err, "reading snapshot header")
	}
	if string(hdr.Magic[:]) != SnapshotMagic {
		return nil, errors.Errorf("bad snapshot magic %q", hdr.Magic[:])
	}
	if hdr.Version != SnapshotVersion {
		return nil, errors.Errorf("unsupported snapshot version %d", hdr.Version)
	}
	body := bufio.NewReader(snappy.NewReader(r))
	s := &StrucStream{R: body, Options: snapshotOptions}
	snap := &Snapshot{Regs: make(map[int]uint64, hdr.RegCount)}
	for i := uint32(0); i < hdr.RegCount; i++ {
		var reg snapshotReg
		if err := s.Unpack(&reg); err != nil {
			return nil, errors.Wrap(err, "reading registers")
		}
		snap.Regs[int(reg.Enum)] = reg.Val
	}
	for i := uint32(0); i < hdr.MapCount; i++ {
		var m snapshotMap
		if err := s.Unpack(&m); err != nil {
			return nil, errors.Wrap(err, "reading mapping")
		}
		data := make([]byte, m.Size)
		if _, err := io.ReadFull(body, data); err != nil {
			return nil, errors.Wrapf(err, "reading memory at %#x", m.Addr)
		}
		snap.Mappings = append(snap.Mappings, SnapshotMapping{Addr: m.Addr, Size: m.Size, Prot: int(m.Prot), Data: data})
	}
	return snap, nil
}

// Restore maps and fills c with the snapshot's memory and registers.
func (s *Snapshot) Restore(c cpu.Cpu) error {
	for _, m := range s.Mappings {
		if err := c.MemMapProt(m.Addr, m.Size, m.Prot); err != nil {
			return errors.Wrapf(err, "MemMapProt(%#x) failed", m.Addr)
		}
		if err := c.MemWrite(m.Addr, m.Data); err != nil {
			return errors.Wrapf(err, "MemWrite(%#x) failed", m.Addr)
		}
	}
	for enum, val := range s.Regs {
		if err := c.RegWrite(enum, val); err != nil {
			return errors.Wrapf(err, "RegWrite(%d) failed", enum)
		}
	}
	return nil
}
