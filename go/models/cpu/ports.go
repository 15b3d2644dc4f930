package cpu

import (
	"io"
	"sort"

	"github.com/pkg/errors"
)

// PortDevice answers x86 port I/O for a range of ports. Offsets are relative to the range base.
type PortDevice interface {
	In(off uint16) byte
	Out(off uint16, val byte)
}

type portRange struct {
	base, count uint16
	dev         PortDevice
}

func (r *portRange) contains(port uint16) bool {
	return port >= r.base && uint32(port) < uint32(r.base)+uint32(r.count)
}

// Ports is the I/O port bus of the machine.
type Ports struct {
	ranges []*portRange
}

func NewPorts() *Ports {
	return &Ports{}
}

func (p *Ports) Attach(base, count uint16, dev PortDevice) error {
	if count == 0 {
		return errors.Errorf("empty port range at %#x", base)
	}
	end := uint32(base) + uint32(count)
	for _, r := range p.ranges {
		if uint32(r.base) < end && uint32(base) < uint32(r.base)+uint32(r.count) {
			return errors.Errorf("port range %#x-%#x overlaps %#x-%#x", base, end-1, r.base, uint32(r.base)+uint32(r.count)-1)
		}
	}
	p.ranges = append(p.ranges, &portRange{base, count, dev})
	sort.Slice(p.ranges, func(i, j int) bool { return p.ranges[i].base < p.ranges[j].base })
	return nil
}

func (p *Ports) find(port uint16) *portRange {
	for _, r := range p.ranges {
		if r.contains(port) {
			return r
		}
	}
	return nil
}

// Inb reads a byte. Nothing listening floats the bus high.
func (p *Ports) Inb(port uint16) byte {
	if r := p.find(port); r != nil {
		return r.dev.In(port - r.base)
	}
	return 0xff
}

// Outb writes a byte. Writes to unclaimed ports are dropped.
func (p *Ports) Outb(port uint16, val byte) {
	if r := p.find(port); r != nil {
		r.dev.Out(port-r.base, val)
	}
}

// SinkDevice behaves like the QEMU debugcon: every byte written goes to W and reads return the
// readback value, which is the port number for the usual 0xe9 console.
type SinkDevice struct {
	W        io.Writer
	Readback byte
}

func NewSinkDevice(w io.Writer) *SinkDevice {
	return &SinkDevice{W: w, Readback: 0xe9}
}

func (s *SinkDevice) In(off uint16) byte { return s.Readback }

func (s *SinkDevice) Out(off uint16, val byte) {
	if s.W != nil {
		s.W.Write([]byte{val})
	}
}
