package driver

import (
	"github.com/pkg/errors"
)

const COM1 = 0x3f8

// 16550 registers, relative to the base port
const (
	regData = 0
	regIER  = 1
	regFCR  = 2
	regLCR  = 3
	regMCR  = 4
	regLSR  = 5
	regSCR  = 7

	lcrDLAB = 0x80
	lcr8N1  = 0x03
	lsrTHRE = 0x20

	// 115200 / 3
	Baud    = 38400
	divisor = 115200 / Baud

	// polls of LSR before a byte is given up on
	txSpins = 1 << 16
)

// Serial drives a 16550 UART.
type Serial struct {
	Ports PortIO
	Base  uint16
}

// NewSerial programs the UART at base for 38400 8N1 with FIFOs and returns it.
func NewSerial(p PortIO, base uint16) *Serial {
	s := &Serial{Ports: p, Base: base}
	s.init()
	return s
}

func (s *Serial) out(reg uint16, val byte) { s.Ports.Outb(s.Base+reg, val) }
func (s *Serial) in(reg uint16) byte       { return s.Ports.Inb(s.Base + reg) }

func (s *Serial) init() {
	// no interrupts, we poll
	s.out(regIER, 0x00)
	s.out(regLCR, lcrDLAB)
	s.out(regData, divisor&0xff)
	s.out(regIER, divisor>>8)
	s.out(regLCR, lcr8N1)
	// enable and clear FIFOs, 14 byte threshold
	s.out(regFCR, 0xc7)
	// DTR, RTS, OUT2
	s.out(regMCR, 0x0b)
}

// Probe checks the scratch register holds a value, which a missing UART won't.
func (s *Serial) Probe() error {
	s.out(regSCR, 0x5a)
	if v := s.in(regSCR); v != 0x5a {
		return errors.Errorf("no UART at %#x (scratch read %#x)", s.Base, v)
	}
	return nil
}

func (s *Serial) Name() string { return "serial" }

func (s *Serial) send(c byte) error {
	for i := 0; s.in(regLSR)&lsrTHRE == 0; i++ {
		if i == txSpins {
			return errors.Errorf("UART at %#x stuck busy", s.Base)
		}
	}
	s.out(regData, c)
	return nil
}

// Write sends p, turning \n into \r\n for terminals on the other end.
func (s *Serial) Write(p []byte) (int, error) {
	for i, c := range p {
		if c == '\n' {
			if err := s.send('\r'); err != nil {
				return i, err
			}
		}
		if err := s.send(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}
