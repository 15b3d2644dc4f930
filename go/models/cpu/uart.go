package cpu

import (
	"io"
)

// 16550 register offsets
const (
	UART_DATA = 0 // THR/RBR, DLL when DLAB is set
	UART_IER  = 1 // DLM when DLAB is set
	UART_FCR  = 2 // IIR on read
	UART_LCR  = 3
	UART_MCR  = 4
	UART_LSR  = 5
	UART_MSR  = 6
	UART_SCR  = 7

	UART_LCR_DLAB = 0x80
	UART_LSR_THRE = 0x20
	UART_LSR_TEMT = 0x40
)

// UART16550 is a transmit-only 16550: bytes written to THR go to W and the line is always idle.
type UART16550 struct {
	W io.Writer

	regs    [8]byte
	divisor uint16
}

func NewUART16550(w io.Writer) *UART16550 {
	return &UART16550{W: w}
}

func (u *UART16550) dlab() bool {
	return u.regs[UART_LCR]&UART_LCR_DLAB != 0
}

func (u *UART16550) In(off uint16) byte {
	switch off {
	case UART_DATA:
		if u.dlab() {
			return byte(u.divisor)
		}
		return 0
	case UART_IER:
		if u.dlab() {
			return byte(u.divisor >> 8)
		}
	case UART_FCR:
		// no interrupt pending, FIFOs enabled if requested
		iir := byte(0x01)
		if u.regs[UART_FCR]&1 != 0 {
			iir |= 0xc0
		}
		return iir
	case UART_LSR:
		return UART_LSR_THRE | UART_LSR_TEMT
	}
	if off < uint16(len(u.regs)) {
		return u.regs[off]
	}
	return 0xff
}

func (u *UART16550) Out(off uint16, val byte) {
	switch off {
	case UART_DATA:
		if u.dlab() {
			u.divisor = u.divisor&0xff00 | uint16(val)
		} else if u.W != nil {
			u.W.Write([]byte{val})
		}
		return
	case UART_IER:
		if u.dlab() {
			u.divisor = u.divisor&0x00ff | uint16(val)<<8
			return
		}
	case UART_LSR:
		// read-only
		return
	}
	if off < uint16(len(u.regs)) {
		u.regs[off] = val
	}
}

func (u *UART16550) Divisor() uint16 { return u.divisor }

// LineControl returns LCR without the DLAB bit.
func (u *UART16550) LineControl() byte { return u.regs[UART_LCR] &^ UART_LCR_DLAB }

func (u *UART16550) Reg(off uint16) byte { return u.regs[off&7] }
