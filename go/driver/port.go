package driver

// PortIO is x86 port I/O. *cpu.Ports implements it.
type PortIO interface {
	Inb(port uint16) byte
	Outb(port uint16, val byte)
}
