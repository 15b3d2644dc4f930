package driver

// QEMU's debug console: every byte written to the port shows up on the host.
const DebugconPort = 0xe9

type Debugcon struct {
	Ports PortIO
}

func NewDebugcon(p PortIO) *Debugcon {
	return &Debugcon{Ports: p}
}

func (d *Debugcon) Name() string { return "debugcon" }

func (d *Debugcon) Write(p []byte) (int, error) {
	for _, c := range p {
		d.Ports.Outb(DebugconPort, c)
	}
	return len(p), nil
}

// Present reports whether something answers on the debugcon port, which reads back 0xe9.
func (d *Debugcon) Present() bool {
	return d.Ports.Inb(DebugconPort) == DebugconPort
}
