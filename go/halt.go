package bootcorn

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/arch/x86_64"
	"github.com/lunixbochs/bootcorn/go/driver"
)

// Halt is how a boot ends. The sequence never returns to its caller on real hardware; here it
// returns a Halt describing where it stopped.
type Halt struct {
	Reason string
	Fatal  bool
	// the panic value behind a fatal halt, if it was an error
	Err error
	PC  uint64
	SP  uint64
}

func (h *Halt) Error() string {
	if h.Fatal {
		return "fatal halt: " + h.Reason
	}
	return "halt: " + h.Reason
}

func (h *Halt) Cause() error {
	return h.Err
}

// panicHalt is the panic handler. It reports through the debug console directly, as the logger
// may be the thing that broke, and leaves the panic marker in RAX.
func (b *Boot) panicHalt(r interface{}) *Halt {
	h := &Halt{Fatal: true}
	switch v := r.(type) {
	case error:
		h.Err, h.Reason = v, v.Error()
	default:
		h.Err, h.Reason = errors.Errorf("%v", v), fmt.Sprint(v)
	}
	fmt.Fprintf(driver.NewDebugcon(b.m.Ports), "PANIC: %s\n", h.Reason)
	b.m.RegWrite(x86_64.RAX, PANIC_MARKER)
	b.stop(h)
	return h
}

func (b *Boot) stop(h *Halt) {
	h.PC, _ = b.m.RegRead(x86_64.RIP)
	h.SP, _ = b.m.RegRead(x86_64.RSP)
	b.halt = h
}
