package bootcorn

import (
	"github.com/lunixbochs/bootcorn/go/driver"
	"github.com/lunixbochs/bootcorn/go/mem"
)

const (
	// the boot stub and the loader share one huge page
	WINDOW_SIZE  = mem.HugeSize
	WINDOW_ALIGN = mem.HugeSize

	DEBUGCON_PORT = driver.DebugconPort
	SERIAL_PORT   = driver.COM1
	SERIAL_PORTS  = 8

	// left in RAX by a fatal halt, before the machine stops for good
	PANIC_MARKER = 0xbadb001
)
