package main

import (
	bootcorn "github.com/lunixbochs/bootcorn/go"
	"github.com/lunixbochs/bootcorn/go/cmd"
	"github.com/lunixbochs/bootcorn/go/cpu/unicorn"
	"github.com/lunixbochs/bootcorn/go/models/cpu"

	_ "github.com/lunixbochs/bootcorn/go/cmd/boot"
	_ "github.com/lunixbochs/bootcorn/go/cmd/note"
	_ "github.com/lunixbochs/bootcorn/go/cmd/symbols"
)

func newUnicornMachine() (*bootcorn.Machine, error) {
	u, err := unicorn.X86_64.New()
	if err != nil {
		return nil, err
	}
	return bootcorn.NewMachine(u, cpu.NewPorts()), nil
}

func main() {
	cmd.RegisterBackend("unicorn", newUnicornMachine)
	cmd.Main()
}
