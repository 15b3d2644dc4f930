package boot

import (
	"os"

	bootcorn "github.com/lunixbochs/bootcorn/go"
	"github.com/lunixbochs/bootcorn/go/cmd"
)

func Main(args []string) {
	c := cmd.NewBootCmd()
	var breakStack *bool
	c.SetupFlags = func() error {
		breakStack = c.Flags.Bool("break-stack", false, "overflow the boot stack on purpose to see the guard trip")
		return nil
	}
	c.SetupBoot = func(b *bootcorn.Boot) error {
		b.BreakStack = *breakStack
		return nil
	}
	os.Exit(c.Exit(c.Run(args)))
}

func init() { cmd.Register("boot", "run the boot core on an emulated machine", Main) }
