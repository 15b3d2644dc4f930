package symbols

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/cmd"
	"github.com/lunixbochs/bootcorn/go/env"
	"github.com/lunixbochs/bootcorn/go/loader"
	"github.com/lunixbochs/bootcorn/go/mem"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Run prints the linker symbols of a loader ELF (or the built-in layout), the window they form, and
// the memory map the boot core would log for the given offset.
func Run(args []string, w io.Writer) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(w)
	offset := fs.Int64("offset", 0, "load offset to translate the page tables with")
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage: %s [options] [loader.elf]\n\nOptions:\n", args[0])
		fs.PrintDefaults()
	}
	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return models.ExitStatus(0)
		}
		return err
	}

	var syms *models.LinkerSymbols
	var image *loader.ElfImage
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return errors.Wrap(err, "opening loader")
		}
		defer f.Close()
		if image, err = loader.NewElfImage(f); err != nil {
			return err
		}
		if syms, err = image.Symbols(); err != nil {
			return err
		}
	} else {
		syms = models.DefaultSymbols()
	}

	for _, s := range syms.Symbols() {
		fmt.Fprintln(w, s)
	}
	win := syms.Window()
	fmt.Fprintf(w, "\nboot window   0x%014x-0x%014x\n", win.LowBase, win.LowBase+win.LowSize)
	fmt.Fprintf(w, "loader window 0x%016x-0x%016x\n", win.HighBase, win.HighBase+win.HighSize)
	if err := win.Check(); err != nil {
		fmt.Fprintf(w, "window check failed: %v\n", err)
		return models.ExitStatus(1)
	}
	if image != nil {
		entry, ok, err := image.PVHEntry()
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(w, "pvh entry     %#x\n", entry)
		}
	}

	if *offset%mem.HugeSize != 0 {
		return errors.Errorf("load offset %#x is not 2 MiB aligned", *offset)
	}
	tr := mem.NewTranslator()
	tr.Configure(*offset)
	fmt.Fprintln(w)
	for _, line := range env.Describe(tr, win, syms).Lines() {
		fmt.Fprintln(w, line)
	}
	return nil
}

func Main(args []string) {
	c := cmd.NewBootCmd()
	os.Exit(c.Exit(Run(args, os.Stdout)))
}

func init() { cmd.Register("symbols", "show the linker symbols and memory map of a loader", Main) }
