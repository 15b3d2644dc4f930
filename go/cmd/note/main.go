package note

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/cmd"
	"github.com/lunixbochs/bootcorn/go/loader"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Run writes the Xen PVH entry note for a 32-bit entry point, ready to be linked into .note.xen_pvh.
func Run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stdout)
	entry := fs.Uint64("entry", 0x100000, "physical 32-bit entry address")
	outfile := fs.String("o", "", "write the note to file (default stdout)")
	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return models.ExitStatus(0)
		}
		return err
	}
	if *entry > 0xffffffff {
		return errors.Errorf("entry %#x does not fit in 32 bits", *entry)
	}
	note, err := loader.PVHNote(uint32(*entry))
	if err != nil {
		return err
	}
	w := stdout
	if *outfile != "" {
		f, err := os.Create(*outfile)
		if err != nil {
			return errors.Wrap(err, "creating note file")
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(note); err != nil {
		return errors.Wrap(err, "writing note")
	}
	return nil
}

func Main(args []string) {
	c := cmd.NewBootCmd()
	if err := Run(args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(c.Exit(err))
	}
}

func init() { cmd.Register("note", "emit a Xen PVH entry note", Main) }
