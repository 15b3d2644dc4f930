package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	bootcorn "github.com/lunixbochs/bootcorn/go"
	"github.com/lunixbochs/bootcorn/go/driver"
	"github.com/lunixbochs/bootcorn/go/env"
	"github.com/lunixbochs/bootcorn/go/loader"
	"github.com/lunixbochs/bootcorn/go/logger"
	"github.com/lunixbochs/bootcorn/go/models"
)

// MachineFunc creates a fresh machine for one boot.
type MachineFunc func() (*bootcorn.Machine, error)

var backends = map[string]MachineFunc{
	"sim": func() (*bootcorn.Machine, error) { return bootcorn.NewSimMachine(), nil },
}

// RegisterBackend makes a machine backend selectable with -backend.
func RegisterBackend(name string, fn MachineFunc) {
	backends[name] = fn
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type BootCmd struct {
	Config *models.Config

	SetupFlags func() error
	// called once the boot context exists, before it runs
	SetupBoot func(b *bootcorn.Boot) error

	Boot  *bootcorn.Boot
	Flags *flag.FlagSet

	Stdout, Stderr io.Writer
	ConfigDirs     configdir.ConfigDir

	// verbose output file opened for -o, closed by Run
	outFile *os.File
}

func NewBootCmd() *BootCmd {
	return &BootCmd{
		Flags:      flag.NewFlagSet("boot", flag.ContinueOnError),
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		ConfigDirs: configdir.New("bootcorn", "boot"),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *BootCmd) PrintError(err error) {
	PrintError(c.Stderr, err)
}

// PrintError prints an error, and a stacktrace if available.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "Error: %s\n", err)
	if err, ok := err.(stackTracer); ok {
		// parse full path and method name for each stack frame
		var frames [][]string
		for _, f := range err.StackTrace() {
			fullpath := ""
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)

			frame := fmt.Sprintf("%+s", f)
			tmp := strings.SplitN(frame, "\n", 3)
			if len(tmp) == 2 {
				pathsplit := strings.Split(tmp[0], "/")
				method = pathsplit[len(pathsplit)-1]
				fullpath = strings.TrimSpace(tmp[1])
			}
			frames = append(frames, []string{fullpath, fileline, method})
			if method == "main.main" {
				break
			}
		}
		// calculate column widths
		widths := make([]int, 2)
		for _, f := range frames {
			for i, s := range f[:2] {
				if len(s) > widths[i] {
					widths[i] = len(s)
				}
			}
		}
		// print pretty stacktrace
		for _, f := range frames {
			method := f[2]
			for i := 0; i < 2; i++ {
				if widths[i] > 0 {
					pad := strings.Repeat(" ", widths[i]-len(f[i]))
					fmt.Fprintf(w, "%s%s | ", f[i], pad)
				}
			}
			fmt.Fprintf(w, "%s()\n", method)
		}
	}
}

// Exit turns the result of Run into a process exit status, printing unexpected errors.
func (c *BootCmd) Exit(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := err.(models.ExitStatus); ok {
		return int(e)
	}
	c.PrintError(err)
	return 1
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ParseConfig builds the configuration from flags, then the environment, then the config folder.
func (c *BootCmd) ParseConfig(argv []string) (*models.Config, error) {
	fs := c.Flags
	fs.SetOutput(c.Stderr)
	config := models.NewConfig()

	magic := fs.Uint64("magic", env.MagicMultiboot2, "boot protocol magic handed to the entry point")
	info := fs.Uint64("info", 0, "physical address of the boot information")
	offset := fs.Int64("offset", 0, "load offset from the link address (2 MiB aligned, may be negative)")
	cmdline := fs.String("cmdline", "", "loader command line, e.g. --loggers=debugcon,serial")
	level := fs.String("level", config.Level, "log level (error, warn, info, debug, trace)")
	backend := fs.String("backend", config.Backend, "machine backend ("+strings.Join(backendNames(), ", ")+")")
	color := fs.Bool("color", stdoutIsTerminal(), "color log levels")
	verbose := fs.Bool("v", false, "verbose output")
	symfile := fs.String("symbols", "", "resolve linker symbols from this loader ELF")
	snapshot := fs.String("snapshot", "", "write a machine snapshot to file after the boot halts")
	serial := fs.String("serial", config.Serial, "serial port sink (stdout, tty, none)")
	outfile := fs.String("o", "", "redirect verbose output to file (default stderr)")

	fs.Usage = func() {
		fmt.Fprintf(c.Stderr, "Usage: %s [options]\n\nOptions:\n", argv[0])
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(c.Stderr, flags)
		fmt.Fprintf(c.Stderr, "\nExample:\n  %s -offset 0x200000 -cmdline --loggers=serial -serial tty\n", argv[0])
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			return nil, err
		}
	}
	if err := fs.Parse(argv[1:]); err != nil {
		return nil, err
	}

	config.Magic = *magic
	config.InfoPtr = *info
	config.LoadOffset = *offset
	config.Cmdline = *cmdline
	config.Level = *level
	config.Backend = *backend
	config.Color = *color
	config.Verbose = *verbose
	config.SymbolFile = *symfile
	config.Snapshot = *snapshot
	config.Serial = *serial
	config.Output = c.Stderr
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.Wrap(err, "opening output file")
		}
		c.outFile = out
		config.Output = out
	}

	config.ApplyEnv()
	config.LoadCmdline(c.ConfigDirs)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if _, ok := backends[config.Backend]; !ok {
		return nil, errors.Errorf("backend %q is not available in this build", config.Backend)
	}
	c.Config = config
	return config, nil
}

// Symbols returns the linker symbols to boot with: from the configured ELF, or the built-in layout.
func Symbols(path string) (*models.LinkerSymbols, error) {
	if path == "" {
		return models.DefaultSymbols(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening symbol file")
	}
	defer f.Close()
	return loader.Symbols(f)
}

func (c *BootCmd) serialSink() (io.Writer, func(), error) {
	switch c.Config.Serial {
	case "stdout":
		return &driver.Term{W: c.Stdout, Color: c.Config.Color}, func() {}, nil
	case "tty":
		t, err := tty.Open()
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening tty")
		}
		return t.Output(), func() { t.Close() }, nil
	}
	return nil, func() {}, nil
}

// Run boots once and reports how it halted. A fatal halt is models.ExitStatus(1).
func (c *BootCmd) Run(argv []string) error {
	config, err := c.ParseConfig(argv)
	defer c.closeOutput()
	if err != nil {
		if err == flag.ErrHelp {
			return models.ExitStatus(0)
		}
		return err
	}
	level, err := logger.ParseLevel(config.Level)
	if err != nil {
		return err
	}
	syms, err := Symbols(config.SymbolFile)
	if err != nil {
		return err
	}
	m, err := backends[config.Backend]()
	if err != nil {
		return err
	}
	defer m.Close()

	serial, closeSerial, err := c.serialSink()
	if err != nil {
		return err
	}
	defer closeSerial()
	dev := bootcorn.Devices{
		Debugcon: &driver.Term{W: c.Stdout, Color: config.Color},
		Serial:   serial,
	}
	staged, err := bootcorn.Stage(m, syms, config.LoadOffset, dev)
	if err != nil {
		return err
	}
	args := bootcorn.EntryArgs{Magic: config.Magic, InfoPtr: config.InfoPtr, LoadOffset: config.LoadOffset}
	if err := args.Load(m); err != nil {
		return err
	}

	status := &models.StatusDiff{Arch: m.Arch()}
	if config.Verbose {
		fmt.Fprintf(config.Output, "[stage] %s\n", staged)
		regs, err := m.Arch().RegDumpString(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(config.Output, "[entry]\n%s\n", regs)
		status.Mark(m)
	}

	entry, err := bootcorn.ReadEntryArgs(m)
	if err != nil {
		return err
	}
	c.Boot = bootcorn.New(m, syms, entry, config.Cmdline)
	c.Boot.Level = level
	if c.SetupBoot != nil {
		if err := c.SetupBoot(c.Boot); err != nil {
			return err
		}
	}
	halt := c.Boot.Run()

	if config.Verbose {
		changes, err := status.Changes(m, true)
		if err != nil {
			return err
		}
		fmt.Fprintf(config.Output, "[halt] pc=%#x sp=%#x\n%s", halt.PC, halt.SP, changes.String(config.Color))
		if st := c.Boot.Stack(); st != nil {
			fmt.Fprintf(config.Output, "[stack] %s\n", st)
		}
	}
	if config.Snapshot != "" {
		if err := c.saveSnapshot(m, config.Snapshot); err != nil {
			return err
		}
	}
	fmt.Fprintln(c.Stderr, halt.Error())
	if halt.Fatal {
		return models.ExitStatus(1)
	}
	return nil
}

func (c *BootCmd) closeOutput() {
	if c.outFile != nil {
		c.outFile.Close()
		c.outFile = nil
	}
}

func (c *BootCmd) saveSnapshot(m *bootcorn.Machine, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating snapshot")
	}
	defer f.Close()
	return models.Save(f, m, m.Arch().RegEnums())
}
