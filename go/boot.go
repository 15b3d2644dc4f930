package bootcorn

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/cmdline"
	"github.com/lunixbochs/bootcorn/go/driver"
	"github.com/lunixbochs/bootcorn/go/env"
	"github.com/lunixbochs/bootcorn/go/heap"
	"github.com/lunixbochs/bootcorn/go/logger"
	"github.com/lunixbochs/bootcorn/go/mem"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/stack"
)

// Boot holds everything the bring-up sequence initializes. Each piece is created exactly once.
type Boot struct {
	m       *Machine
	syms    *models.LinkerSymbols
	args    EntryArgs
	cmdline string

	// Level caps what the logger records. The sequence logs its memory map at Trace.
	Level logger.Level
	// Backends are registered after the ones the command line asks for.
	Backends []logger.Backend
	// BreakStack recurses on the boot stack until the guard trips, to exercise it.
	BreakStack bool

	tr    *mem.Translator
	win   *mem.Window
	stack *stack.Stack
	heap  *heap.Heap
	log   *logger.Facade
	env   *env.Environment

	ran  bool
	halt *Halt
}

func New(m *Machine, syms *models.LinkerSymbols, args EntryArgs, cmdline string) *Boot {
	return &Boot{
		m:       m,
		syms:    syms,
		args:    args,
		cmdline: cmdline,
		Level:   logger.Trace,
		tr:      mem.NewTranslator(),
		win:     syms.Window(),
		heap:    heap.New(),
	}
}

func (b *Boot) phys(link uint64) uint64 {
	return b.win.HighToPhys(b.tr, link)
}

// Run executes the bring-up sequence. The order follows the dependencies: the translator is needed to
// find the stack and heap, the heap backs the logger's buffer, and the environment is logged.
// It always ends in a Halt, fatal if an invariant broke along the way.
func (b *Boot) Run() (halt *Halt) {
	defer func() {
		if r := recover(); r != nil {
			halt = b.panicHalt(r)
		}
	}()
	if b.ran {
		panic(errors.New("boot sequence entered twice"))
	}
	b.ran = true

	b.tr.Configure(b.args.LoadOffset)
	b.initStack()
	b.stack.AssertSanity()
	b.initHeap()
	b.initLogger()

	b.env = env.Init(b.args.Magic, b.args.InfoPtr)
	logger.Infof("boot environment: %s", b.env)
	report := env.Describe(b.tr, b.win, b.syms)
	for _, line := range report.Header() {
		logger.Debugf("%s", line)
	}
	for _, line := range report.Table() {
		logger.Tracef("%s", line)
	}

	if b.BreakStack {
		b.breakStack()
	}
	b.stack.AssertSanity()
	logger.Debugf("stack usage: %#x of %#x bytes", b.stack.Usage(), b.stack.UsableSize())
	logger.Debugf("%s", b.heap.Stats())

	logger.Infof("Now loading your kernel into 64-bit mode...")
	logger.Infof("Not implemented yet! =(")
	h := &Halt{Reason: "kernel loading not implemented"}
	b.stop(h)
	return h
}

func (b *Boot) initStack() {
	size, err := StackSize(b.syms)
	if err != nil {
		panic(err)
	}
	b.stack = stack.Attach(b.m, b.phys, b.syms.StackBegin, size)
	b.m.SetTranslate(b.phys)
	if err := b.stack.Watch(); err != nil {
		panic(err)
	}
}

// initHeap hands the heap the machine memory behind the heap symbols.
func (b *Boot) initHeap() {
	size := b.syms.HeapEnd - b.syms.HeapBegin
	arena, err := b.m.MemSlice(b.phys(b.syms.HeapBegin), size)
	if err != nil {
		panic(errors.Wrap(err, "heap arena is not backed by memory"))
	}
	b.heap.Init(arena)
}

func (b *Boot) initLogger() {
	b.log = logger.Init(b.heap)
	b.log.SetLevel(b.Level)
	// buffered until the backends are known
	logger.Debugf("load offset %s", mem.FormatOffset(b.tr.LoadOffset()))
	logger.Debugf("%s", b.stack)
	logger.Debugf("%s", b.heap.Stats())

	args, err := cmdline.Parse(b.cmdline)
	if err != nil {
		logger.Warnf("ignoring command line: %v", err)
		args = &cmdline.Args{}
	}
	loggers := args.Loggers
	if len(loggers) == 0 {
		loggers = []cmdline.Logger{cmdline.Debugcon}
	}
	var backends []logger.Backend
	for _, l := range loggers {
		switch l {
		case cmdline.Debugcon:
			backends = append(backends, driver.NewDebugcon(b.m.Ports))
		case cmdline.Serial:
			s := driver.NewSerial(b.m.Ports, SERIAL_PORT)
			if err := s.Probe(); err != nil {
				logger.Warnf("serial logger unavailable: %v", err)
				continue
			}
			backends = append(backends, s)
		}
	}
	for _, be := range append(backends, b.Backends...) {
		if err := logger.AddBackend(be); err != nil {
			logger.Warnf("%v", err)
		}
	}
	logger.Flush()
	if args.Load != "" {
		logger.Infof("kernel to load: %s", args.Load)
	}
}

// breakStack pushes frames until the stack guard stops it. It never returns.
func (b *Boot) breakStack() {
	logger.Debugf("Breaking stack ...")
	for depth := uint64(0); ; depth++ {
		b.stack.AssertSanity()
		if _, err := b.m.Push(depth); err != nil {
			panic(errors.Wrap(err, "push failed"))
		}
	}
}

func (b *Boot) Translator() *mem.Translator   { return b.tr }
func (b *Boot) Window() *mem.Window           { return b.win }
func (b *Boot) Stack() *stack.Stack           { return b.stack }
func (b *Boot) Heap() *heap.Heap              { return b.heap }
func (b *Boot) Logger() *logger.Facade        { return b.log }
func (b *Boot) Environment() *env.Environment { return b.env }
func (b *Boot) Halted() *Halt                 { return b.halt }
