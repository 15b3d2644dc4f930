package bootcorn

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/lunixbochs/bootcorn/go/arch/x86_64"
	"github.com/lunixbochs/bootcorn/go/env"
	"github.com/lunixbochs/bootcorn/go/logger"
	"github.com/lunixbochs/bootcorn/go/models"
)

type testBoot struct {
	*Boot
	m      *Machine
	con    bytes.Buffer
	serial bytes.Buffer
}

func newTestBoot(t *testing.T, offset int64, magic uint64, cmdline string, serial bool) *testBoot {
	tb := &testBoot{m: NewSimMachine()}
	dev := Devices{Debugcon: &tb.con}
	if serial {
		dev.Serial = &tb.serial
	}
	syms := models.DefaultSymbols()
	if _, err := Stage(tb.m, syms, offset, dev); err != nil {
		t.Fatal(err)
	}
	args := EntryArgs{Magic: magic, InfoPtr: 0x9500, LoadOffset: offset}
	if err := args.Load(tb.m); err != nil {
		t.Fatal(err)
	}
	entry, err := ReadEntryArgs(tb.m)
	if err != nil {
		t.Fatal(err)
	}
	tb.Boot = New(tb.m, syms, entry, cmdline)
	return tb
}

func TestBoot(t *testing.T) {
	tb := newTestBoot(t, 0x400000, env.MagicMultiboot2, "", false)
	h := tb.Run()
	if h.Fatal {
		t.Fatalf("fatal halt: %s\n%s", h.Reason, tb.con.String())
	}
	if h.Reason != "kernel loading not implemented" {
		t.Fatalf("halt reason %q", h.Reason)
	}
	out := tb.con.String()
	for _, want := range []string{
		"boot environment: Multiboot2, boot information at 0x9500",
		"bootcorn expected load at 0x00000000100000 (phys)",
		"           actual load at 0x00000000500000 (phys)",
		"             with offset  0x400000",
		"boot_mem_pt_l4    | 0x00000000101000 | 0xffffffff88101000 | 0x00000000501000",
		"stack usage: 0x10 of 0x10000 bytes",
		"Now loading your kernel into 64-bit mode...",
		"Not implemented yet! =(",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "PANIC") {
		t.Fatalf("orderly halt panicked:\n%s", out)
	}
	if tb.Environment().Variant() != env.Multiboot2 {
		t.Fatalf("variant %s", tb.Environment().Variant())
	}
	if !tb.Logger().Flushed() {
		t.Fatal("logger not flushed")
	}
	if st := tb.Heap().Stats(); st.Allocs == 0 || st.Live != 0 {
		t.Fatalf("heap not used for buffering or leaked: %s", st)
	}
	if tb.Halted() != h {
		t.Fatal("halt not recorded")
	}
}

func TestBootHeapAliasesMachine(t *testing.T) {
	tb := newTestBoot(t, 0, env.MagicMultiboot1, "", false)
	if h := tb.Run(); h.Fatal {
		t.Fatal(h)
	}
	b, err := tb.Heap().Alloc(3)
	if err != nil {
		t.Fatal(err)
	}
	copy(b, "\x7fMK")
	syms := models.DefaultSymbols()
	raw, err := tb.m.MemRead(tb.Window().HighToPhys(tb.Translator(), syms.HeapBegin), 0x40000)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte("\x7fMK")) {
		t.Fatal("heap allocation not visible in machine memory")
	}
}

func TestBootTwice(t *testing.T) {
	tb := newTestBoot(t, 0, env.MagicXenPvh, "", false)
	if h := tb.Run(); h.Fatal {
		t.Fatal(h)
	}
	h := tb.Run()
	if !h.Fatal || !strings.Contains(h.Reason, "entered twice") {
		t.Fatalf("second run: %+v", h)
	}
	if !strings.Contains(tb.con.String(), "PANIC: boot sequence entered twice\n") {
		t.Fatalf("panic not reported on debugcon:\n%s", tb.con.String())
	}
	if rax, _ := tb.m.RegRead(x86_64.RAX); rax != PANIC_MARKER {
		t.Fatalf("rax = %#x", rax)
	}
}

func TestBootUnknownMagic(t *testing.T) {
	tb := newTestBoot(t, 0, 0x1badb002, "", false)
	h := tb.Run()
	if !h.Fatal {
		t.Fatal("unknown magic booted")
	}
	var unknown *env.UnknownMagicError
	if !stderrors.As(h.Err, &unknown) || unknown.Magic != 0x1badb002 {
		t.Fatalf("unexpected cause: %v", h.Err)
	}
	// the logger was already running, so the buffered records made it out before the panic
	out := tb.con.String()
	if !strings.HasSuffix(out, "PANIC: cannot identify boot environment: unknown boot magic 0x1badb002\n") {
		t.Fatalf("bad panic output:\n%s", out)
	}
}

func TestBootCorruptCanary(t *testing.T) {
	tb := newTestBoot(t, 0, env.MagicMultiboot2, "", false)
	// stack_begin folds to 0x150000
	tb.m.MemWrite(0x150000, []byte{0})
	h := tb.Run()
	if !h.Fatal || !strings.Contains(h.Reason, "stack canary mismatch") {
		t.Fatalf("corrupt canary: %+v", h)
	}
	if tb.Logger() != nil {
		t.Fatal("logger initialized after the stack check failed")
	}
}

func TestBootSerial(t *testing.T) {
	tb := newTestBoot(t, 0, env.MagicMultiboot2, "quiet --loggers=serial,debugcon,serial --load=kernel.elf", true)
	if h := tb.Run(); h.Fatal {
		t.Fatal(h)
	}
	serial := tb.serial.String()
	if !strings.Contains(serial, "Not implemented yet! =(\r\n") {
		t.Fatalf("serial output missing or not CRLF:\n%q", serial)
	}
	if !strings.Contains(tb.con.String(), "kernel to load: kernel.elf") {
		t.Fatalf("debugcon output:\n%s", tb.con.String())
	}
	// the second serial entry is a duplicate
	if !strings.Contains(serial, `logging backend "serial" already registered`) {
		t.Fatalf("duplicate backend not reported:\n%s", serial)
	}
	if names := backendNames(tb.Logger()); names != "serial,debugcon" {
		t.Fatalf("backends %s", names)
	}
}

func TestBootSerialMissing(t *testing.T) {
	tb := newTestBoot(t, 0, env.MagicMultiboot2, "--loggers=serial", false)
	if h := tb.Run(); h.Fatal {
		t.Fatal(h)
	}
	// nothing registered, so nothing is written anywhere
	if tb.con.Len() != 0 {
		t.Fatalf("unexpected debugcon output:\n%s", tb.con.String())
	}
	if len(tb.Logger().Backends()) != 0 {
		t.Fatal("missing UART registered")
	}
}

func TestBootLevel(t *testing.T) {
	tb := newTestBoot(t, 0, env.MagicMultiboot2, "", false)
	tb.Level = logger.Info
	if h := tb.Run(); h.Fatal {
		t.Fatal(h)
	}
	out := tb.con.String()
	if strings.Contains(out, "SYMBOL") || strings.Contains(out, "stack usage") {
		t.Fatalf("debug and trace records leaked:\n%s", out)
	}
	if !strings.Contains(out, "Not implemented yet!") {
		t.Fatalf("info records missing:\n%s", out)
	}
}

func TestBootExtraBackend(t *testing.T) {
	tb := newTestBoot(t, 0, env.MagicMultiboot2, "", false)
	var host bytes.Buffer
	tb.Backends = append(tb.Backends, &namedWriter{"host", &host})
	if h := tb.Run(); h.Fatal {
		t.Fatal(h)
	}
	if host.String() != tb.con.String() {
		t.Fatalf("backends saw different logs:\n%s\n--\n%s", host.String(), tb.con.String())
	}
}

func TestBreakStack(t *testing.T) {
	tb := newTestBoot(t, 0, env.MagicMultiboot2, "", false)
	tb.BreakStack = true
	h := tb.Run()
	if !h.Fatal {
		t.Fatal("stack overflow went unnoticed")
	}
	if !strings.Contains(h.Reason, "canary clobbered") || !strings.Contains(h.Reason, "stack canary mismatch") {
		t.Fatalf("overflow not attributed: %s", h.Reason)
	}
	if h.SP != tb.Stack().CanaryAddr() {
		t.Fatalf("halted with sp %#x, canary at %#x", h.SP, tb.Stack().CanaryAddr())
	}
}

type namedWriter struct {
	name string
	*bytes.Buffer
}

func (n *namedWriter) Name() string { return n.name }

func backendNames(f *logger.Facade) string {
	var names []string
	for _, b := range f.Backends() {
		names = append(names, b.Name())
	}
	return strings.Join(names, ",")
}
