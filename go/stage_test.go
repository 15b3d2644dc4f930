package bootcorn

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/lunixbochs/bootcorn/go/arch/x86_64"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/stack"
)

func TestStage(t *testing.T) {
	m := NewSimMachine()
	syms := models.DefaultSymbols()
	var con, serial bytes.Buffer
	staged, err := Stage(m, syms, 0x200000, Devices{Debugcon: &con, Serial: &serial})
	if err != nil {
		t.Fatal(err)
	}
	if staged.PhysBase != 0x200000 {
		t.Fatalf("window at %#x", staged.PhysBase)
	}
	if staged.Stack.UsableSize() != stack.DefaultSize {
		t.Fatalf("usable stack %#x", staged.Stack.UsableSize())
	}

	// stack_begin folds to 0x150000 in the window, which starts at 0x200000
	raw, err := m.MemRead(0x350000, 8)
	if err != nil {
		t.Fatal(err)
	}
	if binary.LittleEndian.Uint64(raw) != stack.Canary {
		t.Fatalf("canary not written: % x", raw)
	}

	sp, _ := m.RegRead(x86_64.RSP)
	if sp != staged.Stack.AdjustedTop()-8 {
		t.Fatalf("sp %#x, adjusted top %#x", sp, staged.Stack.AdjustedTop())
	}
	// at entry, sp+8 is 16-byte aligned
	if (sp+8)%16 != 0 {
		t.Fatalf("misaligned entry sp %#x", sp)
	}
	ret, err := m.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if ret != syms.LinkAddrBoot {
		t.Fatalf("return address %#x", ret)
	}

	m.Ports.Outb(DEBUGCON_PORT, 'x')
	m.Ports.Outb(SERIAL_PORT, 'y')
	if con.String() != "x" || serial.String() != "y" {
		t.Fatalf("devices not attached: %q %q", con.String(), serial.String())
	}
}

func TestStageErrors(t *testing.T) {
	syms := models.DefaultSymbols()
	if _, err := Stage(NewSimMachine(), syms, 0x1000, Devices{}); err == nil {
		t.Fatal("unaligned offset accepted")
	}
	if _, err := Stage(NewSimMachine(), syms, -0x200000, Devices{}); err == nil {
		t.Fatal("window below zero accepted")
	}

	bad := *syms
	bad.StackBegin += 8
	if _, err := Stage(NewSimMachine(), &bad, 0, Devices{}); err == nil {
		t.Fatal("unaligned stack accepted")
	}
	bad = *syms
	bad.StackEnd = bad.StackBegin + 0x10
	if _, err := Stage(NewSimMachine(), &bad, 0, Devices{}); err == nil {
		t.Fatal("tiny stack accepted")
	}
	bad = *syms
	bad.HeapEnd = bad.HeapBegin + 0x200000
	if _, err := Stage(NewSimMachine(), &bad, 0, Devices{}); err == nil {
		t.Fatal("window overflowing 2 MiB accepted")
	}
}

func TestStackSize(t *testing.T) {
	var tests = []struct {
		begin, end, size uint64
	}{
		{0x1000, 0x1000 + 8 + 0x10000 + 8, 0x10000},
		{0x1000, 0x1000 + 8 + 0x10, 0x10},
		{0x1000, 0x1000 + 8 + 0x1f, 0x10},
	}
	for _, test := range tests {
		size, err := StackSize(&models.LinkerSymbols{StackBegin: test.begin, StackEnd: test.end})
		if err != nil {
			t.Fatal(err)
		}
		if size != test.size {
			t.Errorf("StackSize(%#x, %#x) = %#x, want %#x", test.begin, test.end, size, test.size)
		}
	}
	if _, err := StackSize(&models.LinkerSymbols{StackBegin: 0x2000, StackEnd: 0x1000}); err == nil {
		t.Fatal("inverted stack region accepted")
	}
}

func TestEntryArgs(t *testing.T) {
	m := NewSimMachine()
	args := EntryArgs{Magic: 0x36d76289, InfoPtr: 0x9000, LoadOffset: -0x400000}
	if err := args.Load(m); err != nil {
		t.Fatal(err)
	}
	if rdi, _ := m.RegRead(x86_64.RDI); rdi != args.Magic {
		t.Fatalf("rdi = %#x", rdi)
	}
	got, err := ReadEntryArgs(m)
	if err != nil {
		t.Fatal(err)
	}
	if got != args {
		t.Fatalf("got %+v, want %+v", got, args)
	}
}
