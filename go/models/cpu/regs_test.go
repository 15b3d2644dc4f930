package cpu

import (
	"testing"
)

func makeRegs(bits uint) ([]int, *Regs) {
	enums := make([]int, 100)
	for i := range enums {
		enums[i] = 100 - i
	}
	return enums, NewRegs(bits, enums)
}

func BenchmarkRegsRead(b *testing.B) {
	enums, regs := makeRegs(64)
	for i := 0; i < b.N; i++ {
		regs.RegRead(enums[i%len(enums)])
	}
}

func TestRegs(t *testing.T) {
	enums, regs := makeRegs(64)
	for _, e := range enums {
		if val, err := regs.RegRead(e); err != nil || val != 0 {
			t.Fatalf("fresh register %d = %#x, %v", e, val, err)
		}
	}
	for i, e := range enums {
		if err := regs.RegWrite(e, uint64(i)<<32); err != nil {
			t.Fatal(err)
		}
	}
	for i, e := range enums {
		if val, _ := regs.RegRead(e); val != uint64(i)<<32 {
			t.Fatalf("register %d = %#x", e, val)
		}
	}
	if _, err := regs.RegRead(101); err == nil {
		t.Fatal("read an unknown register")
	}
	if err := regs.RegWrite(0, 1); err == nil {
		t.Fatal("wrote an unknown register")
	}
}

func TestRegsTruncate(t *testing.T) {
	enums, regs := makeRegs(32)
	regs.RegWrite(enums[0], 0x0badb001_ffffffff)
	if val, _ := regs.RegRead(enums[0]); val != 0xffffffff {
		t.Fatalf("32-bit register holds %#x", val)
	}
}

func TestRegsEnums(t *testing.T) {
	_, regs := makeRegs(64)
	enums := regs.Enums()
	if len(enums) != 100 {
		t.Fatalf("Enums() returned %d enums, expecting 100", len(enums))
	}
	for i, e := range enums {
		if e != i+1 {
			t.Fatalf("Enums()[%d] = %d, expecting %d", i, e, i+1)
		}
	}
}
