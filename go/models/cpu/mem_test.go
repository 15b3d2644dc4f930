package cpu

import (
	"bytes"
	"encoding/binary"
	"testing"
)

var canary = []byte{0xef, 0xbe, 0xad, 0xde}

func TestMemRange(t *testing.T) {
	mem := NewMem(8, binary.LittleEndian)
	if err := mem.MemMapProt(0x10, 0x10, 0); err != nil {
		t.Fatal("failed to map memory:", err)
	}
	if err := mem.MemMapProt(0x0, 0x1000, 0); err == nil {
		t.Fatal("mapped memory outside range")
	}
	if err := mem.MemWrite(0x20, canary); err == nil {
		t.Error("write succeeded above mapped memory")
	}
	if err := mem.MemProt(0x40, 0x10, PROT_READ); err == nil {
		t.Error("protected unmapped memory")
	}
	if err := mem.MemUnmap(0x40, 0x10); err == nil {
		t.Error("unmapped unmapped memory")
	}
}

// the host writes through protections, like firmware loading an image
func TestMemHostWrite(t *testing.T) {
	mem := NewMem(64, binary.LittleEndian)
	for i, prot := range []int{PROT_NONE, PROT_READ, PROT_READ | PROT_WRITE, PROT_ALL} {
		addr := uint64(0x1000 * (i + 1))
		if err := mem.MemMapProt(addr, 0x1000, prot); err != nil {
			t.Fatal(err)
		}
		if err := mem.MemWrite(addr+0xffc, canary); err != nil {
			t.Fatalf("write to prot %d failed: %v", prot, err)
		}
		got, err := mem.MemRead(addr+0xffc, 4)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, canary) {
			t.Fatalf("read back % x", got)
		}
	}
	// straddles the last mapping
	if err := mem.MemWrite(0x4ffe, canary); err == nil {
		t.Fatal("write past the end succeeded")
	}
}

func TestMemSliceAliases(t *testing.T) {
	mem := NewMem(64, binary.LittleEndian)
	if err := mem.MemMapProt(0x200000, 0x200000, PROT_ALL); err != nil {
		t.Fatal(err)
	}
	view, err := mem.MemSlice(0x370000, 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	copy(view[0x10:], canary)
	got, _ := mem.MemRead(0x370010, 4)
	if !bytes.Equal(got, canary) {
		t.Fatalf("slice does not alias memory: % x", got)
	}
	if err := mem.MemWrite(0x370020, canary); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(view[0x20:0x24], canary) {
		t.Fatal("write not visible through slice")
	}
	if _, err := mem.MemSlice(0x3ff000, 0x2000); err == nil {
		t.Fatal("slice past the mapping succeeded")
	}
}

func TestMemWriteHooks(t *testing.T) {
	mem, h := makeHooks()
	mem.MemMapProt(0x1000, 0x1000, PROT_ALL)
	var writes []int64
	var faults []uint64
	h.HookAdd(HOOK_MEM_WRITE, func(_ Cpu, access int, addr uint64, size int, val int64) {
		writes = append(writes, val)
	}, 1, 0)
	h.HookAdd(HOOK_MEM_ERR, func(_ Cpu, access int, addr uint64, size int, val int64) bool {
		faults = append(faults, addr)
		return false
	}, 1, 0)
	mem.MemWrite(0x1000, canary)
	mem.MemWrite(0x1100, make([]byte, 16))
	mem.MemWrite(0x3000, canary)
	if len(writes) != 2 || writes[0] != 0xdeadbeef || writes[1] != 0 {
		t.Fatalf("write hook saw %#x", writes)
	}
	if len(faults) != 1 || faults[0] != 0x3000 {
		t.Fatalf("fault hook saw %#x", faults)
	}
}

func TestPackUint(t *testing.T) {
	for size, want := range map[int]uint64{1: 0x08, 2: 0x0708, 4: 0x05060708, 8: 0x0102030405060708} {
		buf, err := PackUint(binary.LittleEndian, size, nil, 0x0102030405060708)
		if err != nil {
			t.Fatal(err)
		}
		got, err := UnpackUint(binary.LittleEndian, size, buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("size %d: %#x, want %#x", size, got, want)
		}
	}
	if _, err := PackUint(binary.LittleEndian, 3, nil, 0); err == nil {
		t.Fatal("packed a 3-byte uint")
	}
	if _, err := PackUint(binary.LittleEndian, 8, make([]byte, 4), 0); err == nil {
		t.Fatal("packed into a short buffer")
	}
}
