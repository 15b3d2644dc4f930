package stack

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/arch/x86_64"
	"github.com/lunixbochs/bootcorn/go/models/cpu"
)

// Clobber describes the first write that changed the canary word.
type Clobber struct {
	PC   uint64
	Addr uint64
	Size int
	Val  int64
}

func (c *Clobber) String() string {
	return fmt.Sprintf("canary clobbered at pc=%#x by a %d byte write of %#x to %#x", c.PC, c.Size, c.Val, c.Addr)
}

type watch struct {
	hook cpu.Hook
	hit  *Clobber
}

// Watch hooks writes to the canary word. The first one that does not store the canary itself is
// remembered and reported by AssertSanity.
func (s *Stack) Watch() error {
	if s.watch != nil {
		return nil
	}
	w := &watch{}
	addr := s.phys(s.base)
	cb := func(c cpu.Cpu, access int, waddr uint64, size int, val int64) {
		if w.hit != nil {
			return
		}
		if waddr == addr && size == CanarySize && uint64(val) == Canary {
			return
		}
		pc, _ := c.RegRead(x86_64.RIP)
		w.hit = &Clobber{PC: pc, Addr: waddr, Size: size, Val: val}
	}
	hh, err := s.c.HookAdd(cpu.HOOK_MEM_WRITE, cb, addr, addr+CanarySize-1)
	if err != nil {
		return errors.Wrap(err, "HookAdd() failed")
	}
	w.hook = hh
	s.watch = w
	return nil
}

// Clobbered returns the recorded canary write, if any.
func (s *Stack) Clobbered() *Clobber {
	if s.watch == nil {
		return nil
	}
	return s.watch.hit
}

func (s *Stack) Unwatch() error {
	if s.watch == nil {
		return nil
	}
	err := s.c.HookDel(s.watch.hook)
	s.watch = nil
	return err
}
