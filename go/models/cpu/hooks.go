package cpu

import (
	"github.com/pkg/errors"
)

// Hook is the handle returned by HookAdd.
type Hook interface{}

// hook covers start..end inclusive. start > end covers every address.
type hook struct {
	htype      int
	start, end uint64

	mem   func(Cpu, int, uint64, int, int64)
	fault func(Cpu, int, uint64, int, int64) bool
}

// covers reports whether an access of size bytes at addr touches the hook range.
func (h *hook) covers(addr uint64, size int) bool {
	if h.start > h.end {
		return true
	}
	last := addr
	if size > 0 {
		last = addr + uint64(size) - 1
	}
	return last >= h.start && addr <= h.end
}

func (h *hook) wants(access int) bool {
	switch access {
	case MEM_WRITE:
		return h.htype&HOOK_MEM_WRITE != 0
	case MEM_READ:
		return h.htype&HOOK_MEM_READ != 0
	}
	return false
}

// Hooks dispatches memory and fault callbacks for a Mem.
type Hooks struct {
	cpu   Cpu
	hooks []*hook
}

// NewHooks passes cpu to every callback. If mem is set, its accesses dispatch through the new Hooks.
func NewHooks(cpu Cpu, mem *Mem) *Hooks {
	h := &Hooks{cpu: cpu}
	if mem != nil {
		mem.hooks = h
	}
	return h
}

func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64) (Hook, error) {
	hk := &hook{htype: htype, start: start, end: end}
	var ok bool
	switch htype {
	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		hk.mem, ok = cb.(func(Cpu, int, uint64, int, int64))
	case HOOK_MEM_ERR:
		hk.fault, ok = cb.(func(Cpu, int, uint64, int, int64) bool)
	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	if !ok {
		return nil, errors.Errorf("bad callback type %T for hook type %d", cb, htype)
	}
	h.hooks = append(h.hooks, hk)
	return hk, nil
}

// HookDel removes a hook. Removing one that is not installed is not an error.
func (h *Hooks) HookDel(hh Hook) error {
	hk, ok := hh.(*hook)
	if !ok {
		return errors.Errorf("not a hook: %T", hh)
	}
	for i, v := range h.hooks {
		if v == hk {
			// copy, so a dispatch in progress keeps its view
			h.hooks = append(h.hooks[:i:i], h.hooks[i+1:]...)
			break
		}
	}
	return nil
}

// OnMem fires every memory hook covering the access whose type matches it.
func (h *Hooks) OnMem(access int, addr uint64, size int, val int64) {
	for _, v := range h.hooks {
		if v.mem != nil && v.wants(access) && v.covers(addr, size) {
			v.mem(h.cpu, access, addr, size, val)
		}
	}
}

// OnFault fires fault hooks covering the access until one handles it.
func (h *Hooks) OnFault(access int, addr uint64, size int, val int64) bool {
	for _, v := range h.hooks {
		if v.fault != nil && v.covers(addr, size) && v.fault(h.cpu, access, addr, size, val) {
			return true
		}
	}
	return false
}
