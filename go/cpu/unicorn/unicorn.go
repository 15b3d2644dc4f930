package unicorn

import (
	"sort"
	"unsafe"

	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/lunixbochs/bootcorn/go/models/cpu"
)

type Builder struct {
	Arch, Mode int
}

// X86_64 builds the only machine the boot core targets.
var X86_64 = &Builder{Arch: uc.ARCH_X86, Mode: uc.MODE_64}

func (b *Builder) New() (*UnicornCpu, error) {
	u, err := uc.NewUnicorn(b.Arch, b.Mode)
	if err != nil {
		return nil, errors.Wrap(err, "NewUnicorn() failed")
	}
	return &UnicornCpu{Unicorn: u}, nil
}

// UnicornCpu backs every mapping with Go memory handed to unicorn through MemMapPtr,
// so MemSlice can return views that alias guest memory.
type UnicornCpu struct {
	uc.Unicorn
	pages cpu.Pages
}

func (u *UnicornCpu) Backend() interface{} {
	return u.Unicorn
}

func (u *UnicornCpu) HookAdd(htype int, cb interface{}, start uint64, end uint64) (cpu.Hook, error) {
	// have to wrap all hooks to conform to Cpu interface :(
	var wrap interface{}
	switch htype {
	case cpu.HOOK_MEM_READ, cpu.HOOK_MEM_WRITE, cpu.HOOK_MEM_READ | cpu.HOOK_MEM_WRITE:
		cbc, ok := cb.(func(cpu.Cpu, int, uint64, int, int64))
		if !ok {
			return nil, errors.Errorf("bad callback type %T for memory hook", cb)
		}
		wrap = func(_ uc.Unicorn, access int, addr uint64, size int, val int64) { cbc(u, access, addr, size, val) }

	case cpu.HOOK_MEM_ERR:
		cbc, ok := cb.(func(cpu.Cpu, int, uint64, int, int64) bool)
		if !ok {
			return nil, errors.Errorf("bad callback type %T for fault hook", cb)
		}
		wrap = func(_ uc.Unicorn, access int, addr uint64, size int, val int64) bool {
			return cbc(u, access, addr, size, val)
		}

	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	return u.Unicorn.HookAdd(htype, wrap, start, end)
}

func (u *UnicornCpu) HookDel(hh cpu.Hook) error {
	h, ok := hh.(uc.Hook)
	if !ok {
		return errors.Errorf("not a unicorn hook: %T", hh)
	}
	return u.Unicorn.HookDel(h)
}

// unicorn maps whole pages only
func aligned(addr, size uint64) bool {
	return addr&0xfff == 0 && size&0xfff == 0 && size > 0
}

func (u *UnicornCpu) MemMapProt(addr, size uint64, prot int) error {
	if !aligned(addr, size) {
		return errors.Errorf("mapping %#x(%#x) is not page aligned", addr, size)
	}
	if len(u.pages.FindRange(addr, size)) > 0 {
		return errors.Errorf("mapping %#x(%#x) overlaps existing memory", addr, size)
	}
	data := make([]byte, size)
	if err := u.Unicorn.MemMapPtr(addr, size, prot, unsafe.Pointer(&data[0])); err != nil {
		return errors.Wrapf(err, "MemMapPtr(%#x, %#x) failed", addr, size)
	}
	u.pages = append(u.pages, &cpu.Page{Addr: addr, Size: size, Prot: prot, Data: data})
	sort.Sort(u.pages)
	return nil
}

func (u *UnicornCpu) MemProt(addr, size uint64, prot int) error {
	if err := u.Unicorn.MemProtect(addr, size, prot); err != nil {
		return err
	}
	for _, p := range u.pages.FindRange(addr, size) {
		if p.Addr >= addr && p.Addr+p.Size <= addr+size {
			p.Prot = prot
		}
	}
	return nil
}

// MemUnmap only releases whole mappings, the Go buffer behind a partial unmap would stay pinned.
func (u *UnicornCpu) MemUnmap(addr, size uint64) error {
	var keep cpu.Pages
	for _, p := range u.pages {
		if !p.Overlaps(addr, size) {
			keep = append(keep, p)
			continue
		}
		if p.Addr < addr || p.Addr+p.Size > addr+size {
			return errors.Errorf("partial unmap of %s", p)
		}
	}
	if err := u.Unicorn.MemUnmap(addr, size); err != nil {
		return err
	}
	u.pages = keep
	return nil
}

func (u *UnicornCpu) Mappings() cpu.Pages {
	return u.pages
}

func (u *UnicornCpu) MemSlice(addr, size uint64) ([]byte, error) {
	p := u.pages.Find(addr)
	if p == nil || addr+size > p.Addr+p.Size {
		return nil, &cpu.MemError{Addr: addr, Size: int(size), Enum: cpu.MEM_READ_UNMAPPED}
	}
	o := addr - p.Addr
	return p.Data[o : o+size : o+size], nil
}

func (u *UnicornCpu) Close() error {
	err := u.Unicorn.Close()
	u.pages = nil
	return err
}

var _ cpu.Cpu = &UnicornCpu{}
