package cpu

// This interface abstracts the machine the boot core runs on: physical memory and a register file.
// The simulated machine (Sim) and the unicorn backend both implement it.
type Cpu interface {
	// memory mapping
	MemMapProt(addr, size uint64, prot int) error
	MemProt(addr, size uint64, prot int) error
	MemUnmap(addr, size uint64) error
	Mappings() Pages

	// memory IO
	MemRead(addr, size uint64) ([]byte, error)
	MemReadInto(p []byte, addr uint64) error
	MemWrite(addr uint64, p []byte) error
	// MemSlice returns a view aliasing mapped memory. The range must sit inside one mapping.
	MemSlice(addr, size uint64) ([]byte, error)

	// register IO
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64) (Hook, error)
	HookDel(hook Hook) error

	// cleanup
	Close() error
}
