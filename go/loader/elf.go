package loader

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/models"
)

var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

func MatchElf(r io.ReaderAt) bool {
	return bytes.Equal(getMagic(r), elfMagic)
}

// MissingSymbolsError names every linker symbol an image failed to define.
type MissingSymbolsError struct {
	Names []string
}

func (e *MissingSymbolsError) Error() string {
	return fmt.Sprintf("missing linker symbols: %s", strings.Join(e.Names, ", "))
}

// ElfImage is a loader image: a 64-bit x86 ELF carrying the boot stub and the loader.
type ElfImage struct {
	file  *elf.File
	entry uint64
}

func NewElfImage(r io.ReaderAt) (*ElfImage, error) {
	if !MatchElf(r) {
		return nil, errors.New("not an ELF image")
	}
	file, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing ELF")
	}
	if file.Class != elf.ELFCLASS64 {
		return nil, errors.Errorf("unsupported ELF class: %s", file.Class)
	}
	if file.Machine != elf.EM_X86_64 {
		return nil, errors.Errorf("unsupported machine: %s", file.Machine)
	}
	return &ElfImage{file: file, entry: file.Entry}, nil
}

func (e *ElfImage) Entry() uint64 {
	return e.entry
}

// Symbols resolves the linker symbols from the image's symbol table.
func (e *ElfImage) Symbols() (*models.LinkerSymbols, error) {
	syms, err := e.file.Symbols()
	if err != nil {
		return nil, errors.Wrap(err, "reading symbol table")
	}
	out := &models.LinkerSymbols{}
	fields := out.Fields()
	found := make(map[string]bool, len(fields))
	for _, sym := range syms {
		if p, ok := fields[sym.Name]; ok {
			*p = sym.Value
			found[sym.Name] = true
		}
	}
	var missing []string
	for name := range fields {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingSymbolsError{missing}
	}
	return out, nil
}

// PVHEntry scans the image's note sections for the Xen PVH entry point.
func (e *ElfImage) PVHEntry() (uint32, bool, error) {
	for _, sec := range e.file.Sections {
		if sec.Type != elf.SHT_NOTE {
			continue
		}
		data, err := ioutil.ReadAll(sec.Open())
		if err != nil {
			return 0, false, errors.Wrapf(err, "reading %s", sec.Name)
		}
		notes, err := ParseNotes(data)
		if err != nil {
			return 0, false, errors.Wrapf(err, "parsing %s", sec.Name)
		}
		for _, n := range notes {
			if n.Name == xenNoteName && n.Type == XenElfnotePhys32Entry {
				entry, err := n.entry()
				return entry, err == nil, err
			}
		}
	}
	return 0, false, nil
}

// Symbols is shorthand for resolving the linker symbols of an ELF image.
func Symbols(r io.ReaderAt) (*models.LinkerSymbols, error) {
	img, err := NewElfImage(r)
	if err != nil {
		return nil, err
	}
	return img.Symbols()
}
