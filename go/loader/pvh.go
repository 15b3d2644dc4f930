package loader

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// from xen/include/public/elfnote.h
const XenElfnotePhys32Entry = 18

const xenNoteName = "Xen"

var noteOptions = &struc.Options{Order: binary.LittleEndian}

type noteHeader struct {
	NameSize uint32
	DescSize uint32
	Type     uint32
}

// pvhNote is the note a PVH-bootable image carries in .note.xen_pvh.
type pvhNote struct {
	NameSize uint32
	DescSize uint32
	Type     uint32
	Name     [4]byte
	Entry    uint32
}

// Note is one entry of an ELF note section.
type Note struct {
	Name string
	Type uint32
	Desc []byte
}

func (n *Note) entry() (uint32, error) {
	switch len(n.Desc) {
	case 4:
		return binary.LittleEndian.Uint32(n.Desc), nil
	case 8:
		v := binary.LittleEndian.Uint64(n.Desc)
		if v>>32 != 0 {
			return 0, errors.Errorf("PVH entry %#x above 4 GiB", v)
		}
		return uint32(v), nil
	}
	return 0, errors.Errorf("bad PVH entry size: %d", len(n.Desc))
}

// PVHNote packs the XEN_ELFNOTE_PHYS32_ENTRY note for a 32-bit entry point.
func PVHNote(entry uint32) ([]byte, error) {
	note := pvhNote{
		NameSize: 4,
		DescSize: 4,
		Type:     XenElfnotePhys32Entry,
		Entry:    entry,
	}
	copy(note.Name[:], xenNoteName)
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &note, noteOptions); err != nil {
		return nil, errors.Wrap(err, "packing PVH note")
	}
	return buf.Bytes(), nil
}

// ParsePVHNote reads back a single PVH note and returns its entry point.
func ParsePVHNote(p []byte) (uint32, error) {
	notes, err := ParseNotes(p)
	if err != nil {
		return 0, err
	}
	if len(notes) != 1 {
		return 0, errors.Errorf("expected one note, found %d", len(notes))
	}
	n := notes[0]
	if n.Name != xenNoteName || n.Type != XenElfnotePhys32Entry {
		return 0, errors.Errorf("not a PVH note: name %q type %d", n.Name, n.Type)
	}
	return n.entry()
}

// ParseNotes splits a note section into its entries. Name and descriptor are 4-byte padded.
func ParseNotes(p []byte) ([]Note, error) {
	var notes []Note
	r := bytes.NewReader(p)
	for r.Len() > 0 {
		var hdr noteHeader
		if err := struc.UnpackWithOptions(r, &hdr, noteOptions); err != nil {
			return nil, errors.Wrap(err, "reading note header")
		}
		nameLen, descLen := align4(uint64(hdr.NameSize)), align4(uint64(hdr.DescSize))
		if nameLen+descLen > uint64(r.Len()) {
			return nil, errors.Errorf("note sizes %#x+%#x overrun section (%#x bytes left)", hdr.NameSize, hdr.DescSize, r.Len())
		}
		name := make([]byte, nameLen)
		desc := make([]byte, descLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, errors.Wrap(err, "reading note name")
		}
		if _, err := io.ReadFull(r, desc); err != nil {
			return nil, errors.Wrap(err, "reading note descriptor")
		}
		notes = append(notes, Note{
			Name: strings.TrimRight(string(name[:hdr.NameSize]), "\x00"),
			Type: hdr.Type,
			Desc: desc[:hdr.DescSize],
		})
	}
	return notes, nil
}
