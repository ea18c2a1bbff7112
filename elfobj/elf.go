package elfobj

import (
	"encoding/binary"
	"sort"

	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

// DefaultMount is the page-aligned load address used when a caller
// has no site-specific requirement, matching the conventional static
// executable base shared by the x86-64 and AArch64 Linux ABIs this
// module targets (spec §4.5, "Default load address constant").
const DefaultMount uint64 = 0x400000

const (
	etNone uint16 = 0
	etRel  uint16 = 1
	etExec uint16 = 2
)

const (
	emX86_64  uint16 = 0x3E
	emAArch64 uint16 = 0xB7
)

const (
	ptLoad uint32 = 1
)

const (
	pfX uint32 = 1
	pfW uint32 = 2
	pfR uint32 = 4
)

const (
	shtNull     uint32 = 0
	shtProgbits uint32 = 1
	shtSymtab   uint32 = 2
	shtStrtab   uint32 = 3
)

const (
	stbLocal  = 0
	stbGlobal = 1
	stbWeak   = 2
)

const (
	sttObject = 1
	sttFunc   = 2
)

const (
	stvDefault   = 0
	stvHidden    = 2
	stvProtected = 3
)

const (
	fileHeaderSize    = 64
	programHeaderSize = 56
	sectionHeaderSize = 64
	symbolSize        = 24
)

func machineOf(m buffer.Machine) uint16 {
	if m == buffer.MachineARM64 {
		return emAArch64
	}
	return emX86_64
}

func segFlagsOf(f buffer.Flags) uint32 {
	var v uint32
	if f&buffer.R != 0 {
		v |= pfR
	}
	if f&buffer.W != 0 {
		v |= pfW
	}
	if f&buffer.X != 0 {
		v |= pfX
	}
	return v
}

// symbolInfo is one export, resolved against the buffer's labels and
// segments, ready to place in .symtab/.strtab.
type symbolInfo struct {
	name    string
	value   uint64
	size    uint64
	binding uint8
	typ     uint8
	vis     uint8
}

// Object is a baked, ready-to-save-or-execute ELF-64 image.
type Object struct {
	Bytes []byte
}

// Build serializes buf into a standalone ELF-64 image mounted at
// address. When entry is non-nil, the object is typed EXEC with its
// entry point resolved to that label; otherwise it is typed REL and
// carries no entry point, per spec §4.5. Exactly one LOAD program
// header is emitted per non-empty segment, page-aligned, with R/W/X
// flags taken from the segment. When buf carries exports, a
// .symtab/.strtab pair is appended with local symbols ordered before
// non-local ones, matching the ordering .symtab's sh_info reports.
func Build(buf *buffer.SegmentedBuffer, entry *label.Label, address uint64, errHandler func(label.Label, buffer.Marker, error)) (*Object, error) {
	page := int64(hostPageSize())
	buf.Align(page)
	if err := buf.Link(address, errHandler); err != nil {
		return nil, err
	}

	var entryAddr uint64
	fileType := etRel
	if entry != nil {
		fileType = etExec
		m, err := buf.GetLabel(*entry)
		if err != nil {
			return nil, err
		}
		entryAddr = buf.GetPointer(m, address)
	}

	a := newArena()
	ehdr := a.child(0, 0)
	phdrs := a.child(0, 0)
	segRoot := a.child(0, 0)
	shdrs := a.child(0, 0)

	type loadSeg struct {
		chunk    int
		flags    uint32
		vaddr    uint64
		fileSize uint64
		memSize  uint64
	}

	var loads []loadSeg
	vaddr := address
	for _, seg := range buf.Segments() {
		if seg.Empty() {
			continue
		}
		sc := a.child(segRoot, page)
		a.write(sc, seg.Bytes)
		a.push(sc, seg.Tail)
		loads = append(loads, loadSeg{
			chunk:    sc,
			flags:    segFlagsOf(seg.Flags),
			vaddr:    vaddr,
			fileSize: uint64(len(seg.Bytes)),
			memSize:  uint64(len(seg.Bytes) + seg.Tail),
		})
		vaddr += uint64(len(seg.Bytes) + seg.Tail)
	}

	for _, l := range loads {
		l := l
		ph := a.child(phdrs, 0)
		a.reserve(ph, programHeaderSize, func(b []byte) {
			writeProgramHeader(b, ptLoad, l.flags, uint64(a.offsetOf(l.chunk)), l.vaddr, l.fileSize, l.memSize, uint64(page))
		})
	}

	// .shstrtab always exists; .symtab/.strtab only when there are
	// exports to describe.
	shstrtab := newStringTable()
	nullName := shstrtab.add("")
	shstrtabName := shstrtab.add(".shstrtab")

	symbols := resolveSymbols(buf, address)

	var symtabSecName, strtabSecName uint32
	var symtabChunk, strtabChunk int
	var localCount int
	haveSymbols := len(symbols) > 0
	if haveSymbols {
		symtabSecName = shstrtab.add(".symtab")
		strtabSecName = shstrtab.add(".strtab")

		strtab := newStringTable()
		symtabChunk = a.child(segRoot, 8)
		a.push(symtabChunk, symbolSize) // STN_UNDEF, the null symbol

		for _, sym := range symbols {
			if sym.binding != stbLocal {
				continue
			}
			localCount++
			nameOff := strtab.add(sym.name)
			var entry [symbolSize]byte
			writeSymbol(entry[:], nameOff, sym.binding, sym.typ, sym.vis, sym.value, sym.size)
			a.write(symtabChunk, entry[:])
		}
		for _, sym := range symbols {
			if sym.binding == stbLocal {
				continue
			}
			nameOff := strtab.add(sym.name)
			var entry [symbolSize]byte
			writeSymbol(entry[:], nameOff, sym.binding, sym.typ, sym.vis, sym.value, sym.size)
			a.write(symtabChunk, entry[:])
		}

		strtabChunk = a.child(segRoot, 1)
		a.write(strtabChunk, strtab.bytes)
	}

	shstrtabChunk := a.child(segRoot, 1)
	a.write(shstrtabChunk, shstrtab.bytes)

	// null section header (index 0).
	nullSH := a.child(shdrs, 0)
	a.reserve(nullSH, sectionHeaderSize, func(b []byte) {
		writeSectionHeader(b, nullName, shtNull, 0, 0, 0, 0, 0, 0, 0, 0)
	})

	shstrtabIndex := 1
	shstrSH := a.child(shdrs, 0)
	a.reserve(shstrSH, sectionHeaderSize, func(b []byte) {
		writeSectionHeader(b, shstrtabName, shtStrtab, 0, 0, uint64(a.offsetOf(shstrtabChunk)), uint64(a.len(shstrtabChunk)), 0, 0, 1, 0)
	})

	if haveSymbols {
		const strtabIndex uint32 = 3

		symSH := a.child(shdrs, 0)
		a.reserve(symSH, sectionHeaderSize, func(b []byte) {
			writeSectionHeader(b, symtabSecName, shtSymtab, 0, 0, uint64(a.offsetOf(symtabChunk)), uint64(a.len(symtabChunk)), strtabIndex, uint32(1+localCount), 8, symbolSize)
		})

		strSH := a.child(shdrs, 0)
		a.reserve(strSH, sectionHeaderSize, func(b []byte) {
			writeSectionHeader(b, strtabSecName, shtStrtab, 0, 0, uint64(a.offsetOf(strtabChunk)), uint64(a.len(strtabChunk)), 0, 0, 1, 0)
		})
	}

	numPhdrs := len(loads)
	a.reserve(ehdr, fileHeaderSize, func(b []byte) {
		writeFileHeader(b, machineOf(buf.Machine), fileType, entryAddrOrZero(entry, entryAddr),
			uint64(a.offsetOf(phdrs)), uint64(a.offsetOf(shdrs)), numPhdrs, a.regions(shdrs), uint16(shstrtabIndex))
	})

	return &Object{Bytes: a.bake()}, nil
}

func entryAddrOrZero(entry *label.Label, addr uint64) uint64 {
	if entry == nil {
		return 0
	}
	return addr
}

// resolveSymbols turns buf's export list into symbolInfo records and
// stably partitions them so locals come first, each bucket keeping
// insertion order; Build writes them in that order, which is what
// .symtab's sh_info reports. Exports whose label is unbound or
// anonymous are skipped.
func resolveSymbols(buf *buffer.SegmentedBuffer, address uint64) []symbolInfo {
	exports := buf.Exports()
	out := make([]symbolInfo, 0, len(exports))
	for _, exp := range exports {
		if !exp.Label.IsText() {
			continue
		}
		m, err := buf.GetLabel(exp.Label)
		if err != nil {
			continue
		}
		seg := buf.SegmentAt(m)
		typ := uint8(sttObject)
		if seg.Flags&buffer.X != 0 {
			typ = sttFunc
		}
		var binding uint8
		var vis uint8
		switch exp.Visibility {
		case buffer.Public:
			binding, vis = stbGlobal, stvProtected
		case buffer.Weak:
			binding, vis = stbWeak, stvProtected
		default:
			binding, vis = stbLocal, stvHidden
		}
		out = append(out, symbolInfo{
			name:    exp.Label.Name(),
			value:   buf.GetPointer(m, address),
			size:    exp.Size,
			binding: binding,
			typ:     typ,
			vis:     vis,
		})
	}
	// stable partition, preserving each bucket's original order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].binding == stbLocal && out[j].binding != stbLocal
	})
	return out
}

func writeFileHeader(b []byte, machine, fileType uint16, entry, phoff, shoff uint64, phnum, shnum int, shstrndx uint16) {
	b[0], b[1], b[2], b[3] = 0x7F, 'E', 'L', 'F'
	b[4] = 2 // ELFCLASS64
	b[5] = 1 // ELFDATA2LSB
	b[6] = 1 // EV_CURRENT
	b[7] = 0 // ELFOSABI_SYSV
	// bytes 8..15 (ABI version + pad) left zero
	binary.LittleEndian.PutUint16(b[16:], fileType)
	binary.LittleEndian.PutUint16(b[18:], machine)
	binary.LittleEndian.PutUint32(b[20:], 1) // EV_CURRENT
	binary.LittleEndian.PutUint64(b[24:], entry)
	binary.LittleEndian.PutUint64(b[32:], phoff)
	binary.LittleEndian.PutUint64(b[40:], shoff)
	binary.LittleEndian.PutUint32(b[48:], 0) // e_flags
	binary.LittleEndian.PutUint16(b[52:], fileHeaderSize)
	binary.LittleEndian.PutUint16(b[54:], programHeaderSize)
	binary.LittleEndian.PutUint16(b[56:], uint16(phnum))
	binary.LittleEndian.PutUint16(b[58:], sectionHeaderSize)
	binary.LittleEndian.PutUint16(b[60:], uint16(shnum))
	binary.LittleEndian.PutUint16(b[62:], shstrndx)
}

func writeProgramHeader(b []byte, typ, flags uint32, offset, vaddr, filesz, memsz, align uint64) {
	binary.LittleEndian.PutUint32(b[0:], typ)
	binary.LittleEndian.PutUint32(b[4:], flags)
	binary.LittleEndian.PutUint64(b[8:], offset)
	binary.LittleEndian.PutUint64(b[16:], vaddr)
	binary.LittleEndian.PutUint64(b[24:], vaddr) // paddr, irrelevant on Linux
	binary.LittleEndian.PutUint64(b[32:], filesz)
	binary.LittleEndian.PutUint64(b[40:], memsz)
	binary.LittleEndian.PutUint64(b[48:], align)
}

func writeSectionHeader(b []byte, name, typ uint32, flags, addr, offset, size uint64, link, info uint32, addralign, entsize uint64) {
	binary.LittleEndian.PutUint32(b[0:], name)
	binary.LittleEndian.PutUint32(b[4:], typ)
	binary.LittleEndian.PutUint64(b[8:], flags)
	binary.LittleEndian.PutUint64(b[16:], addr)
	binary.LittleEndian.PutUint64(b[24:], offset)
	binary.LittleEndian.PutUint64(b[32:], size)
	binary.LittleEndian.PutUint32(b[40:], link)
	binary.LittleEndian.PutUint32(b[44:], info)
	binary.LittleEndian.PutUint64(b[48:], addralign)
	binary.LittleEndian.PutUint64(b[56:], entsize)
}

func writeSymbol(b []byte, name uint32, binding, typ, vis uint8, value, size uint64) {
	binary.LittleEndian.PutUint32(b[0:], name)
	b[4] = binding<<4 | (typ & 0xF)
	b[5] = vis
	binary.LittleEndian.PutUint16(b[6:], 0) // shndx: left undefined, this is not a linkable relocatable object
	binary.LittleEndian.PutUint64(b[8:], value)
	binary.LittleEndian.PutUint64(b[16:], size)
}
