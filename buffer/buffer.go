// Package buffer implements the segmented output buffer described in
// spec §4.2: a multi-section byte container with deferred symbolic
// linkage, label markers, and export symbols. It is the seam every
// architecture encoder writes through and every consumer (the runtime
// mapper, the ELF serializer) reads from.
//
// Grounded on the teacher's ExecutableBuilder (codegen_elf_writer.go,
// elf_complete.go), which already keeps separate byte tracks
// (eb.text, eb.rodata) and a deferred-fixup list (callPatches); this
// package generalizes that fixed two-track layout into an arbitrary
// ordered set of flag-tagged sections and that one relocation kind
// into the general Linkage record spec.md requires.
package buffer

import (
	"bytes"
	"fmt"

	"github.com/xyproto/asmforge/asmerr"
	"github.com/xyproto/asmforge/label"
)

// Flags is a bitfield drawn from {R, W, X}, selecting which existing
// section use_section binds to or what a freshly created one carries.
type Flags uint8

const (
	R Flags = 1 << iota
	W
	X
)

// String renders the flag set the way the parser's `section` textual
// directive would: single characters, in R/W/X order.
func (f Flags) String() string {
	s := ""
	if f&R != 0 {
		s += "R"
	}
	if f&W != 0 {
		s += "W"
	}
	if f&X != 0 {
		s += "X"
	}
	if s == "" {
		return "-"
	}
	return s
}

// defaultName picks a conventional ELF-style name for a freshly
// created section of the given flags, matching §4.2's "Name defaults
// per flag set" requirement.
func defaultName(f Flags) string {
	switch {
	case f == X|R:
		return ".text"
	case f == R:
		return ".rodata"
	case f == R|W:
		return ".data"
	case f == W:
		return ".bss"
	default:
		return ".section"
	}
}

// Machine discriminates the target architecture for the ELF
// serializer's machine-type field; it does not affect buffer mechanics.
type Machine int

const (
	MachineX86_64 Machine = iota
	MachineARM64
)

// Marker is a stable (section, offset) pair. It stays valid across
// further appends to any section, since offsets within a section are
// append-only.
type Marker struct {
	Section int
	Offset  int
}

// Segment is one contiguous output track.
type Segment struct {
	Index   int
	Flags   Flags
	Name    string
	Bytes   []byte
	Pad     byte
	sealed  bool
	Start   int64 // file/memory offset, valid only after Align
	Tail    int   // padding length recorded by Align (not appended to Bytes), valid only after Align
}

// Empty reports whether the segment carries no bytes; downstream
// consumers (the ELF serializer, the runtime mapper) skip these.
func (s *Segment) Empty() bool { return len(s.Bytes) == 0 }

// Linker patches the bytes reserved at target when invoked during
// link(base). It must write only the bytes it reserved at emission
// time — linkers are required to be order-independent in effect.
type Linker func(buf *SegmentedBuffer, lk Linkage, base uint64) error

// Linkage is a deferred fix-up: which label to resolve, where to
// write the result, and how.
type Linkage struct {
	Label  label.Label
	Target Marker
	Link   Linker
}

// Visibility controls ELF symbol binding for an exported label.
type Visibility int

const (
	Private Visibility = iota
	Public
	Weak
)

// Export records a label the ELF serializer should expose in the
// object's symbol table.
type Export struct {
	Label      label.Label
	Size       uint64
	Visibility Visibility
}

// SegmentedBuffer owns the ordered sections, the label table, the
// linkage list, and the export list for one assembled image.
type SegmentedBuffer struct {
	Machine  Machine
	segments []*Segment
	selected int
	labels   map[string]Marker
	linkages []Linkage
	exports  []Export
	sealed   bool
}

// New creates an empty buffer targeting the given machine. No section
// is selected until the first UseSection call.
func New(m Machine) *SegmentedBuffer {
	return &SegmentedBuffer{
		Machine:  m,
		labels:   make(map[string]Marker),
		selected: -1,
	}
}

// UseSection selects an existing section whose flags match, or
// creates one, and makes it the write target for subsequent appends.
func (b *SegmentedBuffer) UseSection(flags Flags, name ...string) *Segment {
	for _, s := range b.segments {
		if s.Flags == flags {
			b.selected = s.Index
			return s
		}
	}
	n := defaultName(flags)
	if len(name) > 0 && name[0] != "" {
		n = name[0]
	}
	seg := &Segment{Index: len(b.segments), Flags: flags, Name: n}
	b.segments = append(b.segments, seg)
	b.selected = seg.Index
	return seg
}

// current returns the selected segment, panicking with a programmer
// error if none has been chosen yet — callers (the encoders) always
// call UseSection first, so this is a contract violation, not a user
// facing failure.
func (b *SegmentedBuffer) current() *Segment {
	if b.selected < 0 || b.selected >= len(b.segments) {
		panic("buffer: no section selected; call UseSection first")
	}
	return b.segments[b.selected]
}

func (b *SegmentedBuffer) checkWritable() error {
	if b.sealed {
		return asmerr.New(asmerr.SealViolation, "write attempted after align()")
	}
	return nil
}

// PushByte appends one byte to the selected section.
func (b *SegmentedBuffer) PushByte(v byte) error {
	if err := b.checkWritable(); err != nil {
		return err
	}
	seg := b.current()
	seg.Bytes = append(seg.Bytes, v)
	return nil
}

// Insert appends bytes to the selected section.
func (b *SegmentedBuffer) Insert(bs []byte) error {
	if err := b.checkWritable(); err != nil {
		return err
	}
	seg := b.current()
	seg.Bytes = append(seg.Bytes, bs...)
	return nil
}

// Fill appends n copies of value to the selected section.
func (b *SegmentedBuffer) Fill(n int, value byte) error {
	if err := b.checkWritable(); err != nil {
		return err
	}
	seg := b.current()
	for i := 0; i < n; i++ {
		seg.Bytes = append(seg.Bytes, value)
	}
	return nil
}

// Current returns the marker at the next byte to be written in the
// selected section.
func (b *SegmentedBuffer) Current() Marker {
	seg := b.current()
	return Marker{Section: seg.Index, Offset: len(seg.Bytes)}
}

// AddLabel binds label to Current(). Redefinition is fatal, per the
// uniqueness invariant in spec §3.
func (b *SegmentedBuffer) AddLabel(l label.Label) error {
	if _, exists := b.labels[l.Name()]; exists {
		return asmerr.New(asmerr.LabelRedefinition, "label %q already bound", l.Name())
	}
	b.labels[l.Name()] = b.Current()
	return nil
}

// HasLabel reports whether l is bound.
func (b *SegmentedBuffer) HasLabel(l label.Label) bool {
	_, ok := b.labels[l.Name()]
	return ok
}

// GetLabel returns the marker bound to l.
func (b *SegmentedBuffer) GetLabel(l label.Label) (Marker, error) {
	m, ok := b.labels[l.Name()]
	if !ok {
		return Marker{}, asmerr.New(asmerr.LabelUndefined, "label %q is not defined", l.Name())
	}
	return m, nil
}

// AddLinkage enqueues a fix-up whose target marker is
// (selected-section, current-offset + shift).
func (b *SegmentedBuffer) AddLinkage(l label.Label, shift int, fn Linker) {
	seg := b.current()
	target := Marker{Section: seg.Index, Offset: len(seg.Bytes) + shift}
	b.linkages = append(b.linkages, Linkage{Label: l, Target: target, Link: fn})
}

// AddExport records an export symbol.
func (b *SegmentedBuffer) AddExport(l label.Label, vis Visibility, size uint64) {
	b.exports = append(b.exports, Export{Label: l, Size: size, Visibility: vis})
}

// Exports returns the recorded export list in insertion order.
func (b *SegmentedBuffer) Exports() []Export { return b.exports }

// Segments returns the ordered section list. Callers must not mutate
// segment byte slices directly; write through PushByte/Insert/Fill.
func (b *SegmentedBuffer) Segments() []*Segment { return b.segments }

// Align seals the buffer for further writes: for each section in
// order it records Start as the running page-aligned offset and Tail
// as the number of padding bytes that bring the section up to a page
// boundary. The padding is not appended to Bytes; consumers place it
// after the section themselves. Empty sections are skipped. After
// Align, no further writes to any segment are permitted.
func (b *SegmentedBuffer) Align(page int64) {
	var running int64
	for _, seg := range b.segments {
		if seg.Empty() {
			continue
		}
		seg.Start = running
		size := int64(len(seg.Bytes))
		aligned := alignUp(size, page)
		seg.Tail = int(aligned - size)
		running = running + aligned
	}
	b.sealed = true
}

func alignUp(v, align int64) int64 {
	if align <= 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// Link resolves every pending linkage against base. If errHandler is
// nil the first failure aborts linking and is returned directly;
// otherwise each failure is reported to errHandler (label, marker,
// message) and linking continues.
func (b *SegmentedBuffer) Link(base uint64, errHandler func(l label.Label, m Marker, err error)) error {
	for _, lk := range b.linkages {
		if err := lk.Link(b, lk, base); err != nil {
			if errHandler == nil {
				return err
			}
			errHandler(lk.Label, lk.Target, err)
		}
	}
	return nil
}

// TotalSize returns the sum of every non-empty section's aligned size
// (valid only after Align).
func (b *SegmentedBuffer) TotalSize() int64 {
	var total int64
	for _, seg := range b.segments {
		if seg.Empty() {
			continue
		}
		total += int64(len(seg.Bytes)) + int64(seg.Tail)
	}
	return total
}

// GetOffset returns the file/memory-relative byte offset of a marker,
// valid only after Align.
func (b *SegmentedBuffer) GetOffset(m Marker) int64 {
	seg := b.segments[m.Section]
	return seg.Start + int64(m.Offset)
}

// GetPointer returns the absolute address of a marker given a base
// load address, valid only after Align.
func (b *SegmentedBuffer) GetPointer(m Marker, base uint64) uint64 {
	return base + uint64(b.GetOffset(m))
}

// WriteAt patches len(data) bytes at offset within the segment's byte
// slice. Every linker must call this (or an equivalent shift on the
// same segment) to write its resolved value, since the relocation
// record's target marker always addresses bytes reserved at emission
// time per spec §3's linkage invariant.
func (seg *Segment) WriteAt(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(seg.Bytes) {
		return fmt.Errorf("buffer: patch at %d..%d out of range for section %q (len %d)",
			offset, offset+len(data), seg.Name, len(seg.Bytes))
	}
	copy(seg.Bytes[offset:], data)
	return nil
}

// SegmentAt returns the segment a marker belongs to.
func (b *SegmentedBuffer) SegmentAt(m Marker) *Segment { return b.segments[m.Section] }

// dump is a small debug helper mirroring the teacher's verbose
// stderr traces (mem_ops.go); Dump wraps it so callers that want
// section dumps don't need their own.
func (b *SegmentedBuffer) dump() *bytes.Buffer {
	var out bytes.Buffer
	for _, s := range b.segments {
		fmt.Fprintf(&out, "section %d %q flags=%s size=%d\n", s.Index, s.Name, s.Flags, len(s.Bytes))
	}
	return &out
}

// Dump renders a short human-readable listing of sections, useful in
// verbose CLI output.
func (b *SegmentedBuffer) Dump() string { return b.dump().String() }
