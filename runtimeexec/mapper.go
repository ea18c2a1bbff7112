// Package runtimeexec implements the in-process runtime mapper from
// spec §4.4: it takes a finished segmented buffer, maps it into one
// anonymous private mapping, applies per-section page protection, and
// exposes typed invocation helpers into the mapped code.
//
// Grounded on the teacher's HotReloadManager (hotreload_unix.go):
// AllocateExecutablePage/CopyCode/FreePage already do "mmap RWX private
// anon, memcpy code in, munmap on release" for one flat region. This
// package generalizes that to the segmented buffer's many flag-tagged
// sections and replaces the teacher's raw syscall.Syscall6(SYS_MMAP, …)
// with golang.org/x/sys/unix, the same swap xyproto-vibe67 makes for
// its own hot-reload mapper (see DESIGN.md).
package runtimeexec

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xyproto/asmforge/asmerr"
	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

// Mapper owns one anonymous executable mapping produced from a sealed
// segmented buffer. It is thread-compatible, not thread-safe, per
// spec §5's scheduling model.
type Mapper struct {
	buf  *buffer.SegmentedBuffer
	raw  []byte
	base uint64
}

// Map seals buf (aligning it to the host page size if it is not
// already), copies every section's bytes into one private anonymous
// mapping, resolves every linkage against the mapping's real address,
// and applies each section's R/W/X flags as the mapping's page
// protection. errHandler is forwarded to buf.Link; nil aborts linking
// at the first failure.
func Map(buf *buffer.SegmentedBuffer, errHandler func(l label.Label, m buffer.Marker, err error)) (*Mapper, error) {
	page := int64(unix.Getpagesize())
	buf.Align(page)

	total := int(buf.TotalSize())
	if total == 0 {
		return nil, asmerr.New(asmerr.AllocationFailure, "refusing to map an empty buffer")
	}

	raw, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, asmerr.Wrap(asmerr.AllocationFailure, err, "mmap %d bytes", total)
	}

	base := uint64(uintptr(unsafe.Pointer(&raw[0])))
	if err := buf.Link(base, errHandler); err != nil {
		unix.Munmap(raw)
		return nil, err
	}

	for _, seg := range buf.Segments() {
		if seg.Empty() {
			continue
		}
		n := copy(raw[seg.Start:], seg.Bytes)
		for i := seg.Start + int64(n); i < seg.Start+int64(n)+int64(seg.Tail); i++ {
			raw[i] = seg.Pad
		}
	}

	m := &Mapper{buf: buf, raw: raw, base: base}
	for _, seg := range buf.Segments() {
		if seg.Empty() {
			continue
		}
		size := int64(len(seg.Bytes)) + int64(seg.Tail)
		if err := unix.Mprotect(raw[seg.Start:seg.Start+size], protOf(seg.Flags)); err != nil {
			unix.Munmap(raw)
			return nil, asmerr.Wrap(asmerr.AllocationFailure, err, "mprotect section %q", seg.Name)
		}
	}
	return m, nil
}

func protOf(f buffer.Flags) int {
	var p int
	if f&buffer.R != 0 {
		p |= unix.PROT_READ
	}
	if f&buffer.W != 0 {
		p |= unix.PROT_WRITE
	}
	if f&buffer.X != 0 {
		p |= unix.PROT_EXEC
	}
	return p
}

// Release unmaps the backing memory. The mapper must not be used
// afterward; per spec §4.4, "the mapping is released on drop".
func (m *Mapper) Release() error {
	if m.raw == nil {
		return nil
	}
	err := unix.Munmap(m.raw)
	m.raw = nil
	if err != nil {
		return asmerr.Wrap(asmerr.OsError, err, "munmap")
	}
	return nil
}

// Address returns the base address of the mapping (the start of the
// first non-empty section), for callers that want a raw host pointer.
func (m *Mapper) Address() uintptr { return uintptr(m.base) }

// AddressOf returns the mapped address bound to l.
func (m *Mapper) AddressOf(l label.Label) (uintptr, error) {
	marker, err := m.buf.GetLabel(l)
	if err != nil {
		return 0, err
	}
	return uintptr(m.buf.GetPointer(marker, m.base)), nil
}
