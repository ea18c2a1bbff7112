package elfobj

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
	"github.com/xyproto/asmforge/x86"
)

func buildExitProgram(t *testing.T) *buffer.SegmentedBuffer {
	t.Helper()
	buf := buffer.New(buffer.MachineX86_64)
	buf.UseSection(buffer.X | buffer.R)
	e := x86.New(buf)
	start := label.New("_start")

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(buf.AddLabel(start))
	must(e.MovImm(x86.Reg(x86.RBX), 42)) // exit status
	must(e.MovImm(x86.Reg(x86.RAX), 1))  // sys_exit on the old int 0x80 ABI
	must(e.Int(0x80))
	return buf
}

// TestBuildExecHeader is spec §8 scenario 6's static shape: one
// executable+read LOAD segment, EXEC type, entry point resolved to
// _start's mapped address.
func TestBuildExecHeader(t *testing.T) {
	buf := buildExitProgram(t)
	// Build is handed a fresh label built from the same name; content
	// equality means it resolves against the one bound inside the buffer.
	entryLabel := label.New("_start")
	obj, err := Build(buf, &entryLabel, DefaultMount, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	b := obj.Bytes
	if len(b) < fileHeaderSize {
		t.Fatalf("image too small: %d bytes", len(b))
	}
	if b[0] != 0x7F || b[1] != 'E' || b[2] != 'L' || b[3] != 'F' {
		t.Fatalf("missing ELF magic: % X", b[:4])
	}
	if b[4] != 2 {
		t.Fatalf("e_ident[EI_CLASS] = %d, want 2 (ELFCLASS64)", b[4])
	}
	if got := binary.LittleEndian.Uint16(b[16:]); got != etExec {
		t.Fatalf("e_type = %d, want ET_EXEC (%d)", got, etExec)
	}
	if got := binary.LittleEndian.Uint16(b[18:]); got != emX86_64 {
		t.Fatalf("e_machine = %#x, want %#x", got, emX86_64)
	}
	if got := binary.LittleEndian.Uint16(b[56:]); got != 1 {
		t.Fatalf("e_phnum = %d, want 1 (one non-empty LOAD segment)", got)
	}
	entryVal := binary.LittleEndian.Uint64(b[24:])
	if entryVal != DefaultMount {
		t.Fatalf("e_entry = %#x, want %#x (the segment's base, since _start is its first byte)", entryVal, DefaultMount)
	}
}

// TestBuildRelocatableWhenNoEntry exercises spec §4.5: an empty entry
// label types the object REL instead of EXEC.
func TestBuildRelocatableWhenNoEntry(t *testing.T) {
	buf := buildExitProgram(t)
	obj, err := Build(buf, nil, DefaultMount, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := binary.LittleEndian.Uint16(obj.Bytes[16:]); got != etRel {
		t.Fatalf("e_type = %d, want ET_REL (%d)", got, etRel)
	}
	if got := binary.LittleEndian.Uint64(obj.Bytes[24:]); got != 0 {
		t.Fatalf("e_entry = %#x, want 0 for a relocatable object", got)
	}
}

// TestBuildExportsSymtabOrdering exercises spec §4.5: locals precede
// non-locals, and sh_info on .symtab reports the local count.
func TestBuildExportsSymtabOrdering(t *testing.T) {
	buf := buffer.New(buffer.MachineX86_64)
	buf.UseSection(buffer.X | buffer.R)
	e := x86.New(buf)
	priv := label.New("helper")
	pub := label.New("public_api")

	if err := buf.AddLabel(priv); err != nil {
		t.Fatalf("AddLabel priv: %v", err)
	}
	if err := e.Ret(); err != nil {
		t.Fatalf("Ret: %v", err)
	}
	if err := buf.AddLabel(pub); err != nil {
		t.Fatalf("AddLabel pub: %v", err)
	}
	if err := e.Ret(); err != nil {
		t.Fatalf("Ret: %v", err)
	}
	buf.AddExport(pub, buffer.Public, 1)
	buf.AddExport(priv, buffer.Private, 1)

	obj, err := Build(buf, nil, DefaultMount, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(obj.Bytes) == 0 {
		t.Fatal("empty image")
	}

	// Section headers: null, .shstrtab, .symtab, .strtab.
	b := obj.Bytes
	shoff := binary.LittleEndian.Uint64(b[40:])
	symSH := b[shoff+2*sectionHeaderSize:]
	if typ := binary.LittleEndian.Uint32(symSH[4:]); typ != shtSymtab {
		t.Fatalf("section 2 type = %d, want SHT_SYMTAB (%d)", typ, shtSymtab)
	}
	if info := binary.LittleEndian.Uint32(symSH[44:]); info != 2 {
		t.Fatalf(".symtab sh_info = %d, want 2 (null symbol + one local)", info)
	}
	symOff := binary.LittleEndian.Uint64(symSH[24:])
	if bind := b[symOff+symbolSize+4] >> 4; bind != stbLocal {
		t.Fatalf("symbol 1 binding = %d, want STB_LOCAL", bind)
	}
	if bind := b[symOff+2*symbolSize+4] >> 4; bind != stbGlobal {
		t.Fatalf("symbol 2 binding = %d, want STB_GLOBAL", bind)
	}
}

// TestSaveWritesExecutableFile exercises the on-disk execution mode:
// Save must produce a file with the owner-execute bit set.
func TestSaveWritesExecutableFile(t *testing.T) {
	buf := buildExitProgram(t)
	entryLabel := label.New("_start")
	obj, err := Build(buf, &entryLabel, DefaultMount, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	path := t.TempDir() + "/prog"
	if err := obj.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if info.Mode()&0o100 == 0 {
		t.Fatalf("saved file mode %o is not owner-executable", info.Mode())
	}
}
