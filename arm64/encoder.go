package arm64

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/xyproto/asmforge/buffer"
)

// Encoder is the AArch64 architecture writer bound to a segmented
// buffer. Every emitter method writes one 32-bit instruction word,
// except MovImm, which may write a sequence of up to four (PC-relative
// forms reserve a zero word and register a linkage instead of writing
// the final bytes immediately).
//
// Grounded on the teacher's ARM64Out (arm64_instructions.go): a thin
// wrapper around a writer with one encodeInstr call per mnemonic.
type Encoder struct {
	Buf *buffer.SegmentedBuffer
	// Verbose mirrors the teacher's VerboseMode-gated stderr traces in
	// arm64_codegen.go. Only trace consults it, and no emitter calls
	// trace, so setting it prints nothing.
	Verbose bool
}

// New creates an AArch64 encoder over buf.
func New(buf *buffer.SegmentedBuffer) *Encoder {
	return &Encoder{Buf: buf}
}

func (e *Encoder) trace(format string, args ...any) {
	if e.Verbose {
		fmt.Fprintf(os.Stderr, "arm64: "+format+"\n", args...)
	}
}

// emit writes one little-endian 32-bit instruction word to the
// currently selected section, mirroring the teacher's encodeInstr.
func (e *Encoder) emit(instr uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], instr)
	return e.Buf.Insert(b[:])
}

// reserve writes a zero placeholder word and returns its marker, for
// instructions whose encoding a later linkage step will OR into.
func (e *Encoder) reserve() buffer.Marker {
	m := e.Buf.Current()
	e.Buf.Insert([]byte{0, 0, 0, 0})
	return m
}
