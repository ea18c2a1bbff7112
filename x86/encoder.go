package x86

import (
	"fmt"
	"os"

	"github.com/xyproto/asmforge/buffer"
)

// Encoder is the x86-64 architecture writer bound to a segmented
// buffer, per spec §2 ("constructs an architecture writer bound to
// it"). Callers select a section with Buf.UseSection before calling
// any emitter method; Encoder always writes to the currently selected
// section.
//
// Grounded on the teacher's X86_64CodeGen (x86_64_codegen.go): a thin
// struct wrapping a writer, one method per mnemonic, write/emit
// helpers. Unlike the teacher, operands here are typed Locations, not
// bare register-name strings, since the teacher never validated
// operand shape at all (Flap's own type checker rules out illegal
// combinations earlier in its pipeline).
type Encoder struct {
	Buf *buffer.SegmentedBuffer
	// Verbose mirrors the teacher's VerboseMode-gated stderr traces
	// (mem_ops.go) — opt-in, never required for correctness. Only trace
	// consults it, and no emitter calls trace, so setting it prints
	// nothing.
	Verbose bool

	ripSuffix int // bytes the current instruction will still emit after the ModRM/SIB group
}

// New creates an x86-64 encoder over buf.
func New(buf *buffer.SegmentedBuffer) *Encoder {
	return &Encoder{Buf: buf}
}

func (e *Encoder) trace(format string, args ...any) {
	if e.Verbose {
		fmt.Fprintf(os.Stderr, "x86: "+format+"\n", args...)
	}
}

func (e *Encoder) write(b byte) error { return e.Buf.PushByte(b) }

func (e *Encoder) emit(bs ...byte) error {
	for _, b := range bs {
		if err := e.write(b); err != nil {
			return err
		}
	}
	return nil
}
