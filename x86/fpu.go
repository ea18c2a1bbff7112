package x86

import "github.com/xyproto/asmforge/asmerr"

// fpuMemOp emits an x87 memory-operand instruction: D9 for single
// (4-byte) precision, DD for double (8-byte) precision, using ext as
// the opcode-extension /digit.
func (e *Encoder) fpuMemOp(ext uint8, mem Location) error {
	if !mem.IsMemory {
		return asmerr.New(asmerr.OperandShape, "x87 memory form requires a memory operand")
	}
	opcode := byte(0xD9)
	switch mem.Size {
	case Dword:
		opcode = 0xD9
	case Qword:
		opcode = 0xDD
	default:
		return asmerr.New(asmerr.OperandShape, "x87 memory operand must be dword or qword")
	}
	return e.emitModRM(opcode, false, opExt(ext), mem, mem.Size)
}

// fpuStackOp emits an x87 ST(i)-relative instruction: base+i with no
// ModRM byte, since the FPU stack register index is encoded directly
// in the opcode's low 3 bits.
func (e *Encoder) fpuStackOp(base byte, i uint8) error {
	if i > 7 {
		return asmerr.New(asmerr.OperandShape, "FPU stack index must be 0-7")
	}
	if err := e.write(0xD9); err != nil {
		return err
	}
	return e.write(base + i)
}

// FldMem emits FLD m32/m64fp, pushing mem onto the FPU stack.
func (e *Encoder) FldMem(mem Location) error { return e.fpuMemOp(0, mem) }

// FldST emits FLD ST(i), duplicating ST(i) onto the top of the stack.
func (e *Encoder) FldST(i uint8) error { return e.fpuStackOp(0xC0, i) }

// FstMem emits FST m32/m64fp, storing (without popping) the top of
// the FPU stack.
func (e *Encoder) FstMem(mem Location) error { return e.fpuMemOp(2, mem) }

// FstpMem emits FSTP m32/m64fp, storing and popping the top of the
// FPU stack.
func (e *Encoder) FstpMem(mem Location) error { return e.fpuMemOp(3, mem) }

// FstpST emits FSTP ST(i), storing ST(0) into ST(i) and popping.
func (e *Encoder) FstpST(i uint8) error { return e.fpuStackOp(0xD8, i) }

// Fxch emits FXCH ST(i), exchanging ST(0) with ST(i).
func (e *Encoder) Fxch(i uint8) error { return e.fpuStackOp(0xC8, i) }

// Fldz emits FLDZ, pushing +0.0 onto the FPU stack.
func (e *Encoder) Fldz() error {
	if err := e.write(0xD9); err != nil {
		return err
	}
	return e.write(0xEE)
}

// Fld1 emits FLD1, pushing +1.0 onto the FPU stack.
func (e *Encoder) Fld1() error {
	if err := e.write(0xD9); err != nil {
		return err
	}
	return e.write(0xE8)
}

// fpuArithMem and fpuArithST are the shared shape for FADD/FSUB/FMUL/FDIV: a memory
// operand form (D8/DC /ext) and a ST(0),ST(i) register form (D8
// C0+base+i, no ModRM).
func (e *Encoder) fpuArithMem(ext uint8, mem Location) error {
	if !mem.IsMemory {
		return asmerr.New(asmerr.OperandShape, "x87 arithmetic memory form requires a memory operand")
	}
	opcode := byte(0xD8)
	switch mem.Size {
	case Dword:
		opcode = 0xD8
	case Qword:
		opcode = 0xDC
	default:
		return asmerr.New(asmerr.OperandShape, "x87 arithmetic memory operand must be dword or qword")
	}
	return e.emitModRM(opcode, false, opExt(ext), mem, mem.Size)
}

func (e *Encoder) fpuArithST(base byte, i uint8) error {
	if i > 7 {
		return asmerr.New(asmerr.OperandShape, "FPU stack index must be 0-7")
	}
	if err := e.write(0xD8); err != nil {
		return err
	}
	return e.write(base + i)
}

func (e *Encoder) FaddMem(mem Location) error { return e.fpuArithMem(0, mem) }
func (e *Encoder) FaddST(i uint8) error       { return e.fpuArithST(0xC0, i) }
func (e *Encoder) FsubMem(mem Location) error { return e.fpuArithMem(4, mem) }
func (e *Encoder) FsubST(i uint8) error       { return e.fpuArithST(0xE0, i) }
func (e *Encoder) FmulMem(mem Location) error { return e.fpuArithMem(1, mem) }
func (e *Encoder) FmulST(i uint8) error       { return e.fpuArithST(0xC8, i) }
func (e *Encoder) FdivMem(mem Location) error { return e.fpuArithMem(6, mem) }
func (e *Encoder) FdivST(i uint8) error       { return e.fpuArithST(0xF0, i) }
