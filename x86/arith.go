package x86

import "github.com/xyproto/asmforge/asmerr"

// arithIndex is the 3-bit reg-field selector for the eight-member
// arithmetic tuple (ADD/OR/ADC/SBB/AND/SUB/XOR/CMP), identical across
// every encoding form (00/r, 01/r, 02/r, 03/r, 04 ib, 05 iz, group1 /n).
type arithIndex uint8

const (
	arithAdd arithIndex = 0
	arithOr  arithIndex = 1
	arithAdc arithIndex = 2
	arithSbb arithIndex = 3
	arithAnd arithIndex = 4
	arithSub arithIndex = 5
	arithXor arithIndex = 6
	arithCmp arithIndex = 7
)

// arithBinary emits the register/memory form of one arithmetic-tuple
// member: dst,src where at most one of dst/src is memory.
func (e *Encoder) arithBinary(idx arithIndex, dst, src Location) error {
	size, err := checkBinarySizes(dst, src)
	if err != nil {
		return err
	}
	base := byte(idx) * 8
	if dst.IsMemory {
		opcode := base + 0x01
		if size == Byte {
			opcode = base + 0x00
		}
		return e.emitModRM(opcode, false, regOf(src.Reg), dst, size)
	}
	if src.IsMemory {
		opcode := base + 0x03
		if size == Byte {
			opcode = base + 0x02
		}
		return e.emitModRM(opcode, false, regOf(dst.Reg), src, size)
	}
	opcode := base + 0x01
	if size == Byte {
		opcode = base + 0x00
	}
	return e.emitModRM(opcode, false, regOf(src.Reg), dst, size)
}

// arithImm emits the immediate form: a group-1 opcode (0x80/0x81/0x83)
// with idx as the opcode-extension /digit, using the sign-extended
// 8-bit immediate form (0x83) whenever imm fits in 8 bits and the
// destination is wider than a byte.
func (e *Encoder) arithImm(idx arithIndex, dst Location, imm int64) error {
	if dst.Size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	if dst.Size == Byte {
		if err := fitsSigned(imm, 1); err != nil {
			return err
		}
		e.ripSuffix = 1
		if err := e.emitModRM(0x80, false, opExt(uint8(idx)), dst, dst.Size); err != nil {
			return err
		}
		return e.emitImm(imm, 1)
	}
	if imm >= -128 && imm <= 127 {
		e.ripSuffix = 1
		if err := e.emitModRM(0x83, false, opExt(uint8(idx)), dst, dst.Size); err != nil {
			return err
		}
		return e.emitImm(imm, 1)
	}
	width := 4
	if dst.Size == Word {
		width = 2
	}
	if err := fitsSigned(imm, width); err != nil {
		return err
	}
	e.ripSuffix = width
	if err := e.emitModRM(0x81, false, opExt(uint8(idx)), dst, dst.Size); err != nil {
		return err
	}
	return e.emitImm(imm, width)
}

func (e *Encoder) Add(dst, src Location) error    { return e.arithBinary(arithAdd, dst, src) }
func (e *Encoder) AddImm(dst Location, v int64) error { return e.arithImm(arithAdd, dst, v) }
func (e *Encoder) Or(dst, src Location) error     { return e.arithBinary(arithOr, dst, src) }
func (e *Encoder) OrImm(dst Location, v int64) error { return e.arithImm(arithOr, dst, v) }
func (e *Encoder) Adc(dst, src Location) error    { return e.arithBinary(arithAdc, dst, src) }
func (e *Encoder) AdcImm(dst Location, v int64) error { return e.arithImm(arithAdc, dst, v) }
func (e *Encoder) Sbb(dst, src Location) error    { return e.arithBinary(arithSbb, dst, src) }
func (e *Encoder) SbbImm(dst Location, v int64) error { return e.arithImm(arithSbb, dst, v) }
func (e *Encoder) And(dst, src Location) error    { return e.arithBinary(arithAnd, dst, src) }
func (e *Encoder) AndImm(dst Location, v int64) error { return e.arithImm(arithAnd, dst, v) }
func (e *Encoder) Sub(dst, src Location) error    { return e.arithBinary(arithSub, dst, src) }
func (e *Encoder) SubImm(dst Location, v int64) error { return e.arithImm(arithSub, dst, v) }
func (e *Encoder) Xor(dst, src Location) error    { return e.arithBinary(arithXor, dst, src) }
func (e *Encoder) XorImm(dst Location, v int64) error { return e.arithImm(arithXor, dst, v) }
func (e *Encoder) Cmp(dst, src Location) error    { return e.arithBinary(arithCmp, dst, src) }
func (e *Encoder) CmpImm(dst Location, v int64) error { return e.arithImm(arithCmp, dst, v) }

// Test emits TEST dst, src (register/memory form, group 0x84/0x85).
func (e *Encoder) Test(dst, src Location) error {
	size, err := checkBinarySizes(dst, src)
	if err != nil {
		return err
	}
	opcode := byte(0x85)
	if size == Byte {
		opcode = 0x84
	}
	if src.IsMemory {
		return e.emitModRM(opcode, false, regOf(dst.Reg), src, size)
	}
	return e.emitModRM(opcode, false, regOf(src.Reg), dst, size)
}

// TestImm emits TEST r/m, imm (group-3 opcode 0xF6/0xF7, /0).
func (e *Encoder) TestImm(dst Location, imm int64) error {
	if dst.Size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	opcode := byte(0xF7)
	width := 4
	if dst.Size == Byte {
		opcode = 0xF6
		width = 1
	} else if dst.Size == Word {
		width = 2
	}
	if err := fitsSigned(imm, width); err != nil {
		return err
	}
	e.ripSuffix = width
	if err := e.emitModRM(opcode, false, opExt(0), dst, dst.Size); err != nil {
		return err
	}
	return e.emitImm(imm, width)
}

// unaryGroup emits a group-3 or group-4/5 single-operand instruction
// (NOT/NEG/MUL/IMUL/DIV/IDIV use 0xF6/0xF7; INC/DEC use 0xFE/0xFF).
func (e *Encoder) unaryGroup(opcode8, opcodeWide byte, ext uint8, dst Location) error {
	if dst.Size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	opcode := opcodeWide
	if dst.Size == Byte {
		opcode = opcode8
	}
	if dst.IsMemory {
		return e.emitModRM(opcode, false, opExt(ext), dst, dst.Size)
	}
	return e.emitModRM(opcode, false, opExt(ext), dst, dst.Size)
}

// Not emits NOT dst (one's complement negation in place).
func (e *Encoder) Not(dst Location) error { return e.unaryGroup(0xF6, 0xF7, 2, dst) }

// Neg emits NEG dst (two's complement negation in place).
func (e *Encoder) Neg(dst Location) error { return e.unaryGroup(0xF6, 0xF7, 3, dst) }

// Mul emits unsigned MUL dst (implicit accumulator operand).
func (e *Encoder) Mul(dst Location) error { return e.unaryGroup(0xF6, 0xF7, 4, dst) }

// ImulOne emits one-operand signed IMUL dst (implicit accumulator operand).
func (e *Encoder) ImulOne(dst Location) error { return e.unaryGroup(0xF6, 0xF7, 5, dst) }

// Div emits unsigned DIV dst (implicit accumulator operand, per spec
// §4.3 "DIV/IDIV dispatch shape" grounded on div.go's dispatch style).
func (e *Encoder) Div(dst Location) error { return e.unaryGroup(0xF6, 0xF7, 6, dst) }

// Idiv emits signed IDIV dst.
func (e *Encoder) Idiv(dst Location) error { return e.unaryGroup(0xF6, 0xF7, 7, dst) }

// Inc emits INC dst using the long ModRM form (0xFE/0xFF /0); the
// legacy single-byte 0x40+r short form does not exist once a REX
// prefix is required, so x86-64 always uses the ModRM form.
func (e *Encoder) Inc(dst Location) error { return e.unaryGroup(0xFE, 0xFF, 0, dst) }

// Dec emits DEC dst (0xFE/0xFF /1).
func (e *Encoder) Dec(dst Location) error { return e.unaryGroup(0xFE, 0xFF, 1, dst) }

// Imul emits two-operand signed IMUL dst, src (0x0F 0xAF /r).
func (e *Encoder) Imul(dst, src Location) error {
	if dst.IsMemory {
		return asmerr.New(asmerr.OperandShape, "IMUL destination must be a register")
	}
	size, err := checkBinarySizes(dst, src)
	if err != nil {
		return err
	}
	if size == Byte {
		return asmerr.New(asmerr.OperandShape, "IMUL two-operand form requires a word-or-wider destination")
	}
	return e.emitModRMLong(0xAF, regOf(dst.Reg), src, size)
}
