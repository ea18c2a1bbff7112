package x86

import "github.com/xyproto/asmforge/asmerr"

// checkPushPopSize rejects the byte and dword widths: per spec §4.3.1
// "8-bit and 32-bit general registers cannot be pushed/popped" — only
// word and qword operands are legal push/pop targets in long mode.
func checkPushPopSize(loc Location) error {
	switch loc.Size {
	case Byte, Dword:
		return asmerr.New(asmerr.OperandShape, "byte and dword operands cannot be pushed or popped")
	case SizeUnknown:
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	return nil
}

// Push emits PUSH src for a register or memory operand.
func (e *Encoder) Push(src Location) error {
	if err := checkPushPopSize(src); err != nil {
		return err
	}
	if src.IsMemory {
		return e.emitModRM(0xFF, false, opExt(6), src, src.Size)
	}
	if src.Size == Word {
		if err := e.write(0x66); err != nil {
			return err
		}
	}
	if src.Reg.Extended() {
		if err := e.write(0x41); err != nil { // REX.B only
			return err
		}
	}
	return e.write(0x50 + src.Reg.RM())
}

// Pop emits POP dst for a register or memory operand.
func (e *Encoder) Pop(dst Location) error {
	if err := checkPushPopSize(dst); err != nil {
		return err
	}
	if dst.IsMemory {
		return e.emitModRM(0x8F, false, opExt(0), dst, dst.Size)
	}
	if dst.Size == Word {
		if err := e.write(0x66); err != nil {
			return err
		}
	}
	if dst.Reg.Extended() {
		if err := e.write(0x41); err != nil {
			return err
		}
	}
	return e.write(0x58 + dst.Reg.RM())
}

// PushImm emits PUSH imm32 (sign-extended 8-bit form used automatically
// when imm fits in a signed byte).
func (e *Encoder) PushImm(imm int64) error {
	if imm >= -128 && imm <= 127 {
		if err := e.write(0x6A); err != nil {
			return err
		}
		return e.emitImm(imm, 1)
	}
	if err := fitsSigned(imm, 4); err != nil {
		return err
	}
	if err := e.write(0x68); err != nil {
		return err
	}
	return e.emitImm(imm, 4)
}
