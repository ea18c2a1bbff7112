package x86

import (
	"encoding/binary"

	"github.com/xyproto/asmforge/asmerr"
)

// checkBinarySizes enforces spec §3: operand sizes must agree when
// both are determinate, and at most one operand may be memory.
func checkBinarySizes(dst, src Location) (Size, error) {
	if dst.IsMemory && src.IsMemory {
		return SizeUnknown, asmerr.New(asmerr.OperandShape, "at most one operand may be memory")
	}
	if dst.Size == SizeUnknown && src.Size == SizeUnknown {
		return SizeUnknown, asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	if dst.Size != SizeUnknown && src.Size != SizeUnknown && dst.Size != src.Size {
		return SizeUnknown, asmerr.New(asmerr.OperandShape, "operand size mismatch: %s vs %s", dst.Size, src.Size)
	}
	if dst.Size != SizeUnknown {
		return dst.Size, nil
	}
	return src.Size, nil
}

// Mov emits MOV dst, src for register-register, register-memory, and
// memory-register forms. Use MovImm for an immediate source.
func (e *Encoder) Mov(dst, src Location) error {
	size, err := checkBinarySizes(dst, src)
	if err != nil {
		return err
	}
	if dst.IsMemory {
		opcode := byte(0x89)
		if size == Byte {
			opcode = 0x88
		}
		return e.emitModRM(opcode, false, regOf(src.Reg), dst, size)
	}
	if src.IsMemory {
		opcode := byte(0x8B)
		if size == Byte {
			opcode = 0x8A
		}
		return e.emitModRM(opcode, false, regOf(dst.Reg), src, size)
	}
	// register-register: encode as MOV r/m, r (0x89/0x88), rm=dst.
	opcode := byte(0x89)
	if size == Byte {
		opcode = 0x88
	}
	return e.emitModRM(opcode, false, regOf(src.Reg), dst, size)
}

// MovImm emits MOV dst, imm. For a register destination this uses the
// short `MOV reg, imm` per-width encoding (0xB0+r / 0xB8+r); for a
// memory destination it uses the general C6/C7 /0 form and arranges
// for the RIP-relative suffix counter to account for the trailing
// immediate, per spec §4.3.1.
func (e *Encoder) MovImm(dst Location, imm int64) error {
	if dst.Size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	if !dst.IsMemory {
		return e.movImmShortReg(dst.Reg, imm)
	}

	opcode := byte(0xC7)
	immWidth := 4
	if dst.Size == Byte {
		opcode = 0xC6
		immWidth = 1
	} else if dst.Size == Word {
		immWidth = 2
	}
	if err := fitsSigned(imm, immWidth); err != nil {
		return err
	}
	e.ripSuffix = immWidth
	if err := e.emitModRM(opcode, false, opExt(0), dst, dst.Size); err != nil {
		return err
	}
	return e.emitImm(imm, immWidth)
}

func (e *Encoder) movImmShortReg(r Register, imm uint64AsInt) error {
	return e.movImmShort(r, int64(imm))
}

// movImmShort is split out so tests can call it with a plain int64
// without an intermediate named type; kept private, the public
// entry point is MovImm.
func (e *Encoder) movImmShort(r Register, imm int64) error {
	base := byte(0xB8)
	width := 4
	switch r.Size {
	case Byte:
		base = 0xB0
		width = 1
	case Word:
		width = 2
	case Qword:
		width = 8
	}
	rex := byte(0x40)
	needRex := r.Size == Qword
	if r.Extended() {
		rex |= 0x01
		needRex = true
	}
	if r.Flags&FlagRexRequired != 0 {
		needRex = true
	}
	if r.Size == Word {
		if err := e.write(0x66); err != nil {
			return err
		}
	}
	if needRex {
		if err := e.write(rex); err != nil {
			return err
		}
	}
	if err := e.write(base + r.RM()); err != nil {
		return err
	}
	return e.emitImm(imm, width)
}

type uint64AsInt = int64

func fitsSigned(v int64, width int) error {
	switch width {
	case 1:
		if v < -128 || v > 127 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "immediate %d does not fit in 8 bits", v)
		}
	case 2:
		if v < -32768 || v > 32767 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "immediate %d does not fit in 16 bits", v)
		}
	case 4:
		if v < -2147483648 || v > 2147483647 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "immediate %d does not fit in 32 bits", v)
		}
	}
	return nil
}

func (e *Encoder) emitImm(v int64, width int) error {
	var b [8]byte
	switch width {
	case 1:
		b[0] = byte(v)
		return e.emit(b[:1]...)
	case 2:
		binary.LittleEndian.PutUint16(b[:2], uint16(v))
		return e.emit(b[:2]...)
	case 4:
		binary.LittleEndian.PutUint32(b[:4], uint32(v))
		return e.emit(b[:4]...)
	case 8:
		binary.LittleEndian.PutUint64(b[:8], uint64(v))
		return e.emit(b[:8]...)
	default:
		return asmerr.New(asmerr.OperandShape, "unsupported immediate width %d", width)
	}
}

// MovZX emits MOVZX dst, src: zero-extend a narrower general-purpose
// source into a wider destination. The converse width direction
// (dst narrower than src) is an operand-shape error.
func (e *Encoder) MovZX(dst, src Location) error {
	return e.movExtend(dst, src, 0xB6, 0xB7)
}

// MovSX emits MOVSX dst, src: sign-extend.
func (e *Encoder) MovSX(dst, src Location) error {
	return e.movExtend(dst, src, 0xBE, 0xBF)
}

func (e *Encoder) movExtend(dst, src Location, opByte, opWord byte) error {
	if dst.IsMemory {
		return asmerr.New(asmerr.OperandShape, "MOVZX/MOVSX destination must be a register")
	}
	if src.Size == SizeUnknown || dst.Size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	if sizeBits(src.Size) >= sizeBits(dst.Size) {
		return asmerr.New(asmerr.OperandShape, "MOVZX/MOVSX destination must be wider than source")
	}
	opcode := opWord
	if src.Size == Byte {
		opcode = opByte
	}
	return e.emitModRMLong(opcode, regOf(dst.Reg), src, dst.Size)
}

func sizeBits(s Size) int {
	switch s {
	case Byte:
		return 8
	case Word:
		return 16
	case Dword:
		return 32
	case Qword:
		return 64
	case Tword:
		return 80
	default:
		return 0
	}
}

// emitModRMLong is emitModRM with the long (0x0F-prefixed) opcode bit
// set, used by every two-byte-opcode mnemonic that takes a ModRM byte
// (MOVZX, MOVSX, SETcc, IMUL r,r/m, ...); the long Jcc form has no
// ModRM and writes its 0x0F prefix itself.
func (e *Encoder) emitModRMLong(opcode byte, reg regSpec, rm Location, size Size) error {
	return e.emitModRM(opcode, true, reg, rm, size)
}

// Lea emits LEA dst, src — loads the computed address of a memory
// expression into dst without dereferencing it. The destination must
// be a general-purpose register at least word-sized.
func (e *Encoder) Lea(dst Location, src Location) error {
	if dst.IsMemory {
		return asmerr.New(asmerr.OperandShape, "LEA destination must be a register")
	}
	if !src.IsMemory {
		return asmerr.New(asmerr.OperandShape, "LEA source must be a memory reference")
	}
	if dst.Size == Byte {
		return asmerr.New(asmerr.OperandShape, "LEA destination must be wide")
	}
	return e.emitModRM(0x8D, false, regOf(dst.Reg), src, dst.Size)
}
