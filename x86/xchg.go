package x86

import "github.com/xyproto/asmforge/asmerr"

// Xchg emits XCHG dst, src — exchanges the two operands' contents. At
// most one operand may be memory, per the general binary-operand
// invariant in spec §3.
func (e *Encoder) Xchg(dst, src Location) error {
	size, err := checkBinarySizes(dst, src)
	if err != nil {
		return err
	}
	opcode := byte(0x87)
	if size == Byte {
		opcode = 0x86
	}
	if dst.IsMemory {
		return e.emitModRM(opcode, false, regOf(src.Reg), dst, size)
	}
	return e.emitModRM(opcode, false, regOf(dst.Reg), src, size)
}

// Xadd emits XADD dst, src (0x0F 0xC0/0xC1 /r): dst += src, and the
// pre-add value of dst is written back into src.
func (e *Encoder) Xadd(dst, src Location) error {
	if src.IsMemory {
		return asmerr.New(asmerr.OperandShape, "XADD source must be a register")
	}
	size, err := checkBinarySizes(dst, src)
	if err != nil {
		return err
	}
	opcode := byte(0xC1)
	if size == Byte {
		opcode = 0xC0
	}
	return e.emitModRMLong(opcode, regOf(src.Reg), dst, size)
}

// Cmpxchg emits CMPXCHG dst, src (0x0F 0xB0/0xB1 /r): compares the
// accumulator against dst and conditionally stores src.
func (e *Encoder) Cmpxchg(dst, src Location) error {
	if src.IsMemory {
		return asmerr.New(asmerr.OperandShape, "CMPXCHG source must be a register")
	}
	size, err := checkBinarySizes(dst, src)
	if err != nil {
		return err
	}
	opcode := byte(0xB1)
	if size == Byte {
		opcode = 0xB0
	}
	return e.emitModRMLong(opcode, regOf(src.Reg), dst, size)
}

// Bswap emits BSWAP reg (0x0F 0xC8+r), reversing byte order in place.
// Only dword and qword widths are defined.
func (e *Encoder) Bswap(reg Register) error {
	if reg.Size != Dword && reg.Size != Qword {
		return asmerr.New(asmerr.OperandShape, "BSWAP requires a dword or qword register")
	}
	rex := byte(0x40)
	needRex := reg.Size == Qword
	if reg.Extended() {
		rex |= 0x01
		needRex = true
	}
	if needRex {
		if err := e.write(rex); err != nil {
			return err
		}
	}
	if err := e.write(0x0F); err != nil {
		return err
	}
	return e.write(0xC8 + reg.RM())
}
