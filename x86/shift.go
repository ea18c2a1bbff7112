package x86

import "github.com/xyproto/asmforge/asmerr"

// shiftExt is the group-2 opcode-extension digit for each shift/rotate
// mnemonic, shared across the by-1, by-CL, and by-imm8 encoding forms.
type shiftExt uint8

const (
	shiftRol shiftExt = 0
	shiftRor shiftExt = 1
	shiftRcl shiftExt = 2
	shiftRcr shiftExt = 3
	shiftShl shiftExt = 4
	shiftShr shiftExt = 5
	shiftSar shiftExt = 7
)

// shiftByOne emits the group-2 "by 1" form (0xD0/0xD1 /ext).
func (e *Encoder) shiftByOne(ext shiftExt, dst Location) error {
	if dst.Size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	opcode := byte(0xD1)
	if dst.Size == Byte {
		opcode = 0xD0
	}
	return e.emitModRM(opcode, false, opExt(uint8(ext)), dst, dst.Size)
}

// shiftByCL emits the group-2 "by CL" form (0xD2/0xD3 /ext). The count
// operand is always the CL register, per the x86-64 ISA's fixed wiring
// of variable shift counts.
func (e *Encoder) shiftByCL(ext shiftExt, dst Location) error {
	if dst.Size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	opcode := byte(0xD3)
	if dst.Size == Byte {
		opcode = 0xD2
	}
	return e.emitModRM(opcode, false, opExt(uint8(ext)), dst, dst.Size)
}

// shiftByImm emits the group-2 "by imm8" form (0xC0/0xC1 /ext).
func (e *Encoder) shiftByImm(ext shiftExt, dst Location, count uint8) error {
	if dst.Size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	opcode := byte(0xC1)
	if dst.Size == Byte {
		opcode = 0xC0
	}
	e.ripSuffix = 1
	if err := e.emitModRM(opcode, false, opExt(uint8(ext)), dst, dst.Size); err != nil {
		return err
	}
	return e.emitImm(int64(count), 1)
}

func (e *Encoder) Shl(dst Location) error                    { return e.shiftByOne(shiftShl, dst) }
func (e *Encoder) ShlCL(dst Location) error                  { return e.shiftByCL(shiftShl, dst) }
func (e *Encoder) ShlImm(dst Location, n uint8) error         { return e.shiftByImm(shiftShl, dst, n) }
func (e *Encoder) Shr(dst Location) error                    { return e.shiftByOne(shiftShr, dst) }
func (e *Encoder) ShrCL(dst Location) error                  { return e.shiftByCL(shiftShr, dst) }
func (e *Encoder) ShrImm(dst Location, n uint8) error         { return e.shiftByImm(shiftShr, dst, n) }
func (e *Encoder) Sar(dst Location) error                    { return e.shiftByOne(shiftSar, dst) }
func (e *Encoder) SarCL(dst Location) error                  { return e.shiftByCL(shiftSar, dst) }
func (e *Encoder) SarImm(dst Location, n uint8) error         { return e.shiftByImm(shiftSar, dst, n) }
func (e *Encoder) Rol(dst Location) error                    { return e.shiftByOne(shiftRol, dst) }
func (e *Encoder) RolCL(dst Location) error                  { return e.shiftByCL(shiftRol, dst) }
func (e *Encoder) RolImm(dst Location, n uint8) error         { return e.shiftByImm(shiftRol, dst, n) }
func (e *Encoder) Ror(dst Location) error                    { return e.shiftByOne(shiftRor, dst) }
func (e *Encoder) RorCL(dst Location) error                  { return e.shiftByCL(shiftRor, dst) }
func (e *Encoder) RorImm(dst Location, n uint8) error         { return e.shiftByImm(shiftRor, dst, n) }
func (e *Encoder) Rcl(dst Location) error                    { return e.shiftByOne(shiftRcl, dst) }
func (e *Encoder) RclImm(dst Location, n uint8) error         { return e.shiftByImm(shiftRcl, dst, n) }
func (e *Encoder) Rcr(dst Location) error                    { return e.shiftByOne(shiftRcr, dst) }
func (e *Encoder) RcrImm(dst Location, n uint8) error         { return e.shiftByImm(shiftRcr, dst, n) }

// Shld emits SHLD dst, src, imm8 — the double-precision left shift
// that feeds bits out of src into dst (0x0F 0xA4 /r).
func (e *Encoder) Shld(dst, src Location, count uint8) error {
	return e.doubleShift(0xA4, dst, src, count)
}

// Shrd emits SHRD dst, src, imm8 (0x0F 0xAC /r).
func (e *Encoder) Shrd(dst, src Location, count uint8) error {
	return e.doubleShift(0xAC, dst, src, count)
}

func (e *Encoder) doubleShift(opcode byte, dst, src Location, count uint8) error {
	if src.IsMemory {
		return asmerr.New(asmerr.OperandShape, "double-shift source must be a register")
	}
	size, err := checkBinarySizes(dst, src)
	if err != nil {
		return err
	}
	if size == Byte {
		return asmerr.New(asmerr.OperandShape, "double-shift does not support byte operands")
	}
	e.ripSuffix = 1
	if err := e.emitModRMLong(opcode, regOf(src.Reg), dst, size); err != nil {
		return err
	}
	return e.emitImm(int64(count), 1)
}
