package arm64

import "github.com/xyproto/asmforge/asmerr"

// dataProc1Source emits the data-processing (1 source) family used by
// RBIT/CLZ/CLS/REV16/REV32/REV64: sf 1 0 11010110 00000 opcode2 opcode Rn Rd.
func (e *Encoder) dataProc1Source(opcode2, opcode uint32, rd, rn Register) error {
	if err := checkWidthMatch(rd, rn); err != nil {
		return err
	}
	base := uint32(0x5AC00000)
	if rd.Width == Width64 {
		base |= 1 << 31
	}
	return e.emit(base | (opcode2 << 16) | (opcode << 10) | (rn.Num << 5) | rd.Num)
}

// Rbit emits RBIT rd, rn — reverse the bit order of rn into rd.
func (e *Encoder) Rbit(rd, rn Register) error { return e.dataProc1Source(0, 0, rd, rn) }

// Rev16 emits REV16 rd, rn — reverse bytes within each halfword.
func (e *Encoder) Rev16(rd, rn Register) error { return e.dataProc1Source(0, 1, rd, rn) }

// Rev32 emits REV32 rd, rn (64-bit only) — reverse bytes within each word.
func (e *Encoder) Rev32(rd, rn Register) error {
	if rd.Width != Width64 {
		return asmerr.New(asmerr.RegisterIncompatibility, "REV32 requires 64-bit registers")
	}
	return e.dataProc1Source(0, 2, rd, rn)
}

// Rev emits REV rd, rn — reverse byte order across the whole register
// (opcode selects REV32 semantics on a 32-bit register, REV64 on 64-bit).
func (e *Encoder) Rev(rd, rn Register) error {
	if rd.Width == Width64 {
		return e.dataProc1Source(0, 3, rd, rn)
	}
	return e.dataProc1Source(0, 2, rd, rn)
}

// Cls emits CLS rd, rn — count leading sign bits.
func (e *Encoder) Cls(rd, rn Register) error { return e.dataProc1Source(0, 5, rd, rn) }

// Clz emits CLZ rd, rn — count leading zero bits.
func (e *Encoder) Clz(rd, rn Register) error { return e.dataProc1Source(0, 4, rd, rn) }

// dataProc2Source emits the data-processing (2 source) family used by
// the variable-shift instructions: sf 0 0 11010110 Rm opcode Rn Rd.
func (e *Encoder) dataProc2Source(opcode uint32, rd, rn, rm Register) error {
	if err := checkWidthMatch(rd, rn, rm); err != nil {
		return err
	}
	base := uint32(0x1AC00000)
	if rd.Width == Width64 {
		base |= 1 << 31
	}
	return e.emit(base | (rm.Num << 16) | (opcode << 10) | (rn.Num << 5) | rd.Num)
}

// Lslv emits LSLV rd, rn, rm — logical shift left by the count in rm.
func (e *Encoder) Lslv(rd, rn, rm Register) error { return e.dataProc2Source(8, rd, rn, rm) }

// Lsrv emits LSRV rd, rn, rm — logical shift right by the count in rm.
func (e *Encoder) Lsrv(rd, rn, rm Register) error { return e.dataProc2Source(9, rd, rn, rm) }

// Asrv emits ASRV rd, rn, rm — arithmetic shift right by the count in rm.
func (e *Encoder) Asrv(rd, rn, rm Register) error { return e.dataProc2Source(10, rd, rn, rm) }

// Rorv emits RORV rd, rn, rm — rotate right by the count in rm.
func (e *Encoder) Rorv(rd, rn, rm Register) error { return e.dataProc2Source(11, rd, rn, rm) }

// Udiv emits UDIV rd, rn, rm — unsigned division, truncating toward zero.
func (e *Encoder) Udiv(rd, rn, rm Register) error { return e.dataProc2Source(2, rd, rn, rm) }

// Sdiv emits SDIV rd, rn, rm — signed division, truncating toward zero.
func (e *Encoder) Sdiv(rd, rn, rm Register) error { return e.dataProc2Source(3, rd, rn, rm) }

// Extr emits EXTR rd, rn, rm, #lsb — extract a register-width field
// from the 2*width concatenation of rn:rm starting at bit lsb.
func (e *Encoder) Extr(rd, rn, rm Register, lsb uint8) error {
	if err := checkWidthMatch(rd, rn, rm); err != nil {
		return err
	}
	max := uint8(31)
	if rd.Width == Width64 {
		max = 63
	}
	if lsb > max {
		return asmerr.New(asmerr.ImmediateOutOfRange, "EXTR lsb %d exceeds register width", lsb)
	}
	base := uint32(0x13800000)
	if rd.Width == Width64 {
		base = 0x93C00000
	}
	return e.emit(base | (rm.Num << 16) | (uint32(lsb) << 10) | (rn.Num << 5) | rd.Num)
}

// dataProc3Source emits the data-processing (3 source) family used by
// the multiply-accumulate instructions: sf op54 11011 op31 Rm o0 Ra Rn Rd.
func (e *Encoder) dataProc3Source(op31, o0 uint32, rd, rn, rm, ra Register) error {
	if err := checkWidthMatch(rd, rn, rm, ra); err != nil {
		return err
	}
	base := uint32(0x1B000000) | (op31 << 21) | (o0 << 15)
	if rd.Width == Width64 {
		base |= 1 << 31
	}
	return e.emit(base | (rm.Num << 16) | (ra.Num << 10) | (rn.Num << 5) | rd.Num)
}

// Madd emits MADD rd, rn, rm, ra — rd = ra + rn*rm.
func (e *Encoder) Madd(rd, rn, rm, ra Register) error {
	return e.dataProc3Source(0, 0, rd, rn, rm, ra)
}

// Msub emits MSUB rd, rn, rm, ra — rd = ra - rn*rm.
func (e *Encoder) Msub(rd, rn, rm, ra Register) error {
	return e.dataProc3Source(0, 1, rd, rn, rm, ra)
}

// Mul emits MUL rd, rn, rm (alias for MADD rd, rn, rm, zr).
func (e *Encoder) Mul(rd, rn, rm Register) error {
	zr := WZR
	if rd.Width == Width64 {
		zr = XZR
	}
	return e.Madd(rd, rn, rm, zr)
}

// Smaddl emits SMADDL xd, wn, wm, xa — signed 32x32+64 widening
// multiply-accumulate into a 64-bit destination.
func (e *Encoder) Smaddl(xd, wn, wm, xa Register) error {
	if xd.Width != Width64 || xa.Width != Width64 {
		return asmerr.New(asmerr.RegisterIncompatibility, "SMADDL destination and accumulator must be 64-bit")
	}
	if wn.Width != Width32 || wm.Width != Width32 {
		return asmerr.New(asmerr.RegisterIncompatibility, "SMADDL source operands must be 32-bit")
	}
	return e.emit(0x9B200000 | (wm.Num << 16) | (xa.Num << 10) | (wn.Num << 5) | xd.Num)
}

// Umaddl emits UMADDL xd, wn, wm, xa — unsigned 32x32+64 widening
// multiply-accumulate into a 64-bit destination.
func (e *Encoder) Umaddl(xd, wn, wm, xa Register) error {
	if xd.Width != Width64 || xa.Width != Width64 {
		return asmerr.New(asmerr.RegisterIncompatibility, "UMADDL destination and accumulator must be 64-bit")
	}
	if wn.Width != Width32 || wm.Width != Width32 {
		return asmerr.New(asmerr.RegisterIncompatibility, "UMADDL source operands must be 32-bit")
	}
	return e.emit(0x9BA00000 | (wm.Num << 16) | (xa.Num << 10) | (wn.Num << 5) | xd.Num)
}

// Smulh emits SMULH xd, xn, xm — high 64 bits of a signed 64x64 multiply.
func (e *Encoder) Smulh(xd, xn, xm Register) error {
	if xd.Width != Width64 || xn.Width != Width64 || xm.Width != Width64 {
		return asmerr.New(asmerr.RegisterIncompatibility, "SMULH operates on 64-bit registers only")
	}
	return e.emit(0x9B407C00 | (xm.Num << 16) | (xn.Num << 5) | xd.Num)
}

// Umulh emits UMULH xd, xn, xm — high 64 bits of an unsigned 64x64 multiply.
func (e *Encoder) Umulh(xd, xn, xm Register) error {
	if xd.Width != Width64 || xn.Width != Width64 || xm.Width != Width64 {
		return asmerr.New(asmerr.RegisterIncompatibility, "UMULH operates on 64-bit registers only")
	}
	return e.emit(0x9BC07C00 | (xm.Num << 16) | (xn.Num << 5) | xd.Num)
}

// conditionalSelect emits the conditional-select family: sf op S
// 11010100 Rm cond op2 Rn Rd.
func (e *Encoder) conditionalSelect(op, op2 uint32, rd, rn, rm Register, cond Cond) error {
	if err := checkWidthMatch(rd, rn, rm); err != nil {
		return err
	}
	base := uint32(0x1A800000) | (op << 30)
	if rd.Width == Width64 {
		base |= 1 << 31
	}
	return e.emit(base | (rm.Num << 16) | (uint32(cond) << 12) | (op2 << 10) | (rn.Num << 5) | rd.Num)
}

// Csel emits CSEL rd, rn, rm, cond — rd = cond ? rn : rm.
func (e *Encoder) Csel(rd, rn, rm Register, cond Cond) error {
	return e.conditionalSelect(0, 0, rd, rn, rm, cond)
}

// Csinc emits CSINC rd, rn, rm, cond — rd = cond ? rn : rm+1.
func (e *Encoder) Csinc(rd, rn, rm Register, cond Cond) error {
	return e.conditionalSelect(0, 1, rd, rn, rm, cond)
}

// invertCond flips the low bit of a condition code, as the CSET/CINC
// aliases require (AL has no inverse; Cinc and Cset reject it).
func invertCond(cond Cond) Cond { return Cond(uint8(cond) ^ 1) }

// Cinc emits CINC rd, rn, cond (alias for CSINC rd, rn, rn, invert(cond)).
func (e *Encoder) Cinc(rd, rn Register, cond Cond) error {
	if cond == CondAL {
		return asmerr.New(asmerr.OperandShape, "CINC does not accept the AL condition")
	}
	return e.Csinc(rd, rn, rn, invertCond(cond))
}

// Cset emits CSET rd, cond (alias for CSINC rd, zr, zr, invert(cond)).
func (e *Encoder) Cset(rd Register, cond Cond) error {
	if cond == CondAL {
		return asmerr.New(asmerr.OperandShape, "CSET does not accept the AL condition")
	}
	zr := WZR
	if rd.Width == Width64 {
		zr = XZR
	}
	return e.Csinc(rd, zr, zr, invertCond(cond))
}
