package arm64

import "github.com/xyproto/asmforge/asmerr"

// addSubImm emits the ADD/SUB(S) immediate family: sf op S 100010 sh
// imm12 Rn Rd. op selects ADD(0)/SUB(1); s selects the flag-setting
// variant. sh, when true, means "imm12 LSL #12".
func (e *Encoder) addSubImm(op uint32, s bool, rd, rn Register, imm12 uint16, sh bool) error {
	if err := checkWidthMatch(rd, rn); err != nil {
		return err
	}
	if imm12 > 0xFFF {
		return asmerr.New(asmerr.ImmediateOutOfRange, "ADD/SUB immediate %d does not fit in 12 bits", imm12)
	}
	if err := requireNotZero(rn, "ADD/SUB immediate Rn"); err != nil {
		return err
	}
	base := uint32(0x11000000) | (op << 30)
	if s {
		base |= 1 << 29
	}
	if rd.Width == Width64 {
		base |= 1 << 31
	}
	var shBit uint32
	if sh {
		shBit = 1
	}
	return e.emit(base | (shBit << 22) | (uint32(imm12) << 10) | (rn.Num << 5) | rd.Num)
}

// AddImm emits ADD rd, rn, #imm12 (optionally LSL #12).
func (e *Encoder) AddImm(rd, rn Register, imm12 uint16, shift12 bool) error {
	return e.addSubImm(0, false, rd, rn, imm12, shift12)
}

// SubImm emits SUB rd, rn, #imm12 (optionally LSL #12).
func (e *Encoder) SubImm(rd, rn Register, imm12 uint16, shift12 bool) error {
	return e.addSubImm(1, false, rd, rn, imm12, shift12)
}

// AddsImm emits ADDS rd, rn, #imm12, setting flags.
func (e *Encoder) AddsImm(rd, rn Register, imm12 uint16, shift12 bool) error {
	return e.addSubImm(0, true, rd, rn, imm12, shift12)
}

// SubsImm emits SUBS rd, rn, #imm12; CMP rn, #imm is the Rd=ZR alias.
func (e *Encoder) SubsImm(rd, rn Register, imm12 uint16, shift12 bool) error {
	return e.addSubImm(1, true, rd, rn, imm12, shift12)
}

// CmpImm emits CMP rn, #imm12 (SUBS zr, rn, #imm12).
func (e *Encoder) CmpImm(rn Register, imm12 uint16, shift12 bool) error {
	zr := WZR
	if rn.Width == Width64 {
		zr = XZR
	}
	return e.SubsImm(zr, rn, imm12, shift12)
}

// Extend selects the extend-and-shift mode for an extended-register
// ADD/SUB operand, per spec §4.3.2's "add/sub (extended register)"
// instruction class.
type Extend uint8

const (
	ExtUXTB Extend = 0
	ExtUXTH Extend = 1
	ExtUXTW Extend = 2
	ExtUXTX Extend = 3
	ExtSXTB Extend = 4
	ExtSXTH Extend = 5
	ExtSXTW Extend = 6
	ExtSXTX Extend = 7
)

// addSubExt emits the ADD/SUB(S) extended-register family: sf op S
// 01011 00 1 Rm option imm3 Rn Rd.
func (e *Encoder) addSubExt(op uint32, s bool, rd, rn, rm Register, ext Extend, amount uint8) error {
	if err := checkWidthMatch(rd, rn); err != nil {
		return err
	}
	if amount > 4 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "extended-register shift amount must be 0-4, got %d", amount)
	}
	if err := requireNotZero(rn, "ADD/SUB extended-register Rn"); err != nil {
		return err
	}
	if err := requireNotStack(rm, "ADD/SUB extended-register Rm"); err != nil {
		return err
	}
	base := uint32(0x0B200000) | (op << 30)
	if s {
		base |= 1 << 29
	}
	if rd.Width == Width64 {
		base |= 1 << 31
	}
	return e.emit(base | (rm.Num << 16) | (uint32(ext) << 13) | (uint32(amount) << 10) | (rn.Num << 5) | rd.Num)
}

// AddExt emits ADD rd, rn, rm, extend #amount.
func (e *Encoder) AddExt(rd, rn, rm Register, ext Extend, amount uint8) error {
	return e.addSubExt(0, false, rd, rn, rm, ext, amount)
}

// SubExt emits SUB rd, rn, rm, extend #amount.
func (e *Encoder) SubExt(rd, rn, rm Register, ext Extend, amount uint8) error {
	return e.addSubExt(1, false, rd, rn, rm, ext, amount)
}

// addSubShifted emits the ADD/SUB(S) shifted-register family, used
// when neither operand is SP (the common register-register case):
// sf op S 01011 shift 0 Rm imm6 Rn Rd.
func (e *Encoder) addSubShifted(op uint32, s bool, rd, rn, rm Register, shift ShiftType, amount uint8) error {
	if err := checkWidthMatch(rd, rn, rm); err != nil {
		return err
	}
	if shift == ShiftROR {
		return asmerr.New(asmerr.OperandShape, "ADD/SUB shifted-register does not support ROR")
	}
	max := uint8(31)
	if rd.Width == Width64 {
		max = 63
	}
	if amount > max {
		return asmerr.New(asmerr.ImmediateOutOfRange, "shift amount %d exceeds register width", amount)
	}
	base := uint32(0x0B000000) | (op << 30)
	if s {
		base |= 1 << 29
	}
	if rd.Width == Width64 {
		base |= 1 << 31
	}
	return e.emit(base | (uint32(shift) << 22) | (rm.Num << 16) | (uint32(amount) << 10) | (rn.Num << 5) | rd.Num)
}

// AddReg emits ADD rd, rn, rm, shift #amount.
func (e *Encoder) AddReg(rd, rn, rm Register, shift ShiftType, amount uint8) error {
	return e.addSubShifted(0, false, rd, rn, rm, shift, amount)
}

// SubReg emits SUB rd, rn, rm, shift #amount.
func (e *Encoder) SubReg(rd, rn, rm Register, shift ShiftType, amount uint8) error {
	return e.addSubShifted(1, false, rd, rn, rm, shift, amount)
}

// CmpReg emits CMP rn, rm (SUBS zr, rn, rm).
func (e *Encoder) CmpReg(rn, rm Register) error {
	zr := WZR
	if rn.Width == Width64 {
		zr = XZR
	}
	return e.addSubShifted(1, true, zr, rn, rm, ShiftLSL, 0)
}
