package arm64

import "github.com/xyproto/asmforge/asmerr"

// logicalImm emits one of the bitmask-immediate logical instructions
// (AND/ORR/EOR + immediate) from an already-packed N:immr:imms triple.
func (e *Encoder) logicalImm(opc uint32, rd, rn Register, n, immr, imms uint8) error {
	if err := checkWidthMatch(rd, rn); err != nil {
		return err
	}
	if rd.Width == Width32 && n != 0 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "N=1 bitmask immediate is not representable in a 32-bit register")
	}
	base := uint32(0x12000000) | (opc << 29)
	if rd.Width == Width64 {
		base = uint32(0x92000000) | (opc << 29)
	}
	return e.emit(base | (uint32(n) << 22) | (uint32(immr) << 16) | (uint32(imms) << 10) | (rn.Num << 5) | rd.Num)
}

// AndImm emits AND rd, rn, #imm with an already-encoded bitmask triple.
func (e *Encoder) AndImm(rd, rn Register, n, immr, imms uint8) error {
	return e.logicalImm(0, rd, rn, n, immr, imms)
}

// OrrImm emits ORR rd, rn, #imm with an already-encoded bitmask triple.
func (e *Encoder) OrrImm(rd, rn Register, n, immr, imms uint8) error {
	return e.logicalImm(1, rd, rn, n, immr, imms)
}

// EorImm emits EOR rd, rn, #imm with an already-encoded bitmask triple.
func (e *Encoder) EorImm(rd, rn Register, n, immr, imms uint8) error {
	return e.logicalImm(2, rd, rn, n, immr, imms)
}

// logicalImmValue encodes value as a bitmask immediate for rd's width
// and emits the instruction, or fails with ImmediateOutOfRange when
// value is unencodable (always the case for 0 and all-ones, per
// spec §8 scenario 4).
func (e *Encoder) logicalImmValue(opc uint32, rd, rn Register, value uint64) error {
	width := widthOf(rd)
	if width == 32 {
		value &= 0xFFFFFFFF
	}
	n, immr, imms, ok := EncodeBitmask(value, width)
	if !ok {
		return asmerr.New(asmerr.ImmediateOutOfRange, "%#x is not encodable as a bitmask immediate", value)
	}
	return e.logicalImm(opc, rd, rn, n, immr, imms)
}

// AndImmValue emits AND rd, rn, #value, encoding value as a bitmask
// immediate.
func (e *Encoder) AndImmValue(rd, rn Register, value uint64) error {
	return e.logicalImmValue(0, rd, rn, value)
}

// OrrImmValue emits ORR rd, rn, #value.
func (e *Encoder) OrrImmValue(rd, rn Register, value uint64) error {
	return e.logicalImmValue(1, rd, rn, value)
}

// EorImmValue emits EOR rd, rn, #value.
func (e *Encoder) EorImmValue(rd, rn Register, value uint64) error {
	return e.logicalImmValue(2, rd, rn, value)
}

// ShiftType selects the shift applied to Rm in a logical/arithmetic
// shifted-register instruction.
type ShiftType uint8

const (
	ShiftLSL ShiftType = 0
	ShiftLSR ShiftType = 1
	ShiftASR ShiftType = 2
	ShiftROR ShiftType = 3 // logical instructions only
)

func (e *Encoder) logicalReg(opc uint32, rd, rn, rm Register, shift ShiftType, amount uint8) error {
	if err := checkWidthMatch(rd, rn, rm); err != nil {
		return err
	}
	max := uint8(31)
	if rd.Width == Width64 {
		max = 63
	}
	if amount > max {
		return asmerr.New(asmerr.ImmediateOutOfRange, "shift amount %d exceeds register width", amount)
	}
	base := uint32(0x0A000000) | (opc << 29)
	if rd.Width == Width64 {
		base = uint32(0x8A000000) | (opc << 29)
	}
	return e.emit(base | (uint32(shift) << 22) | (rm.Num << 16) | (uint32(amount) << 10) | (rn.Num << 5) | rd.Num)
}

// AndReg emits AND rd, rn, rm, shift #amount (logical, shifted register).
func (e *Encoder) AndReg(rd, rn, rm Register, shift ShiftType, amount uint8) error {
	return e.logicalReg(0, rd, rn, rm, shift, amount)
}

// OrrReg emits ORR rd, rn, rm, shift #amount.
func (e *Encoder) OrrReg(rd, rn, rm Register, shift ShiftType, amount uint8) error {
	return e.logicalReg(1, rd, rn, rm, shift, amount)
}

// EorReg emits EOR rd, rn, rm, shift #amount.
func (e *Encoder) EorReg(rd, rn, rm Register, shift ShiftType, amount uint8) error {
	return e.logicalReg(2, rd, rn, rm, shift, amount)
}

// AndsReg emits ANDS rd, rn, rm, shift #amount (flag-setting AND).
func (e *Encoder) AndsReg(rd, rn, rm Register, shift ShiftType, amount uint8) error {
	return e.logicalReg(3, rd, rn, rm, shift, amount)
}
