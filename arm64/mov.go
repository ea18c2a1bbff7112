package arm64

import "github.com/xyproto/asmforge/asmerr"

func widthOf(r Register) int {
	if r.Width == Width64 {
		return 64
	}
	return 32
}

// checkMovShift enforces spec §4.3.2: MOVZ/MOVK/MOVN shifts must be a
// multiple of 16, and a 32-bit destination allows only 0 or 16.
func checkMovShift(r Register, shift int) error {
	if shift%16 != 0 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "MOVZ/MOVK/MOVN shift must be a multiple of 16, got %d", shift)
	}
	if r.Width == Width32 && shift > 16 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "32-bit MOVZ/MOVK/MOVN shift must be 0 or 16, got %d", shift)
	}
	if shift < 0 || shift > 48 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "MOVZ/MOVK/MOVN shift out of range: %d", shift)
	}
	return nil
}

// Movz emits MOVZ rd, #imm16, LSL #shift.
func (e *Encoder) Movz(rd Register, imm16 uint16, shift int) error {
	if err := checkMovShift(rd, shift); err != nil {
		return err
	}
	hw := uint32(shift / 16)
	base := uint32(0x52800000)
	if rd.Width == Width64 {
		base = 0xD2800000
	}
	return e.emit(base | (hw << 21) | (uint32(imm16) << 5) | rd.Num)
}

// Movn emits MOVN rd, #imm16, LSL #shift — rd = NOT(ZeroExtend(imm16<<shift)).
func (e *Encoder) Movn(rd Register, imm16 uint16, shift int) error {
	if err := checkMovShift(rd, shift); err != nil {
		return err
	}
	hw := uint32(shift / 16)
	base := uint32(0x12800000)
	if rd.Width == Width64 {
		base = 0x92800000
	}
	return e.emit(base | (hw << 21) | (uint32(imm16) << 5) | rd.Num)
}

// Movk emits MOVK rd, #imm16, LSL #shift, replacing one 16-bit chunk
// of rd without disturbing the others.
func (e *Encoder) Movk(rd Register, imm16 uint16, shift int) error {
	if err := checkMovShift(rd, shift); err != nil {
		return err
	}
	hw := uint32(shift / 16)
	base := uint32(0x72800000)
	if rd.Width == Width64 {
		base = 0xF2800000
	}
	return e.emit(base | (hw << 21) | (uint32(imm16) << 5) | rd.Num)
}

// MovReg emits MOV rd, rn (alias for ORR rd, zr, rn), copying between
// two general registers of matching width.
func (e *Encoder) MovReg(rd, rn Register) error {
	if err := checkWidthMatch(rd, rn); err != nil {
		return err
	}
	base := uint32(0x2A0003E0)
	if rd.Width == Width64 {
		base = 0xAA0003E0
	}
	return e.emit(base | (rn.Num << 16) | rd.Num)
}

func chunksOf(imm uint64, width int) []uint16 {
	n := width / 16
	chunks := make([]uint16, n)
	for i := 0; i < n; i++ {
		chunks[i] = uint16((imm >> uint(i*16)) & 0xFFFF)
	}
	return chunks
}

// MovImm synthesizes MOV rd, #imm64 per spec §4.3.2's step 5: it
// chooses, in order of preference, a single MOVZ, a single MOVN, a
// single ORR-immediate (bitmask-encodable), or the cheaper of a
// MOVZ+MOVK chain vs. a MOVN+MOVK chain covering every 16-bit chunk
// that needs one.
func (e *Encoder) MovImm(rd Register, imm uint64) error {
	width := widthOf(rd)
	if width == 32 && imm>>32 != 0 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "immediate %#x does not fit in a 32-bit register", imm)
	}
	chunks := chunksOf(imm, width)

	zeroCount, ffCount := 0, 0
	for _, c := range chunks {
		if c == 0 {
			zeroCount++
		}
		if c == 0xFFFF {
			ffCount++
		}
	}
	nonZero := len(chunks) - zeroCount
	nonFF := len(chunks) - ffCount

	if nonZero <= 1 {
		idx, val := 0, uint16(0)
		for i, c := range chunks {
			if c != 0 {
				idx, val = i, c
			}
		}
		return e.Movz(rd, val, idx*16)
	}
	if nonFF <= 1 {
		idx := 0
		for i, c := range chunks {
			if c != 0xFFFF {
				idx = i
			}
		}
		return e.Movn(rd, ^chunks[idx], idx*16)
	}
	bitmaskImm := imm
	if width == 32 {
		bitmaskImm &= 0xFFFFFFFF
	}
	if n, immr, imms, ok := EncodeBitmask(bitmaskImm, width); ok {
		return e.orrImmWithZero(rd, n, immr, imms)
	}
	if nonZero <= nonFF {
		return e.movzChain(rd, chunks)
	}
	return e.movnChain(rd, chunks)
}

func (e *Encoder) movzChain(rd Register, chunks []uint16) error {
	base := 0
	for i, c := range chunks {
		if c != 0 {
			base = i
			break
		}
	}
	if err := e.Movz(rd, chunks[base], base*16); err != nil {
		return err
	}
	for i, c := range chunks {
		if i == base || c == 0 {
			continue
		}
		if err := e.Movk(rd, c, i*16); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) movnChain(rd Register, chunks []uint16) error {
	base := 0
	for i, c := range chunks {
		if c != 0xFFFF {
			base = i
			break
		}
	}
	if err := e.Movn(rd, ^chunks[base], base*16); err != nil {
		return err
	}
	for i, c := range chunks {
		if i == base || c == 0xFFFF {
			continue
		}
		if err := e.Movk(rd, c, i*16); err != nil {
			return err
		}
	}
	return nil
}

// orrImmWithZero emits ORR rd, zr, #imm using an already-encoded
// bitmask triple — the single-instruction MOV synthesis path.
func (e *Encoder) orrImmWithZero(rd Register, n, immr, imms uint8) error {
	zr := WZR
	if rd.Width == Width64 {
		zr = XZR
	}
	return e.OrrImm(rd, zr, n, immr, imms)
}
