package arm64

import (
	"encoding/binary"
	"math"

	"github.com/xyproto/asmforge/asmerr"
	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

// ldsSize distinguishes the memory access width of a load/store,
// independent of the general register width used to hold the value
// (e.g. LDRB zero-extends a byte into a 32- or 64-bit register).
type ldsSize uint8

const (
	ldsByte ldsSize = iota
	ldsHalf
	ldsWord
	ldsDouble
)

func (s ldsSize) scale() uint32 {
	switch s {
	case ldsHalf:
		return 2
	case ldsWord:
		return 4
	case ldsDouble:
		return 8
	default:
		return 1
	}
}

func (s ldsSize) sizeField() uint32 {
	switch s {
	case ldsByte:
		return 0
	case ldsHalf:
		return 1
	case ldsWord:
		return 2
	default:
		return 3
	}
}

// unsignedOffset emits the "LDR/STR (immediate), unsigned offset"
// form: size 111 0 01 opc imm12 Rn Rt, imm12 pre-scaled by the access
// width, no writeback.
func (e *Encoder) unsignedOffset(size ldsSize, opc uint32, rt, rn Register, byteOffset uint16) error {
	if err := requireNotZero(rn, "load/store base"); err != nil {
		return err
	}
	scale := size.scale()
	if uint32(byteOffset)%scale != 0 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "offset %d is not a multiple of the access width %d", byteOffset, scale)
	}
	imm12 := uint32(byteOffset) / scale
	if imm12 > 0xFFF {
		return asmerr.New(asmerr.ImmediateOutOfRange, "scaled offset %d does not fit in 12 bits", imm12)
	}
	base := (size.sizeField() << 30) | 0x39000000 | (opc << 22)
	return e.emit(base | (imm12 << 10) | (rn.Num << 5) | rt.Num)
}

// indexed emits the unscaled 9-bit-immediate pre-/post-indexed form:
// size 111 0 00 opc 0 imm9 idx Rn Rt. idxField: 0b01 post, 0b11 pre.
func (e *Encoder) indexed(size ldsSize, opc uint32, idxField uint32, rt, rn Register, offset int16) error {
	if err := requireNotZero(rn, "load/store base"); err != nil {
		return err
	}
	if offset < -256 || offset > 255 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "pre/post-indexed offset %d does not fit in 9 bits", offset)
	}
	if rn.Num == rt.Num {
		return asmerr.New(asmerr.RegisterIncompatibility, "writeback load/store cannot use the same register as base and destination")
	}
	imm9 := uint32(offset) & 0x1FF
	base := (size.sizeField() << 30) | 0x38000000 | (opc << 22)
	return e.emit(base | (imm9 << 12) | (idxField << 10) | (rn.Num << 5) | rt.Num)
}

const (
	ldsOpcStore      = 0
	ldsOpcLoad       = 1
	ldsOpcLoadSignX  = 2 // LDRSW/LDRSH/LDRSB into X register
	ldsOpcLoadSignW  = 3 // LDRSH/LDRSB into W register
	idxPost          = 1
	idxPre           = 3
)

// LdrImm emits LDR rt, [rn, #offset] (unsigned scaled offset, no
// writeback), with access width taken from rt's register width.
func (e *Encoder) LdrImm(rt, rn Register, offset uint16) error {
	size := ldsWord
	if rt.Width == Width64 {
		size = ldsDouble
	}
	return e.unsignedOffset(size, ldsOpcLoad, rt, rn, offset)
}

// StrImm emits STR rt, [rn, #offset].
func (e *Encoder) StrImm(rt, rn Register, offset uint16) error {
	size := ldsWord
	if rt.Width == Width64 {
		size = ldsDouble
	}
	return e.unsignedOffset(size, ldsOpcStore, rt, rn, offset)
}

// LdrbImm emits LDRB rt, [rn, #offset] — zero-extending byte load.
func (e *Encoder) LdrbImm(rt, rn Register, offset uint16) error {
	return e.unsignedOffset(ldsByte, ldsOpcLoad, rt, rn, offset)
}

// StrbImm emits STRB rt, [rn, #offset].
func (e *Encoder) StrbImm(rt, rn Register, offset uint16) error {
	return e.unsignedOffset(ldsByte, ldsOpcStore, rt, rn, offset)
}

// LdrhImm emits LDRH rt, [rn, #offset] — zero-extending halfword load.
func (e *Encoder) LdrhImm(rt, rn Register, offset uint16) error {
	return e.unsignedOffset(ldsHalf, ldsOpcLoad, rt, rn, offset)
}

// StrhImm emits STRH rt, [rn, #offset].
func (e *Encoder) StrhImm(rt, rn Register, offset uint16) error {
	return e.unsignedOffset(ldsHalf, ldsOpcStore, rt, rn, offset)
}

// LdrswImm emits LDRSW rt, [rn, #offset] — sign-extending word load
// into a 64-bit register.
func (e *Encoder) LdrswImm(rt, rn Register, offset uint16) error {
	if rt.Width != Width64 {
		return asmerr.New(asmerr.RegisterIncompatibility, "LDRSW destination must be a 64-bit register")
	}
	return e.unsignedOffset(ldsWord, ldsOpcLoadSignX, rt, rn, offset)
}

// LdrPost emits LDR rt, [rn], #offset — post-indexed, unscaled imm9.
func (e *Encoder) LdrPost(rt, rn Register, offset int16) error {
	size := ldsWord
	if rt.Width == Width64 {
		size = ldsDouble
	}
	return e.indexed(size, ldsOpcLoad, idxPost, rt, rn, offset)
}

// LdrPre emits LDR rt, [rn, #offset]! — pre-indexed, unscaled imm9.
func (e *Encoder) LdrPre(rt, rn Register, offset int16) error {
	size := ldsWord
	if rt.Width == Width64 {
		size = ldsDouble
	}
	return e.indexed(size, ldsOpcLoad, idxPre, rt, rn, offset)
}

// StrPost emits STR rt, [rn], #offset.
func (e *Encoder) StrPost(rt, rn Register, offset int16) error {
	size := ldsWord
	if rt.Width == Width64 {
		size = ldsDouble
	}
	return e.indexed(size, ldsOpcStore, idxPost, rt, rn, offset)
}

// StrPre emits STR rt, [rn, #offset]!.
func (e *Encoder) StrPre(rt, rn Register, offset int16) error {
	size := ldsWord
	if rt.Width == Width64 {
		size = ldsDouble
	}
	return e.indexed(size, ldsOpcStore, idxPre, rt, rn, offset)
}

// LdrLiteral emits LDR rt, label — a PC-relative literal load (opc
// 01 for X, 00 for W), registering a linkage resolved once the
// buffer is sealed, per spec §4.3.2's branch/load-literal relocations.
func (e *Encoder) LdrLiteral(rt Register, l label.Label) error {
	base := uint32(0x18000000)
	if rt.Width == Width64 {
		base = 0x58000000
	}
	e.reserve()
	e.Buf.AddLinkage(l, -4, ldrLiteralLinker(base, rt.Num))
	return nil
}

// ldrLiteralLinker resolves target - pc (the instruction's own
// address) into the imm19 field, mirroring the x86 RIP-relative and
// AArch64 branch linkers' shape.
func ldrLiteralLinker(base, rt uint32) buffer.Linker {
	return func(buf *buffer.SegmentedBuffer, lk buffer.Linkage, linkBase uint64) error {
		targetMarker, err := buf.GetLabel(lk.Label)
		if err != nil {
			return err
		}
		targetOff := buf.GetOffset(targetMarker)
		pcOff := buf.GetOffset(lk.Target)
		delta := targetOff - pcOff
		if delta%4 != 0 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "LDR literal target %d is not word-aligned relative to pc", delta)
		}
		imm19 := delta / 4
		if imm19 < -(1<<18) || imm19 >= 1<<18 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "LDR literal offset %d out of imm19 range", delta)
		}
		instr := base | (uint32(imm19)&0x7FFFF)<<5 | rt
		seg := buf.SegmentAt(lk.Target)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], instr)
		return seg.WriteAt(lk.Target.Offset, b[:])
	}
}

var _ = math.MaxInt32
