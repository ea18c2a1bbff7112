package arm64

import (
	"encoding/binary"

	"github.com/xyproto/asmforge/asmerr"
	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

// relBranchLinker resolves target - pc into a signed imm field of
// `bits` width, pre-shifted left by 2 (every AArch64 branch target is
// word-aligned), ORed into `base | extra` at the reserved word.
func relBranchLinker(base, extra uint32, bits uint, lowBit uint32) buffer.Linker {
	return func(buf *buffer.SegmentedBuffer, lk buffer.Linkage, linkBase uint64) error {
		targetMarker, err := buf.GetLabel(lk.Label)
		if err != nil {
			return err
		}
		delta := buf.GetOffset(targetMarker) - buf.GetOffset(lk.Target)
		if delta%4 != 0 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "branch target %d is not word-aligned relative to pc", delta)
		}
		imm := delta / 4
		half := int64(1) << (bits - 1)
		if imm < -half || imm >= half {
			return asmerr.New(asmerr.ImmediateOutOfRange, "branch offset %d does not fit in a %d-bit field", delta, bits)
		}
		mask := uint32(1)<<bits - 1
		instr := base | extra | (uint32(imm)&mask)<<lowBit
		seg := buf.SegmentAt(lk.Target)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], instr)
		return seg.WriteAt(lk.Target.Offset, b[:])
	}
}

// B emits an unconditional branch to l, PC-relative imm26.
func (e *Encoder) B(l label.Label) error {
	e.reserve()
	e.Buf.AddLinkage(l, -4, relBranchLinker(0x14000000, 0, 26, 0))
	return nil
}

// BL emits a branch-with-link to l, PC-relative imm26, saving the
// return address in X30.
func (e *Encoder) BL(l label.Label) error {
	e.reserve()
	e.Buf.AddLinkage(l, -4, relBranchLinker(0x94000000, 0, 26, 0))
	return nil
}

// Br emits BR rn — an unconditional branch to the address in rn.
func (e *Encoder) Br(rn Register) error {
	if err := requireNotZero(rn, "BR target"); err != nil {
		return err
	}
	return e.emit(0xD61F0000 | (rn.Num << 5))
}

// Blr emits BLR rn — branch-with-link to the address in rn.
func (e *Encoder) Blr(rn Register) error {
	if err := requireNotZero(rn, "BLR target"); err != nil {
		return err
	}
	return e.emit(0xD63F0000 | (rn.Num << 5))
}

// RetReg emits RET rn, returning to the address in rn (X30 if rn is
// the zero value — callers normally pass LR explicitly).
func (e *Encoder) RetReg(rn Register) error {
	if rn == (Register{}) {
		rn = LR
	}
	if err := requireNotZero(rn, "RET target"); err != nil {
		return err
	}
	return e.emit(0xD65F0000 | (rn.Num << 5))
}

// Cond is a condition code for B.cond, per the standard AArch64
// four-bit encoding.
type Cond uint8

const (
	CondEQ Cond = 0x0
	CondNE Cond = 0x1
	CondCS Cond = 0x2
	CondCC Cond = 0x3
	CondMI Cond = 0x4
	CondPL Cond = 0x5
	CondVS Cond = 0x6
	CondVC Cond = 0x7
	CondHI Cond = 0x8
	CondLS Cond = 0x9
	CondGE Cond = 0xA
	CondLT Cond = 0xB
	CondGT Cond = 0xC
	CondLE Cond = 0xD
	CondAL Cond = 0xE
)

// Bcond emits B.cond l — a conditional branch, PC-relative imm19.
func (e *Encoder) Bcond(cond Cond, l label.Label) error {
	e.reserve()
	e.Buf.AddLinkage(l, -4, relBranchLinker(0x54000000, uint32(cond), 19, 5))
	return nil
}

// Cbz emits CBZ rt, l — branch to l if rt is zero, PC-relative imm19.
func (e *Encoder) Cbz(rt Register, l label.Label) error {
	return e.compareBranch(0, rt, l)
}

// Cbnz emits CBNZ rt, l — branch to l if rt is nonzero.
func (e *Encoder) Cbnz(rt Register, l label.Label) error {
	return e.compareBranch(1, rt, l)
}

func (e *Encoder) compareBranch(op uint32, rt Register, l label.Label) error {
	base := uint32(0x34000000) | (op << 24)
	if rt.Width == Width64 {
		base |= 1 << 31
	}
	e.reserve()
	e.Buf.AddLinkage(l, -4, relBranchLinker(base, rt.Num, 19, 5))
	return nil
}

// Tbz emits TBZ rt, #bit, l — branch to l if bit `bit` of rt is zero,
// PC-relative imm14.
func (e *Encoder) Tbz(rt Register, bit uint8, l label.Label) error {
	return e.testBranch(0, rt, bit, l)
}

// Tbnz emits TBNZ rt, #bit, l — branch to l if bit `bit` of rt is set.
func (e *Encoder) Tbnz(rt Register, bit uint8, l label.Label) error {
	return e.testBranch(1, rt, bit, l)
}

func (e *Encoder) testBranch(op uint32, rt Register, bit uint8, l label.Label) error {
	max := uint8(31)
	if rt.Width == Width64 {
		max = 63
	}
	if bit > max {
		return asmerr.New(asmerr.ImmediateOutOfRange, "test-branch bit index %d exceeds register width", bit)
	}
	b5 := uint32(bit) >> 5
	b40 := (uint32(bit) & 0x1F) << 19
	base := uint32(0x36000000) | (op << 24) | (b5 << 31) | b40
	e.reserve()
	e.Buf.AddLinkage(l, -4, relBranchLinker(base, rt.Num, 14, 5))
	return nil
}

// adrLinker resolves target - pc into the split 21-bit immediate used
// by ADR/ADRP: immlo (bits 30:29) holds the low 2 bits, immhi (bits
// 23:5) holds the remaining 19, per spec §4.3.2's "split 21-bit
// immediate" relocation. pageShift, when true, rounds both pc and
// target down to a 4KiB page before subtracting (ADRP).
func adrLinker(op uint32, rd uint32, pageShift bool) buffer.Linker {
	return func(buf *buffer.SegmentedBuffer, lk buffer.Linkage, linkBase uint64) error {
		targetMarker, err := buf.GetLabel(lk.Label)
		if err != nil {
			return err
		}
		target := int64(buf.GetOffset(targetMarker))
		pc := int64(buf.GetOffset(lk.Target))
		if pageShift {
			target &^= 0xFFF
			pc &^= 0xFFF
		}
		delta := target - pc
		if pageShift {
			delta >>= 12
		}
		if delta < -(1<<20) || delta >= 1<<20 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "ADR/ADRP offset %d does not fit in a 21-bit field", delta)
		}
		immlo := uint32(delta) & 0x3
		immhi := (uint32(delta) >> 2) & 0x7FFFF
		instr := op | (immlo << 29) | (immhi << 5) | rd
		seg := buf.SegmentAt(lk.Target)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], instr)
		return seg.WriteAt(lk.Target.Offset, b[:])
	}
}

// Adr emits ADR rd, l — rd = pc + (byte-granular signed 21-bit offset to l).
func (e *Encoder) Adr(rd Register, l label.Label) error {
	if err := requireNotZero(rd, "ADR destination"); err != nil {
		return err
	}
	e.reserve()
	e.Buf.AddLinkage(l, -4, adrLinker(0x10000000, rd.Num, false))
	return nil
}

// Adrp emits ADRP rd, l — rd = (pc & ~0xFFF) + (page-granular signed
// 21-bit offset to l's page, shifted left by 12).
func (e *Encoder) Adrp(rd Register, l label.Label) error {
	if err := requireNotZero(rd, "ADRP destination"); err != nil {
		return err
	}
	e.reserve()
	e.Buf.AddLinkage(l, -4, adrLinker(0x90000000, rd.Num, true))
	return nil
}
