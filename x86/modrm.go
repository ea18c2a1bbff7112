package x86

import (
	"encoding/binary"
	"math"

	"github.com/xyproto/asmforge/asmerr"
	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

// regSpec is the "reg/opcode-extension" field from spec §4.3.1's
// central routine: either a real register (reg-to-rm forms) or a bare
// 3-bit opcode extension digit (immediate-group forms like ADD /0).
// A bare extension digit never needs REX.R, since it isn't a register.
type regSpec struct {
	bits uint8
	ext  bool
	real *Register
}

// opExt builds a regSpec from a plain 3-bit opcode-extension digit.
func opExt(n uint8) regSpec { return regSpec{bits: n & 7} }

// regOf builds a regSpec from a real register operand.
func regOf(r Register) regSpec { return regSpec{bits: r.RM(), ext: r.Extended(), real: &r} }

// collectRegs gathers every register actually referenced by an
// instruction (reg field, rm register-direct operand, or base/index of
// a memory operand); anyFlag/anyExtended then scan them for the two
// flags spec §3's invariant names.
func collectRegs(reg regSpec, rm Location) []Register {
	var regs []Register
	if reg.real != nil {
		regs = append(regs, *reg.real)
	}
	if rm.IsMemory {
		if rm.Addr.Base.IsSet() {
			regs = append(regs, rm.Addr.Base)
		}
		if rm.Addr.Index.IsSet() {
			regs = append(regs, rm.Addr.Index)
		}
	} else if rm.Reg.IsSet() {
		regs = append(regs, rm.Reg)
	}
	return regs
}

func anyFlag(regs []Register, f RegFlag) bool {
	for _, r := range regs {
		if r.Flags&f != 0 {
			return true
		}
	}
	return false
}

func anyExtended(regs []Register) bool {
	for _, r := range regs {
		if r.Extended() {
			return true
		}
	}
	return false
}

// emitModRM is the central ModRM/SIB emission routine from spec
// §4.3.1. opcode is the final opcode byte (0x0F-prefixed iff long is
// true); reg is the reg/opcode-extension field; rm is the
// destination operand (register or memory); size is the operand
// width. Instructions whose immediate trails the ModRM group (MOV
// r/m,imm; TEST r/m,imm) must set e.ripSuffix to that immediate's
// byte width before calling emitModRM; this routine consults and
// clears it, per spec §4.3.1's RIP-relative suffix counter rule.
func (e *Encoder) emitModRM(opcode byte, long bool, reg regSpec, rm Location, size Size) error {
	suffix := e.ripSuffix
	e.ripSuffix = 0

	if size == SizeUnknown {
		return asmerr.New(asmerr.OperandShape, "operand size is indeterminate")
	}
	if !rm.IsMemoryOperand() {
		return asmerr.New(asmerr.OperandShape, "operand is neither a register nor a memory reference")
	}

	regs := collectRegs(reg, rm)
	if anyFlag(regs, FlagHighByte) && anyExtended(regs) {
		return asmerr.New(asmerr.RegisterIncompatibility, "high-byte register cannot coexist with a REX-extended register")
	}

	if size == Word {
		if err := e.write(0x66); err != nil {
			return err
		}
	}

	var addrIs32 bool
	if rm.IsMemory {
		baseIs32 := rm.Addr.Base.IsSet() && rm.Addr.Base.Size == Dword
		indexIs32 := rm.Addr.Index.IsSet() && rm.Addr.Index.Size == Dword
		baseIs64 := rm.Addr.Base.IsSet() && rm.Addr.Base.Size == Qword
		indexIs64 := rm.Addr.Index.IsSet() && rm.Addr.Index.Size == Qword
		if (baseIs32 || indexIs32) && (baseIs64 || indexIs64) {
			return asmerr.New(asmerr.OperandShape, "mixed 32-bit and 64-bit addressing registers")
		}
		addrIs32 = baseIs32 || indexIs32
		if addrIs32 {
			if err := e.write(0x67); err != nil {
				return err
			}
		}
	}

	// REX prefix.
	rex := byte(0x40)
	needRex := false
	if size == Qword {
		rex |= 0x08 // REX.W
		needRex = true
	}
	if reg.ext {
		rex |= 0x04 // REX.R
		needRex = true
	}
	if rm.IsMemory && rm.Addr.Index.IsSet() && rm.Addr.Index.Extended() {
		rex |= 0x02 // REX.X
		needRex = true
	}
	if rm.IsMemory {
		if rm.Addr.Base.IsSet() && rm.Addr.Base.Extended() {
			rex |= 0x01 // REX.B
			needRex = true
		}
	} else if rm.Reg.Extended() {
		rex |= 0x01
		needRex = true
	}
	if !rm.IsMemory && rm.Reg.Flags&FlagRexRequired != 0 {
		needRex = true
	}
	if reg.real != nil && reg.real.Flags&FlagRexRequired != 0 {
		needRex = true
	}
	if needRex {
		if err := e.write(rex); err != nil {
			return err
		}
	}

	if long {
		if err := e.write(0x0F); err != nil {
			return err
		}
	}
	if err := e.write(opcode); err != nil {
		return err
	}

	if !rm.IsMemory {
		modrm := byte(0xC0) | (reg.bits << 3) | rm.Reg.RM()
		return e.write(modrm)
	}

	return e.emitMemoryOperand(reg.bits, rm.Addr, suffix)
}

// emitMemoryOperand writes the ModRM (+ SIB, + displacement) group
// for a memory addressing expression, handling the well-known quirks
// from spec §4.3.1 step 6. pcAdjust is the count of bytes this
// instruction will still emit after the group (trailing immediate),
// used to correct a RIP-relative displacement.
func (e *Encoder) emitMemoryOperand(regField uint8, a Addr, pcAdjust int) error {
	// Absolute / labelled reference with no base register: [RIP + disp32].
	if a.hasLbl && !a.Base.IsSet() {
		modrm := byte(0x00) | (regField << 3) | 0x05 // mod=00, rm=101
		if err := e.write(modrm); err != nil {
			return err
		}
		return e.emitLabelDisp32(*a.Lbl, pcAdjust)
	}

	// [index*scale + disp32], no base: SIB base=101 (none), mod=00.
	if !a.Base.IsSet() && a.Index.IsSet() {
		modrm := byte(0x00) | (regField << 3) | 0x04
		if err := e.write(modrm); err != nil {
			return err
		}
		sib := scaleBits(a.Scale)<<6 | (a.Index.RM() << 3) | 0x05
		if err := e.write(sib); err != nil {
			return err
		}
		return e.emitDisp32(int32(a.Offset))
	}

	if !a.Base.IsSet() {
		return asmerr.New(asmerr.OperandShape, "memory operand has neither base, index, nor label")
	}

	base := a.Base
	needsSIB := a.Index.IsSet() || base.IsStackPointerLike()
	forceDisp8 := base.IsBasePointerLike() && a.Offset == 0 && !a.hasLbl

	var mod byte
	switch {
	case a.Offset == 0 && !forceDisp8 && !a.hasLbl:
		mod = 0x00
	case !a.hasLbl && a.Offset >= -128 && a.Offset <= 127:
		mod = 0x01
	default:
		mod = 0x02
	}

	rmField := base.RM()
	if needsSIB {
		rmField = 0x04
	}
	modrm := (mod << 6) | (regField << 3) | rmField
	if err := e.write(modrm); err != nil {
		return err
	}

	if needsSIB {
		var sib byte
		if a.Index.IsSet() {
			sib = scaleBits(a.Scale)<<6 | (a.Index.RM() << 3) | base.RM()
		} else {
			sib = 0<<6 | (4 << 3) | base.RM() // index=100 (none), scale ignored
		}
		if err := e.write(sib); err != nil {
			return err
		}
	}

	switch mod {
	case 0x00:
		return nil
	case 0x01:
		return e.write(byte(int8(a.Offset)))
	default:
		if a.hasLbl {
			return asmerr.New(asmerr.OperandShape, "based addressing cannot also carry a label displacement")
		}
		return e.emitDisp32(int32(a.Offset))
	}
}

func scaleBits(scale uint8) byte {
	switch scale {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

func (e *Encoder) emitDisp32(v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	for _, x := range b {
		if err := e.write(x); err != nil {
			return err
		}
	}
	return nil
}

// emitLabelDisp32 reserves 4 zero bytes for a RIP-relative
// displacement and registers a linkage that resolves it once the
// buffer is sealed and linked, per spec §4.3.1's RIP-relative suffix
// counter rule: the written displacement equals
// target_offset - (address immediately after this instruction),
// where "after this instruction" accounts for pcAdjust trailing bytes
// the caller has not emitted yet.
func (e *Encoder) emitLabelDisp32(l label.Label, pcAdjust int) error {
	e.Buf.AddLinkage(l, 0, ripRelativeLinker(pcAdjust))
	return e.emitDisp32(0)
}

func ripRelativeLinker(pcAdjust int) buffer.Linker {
	return func(buf *buffer.SegmentedBuffer, lk buffer.Linkage, base uint64) error {
		targetMarker, err := buf.GetLabel(lk.Label)
		if err != nil {
			return err
		}
		targetOff := buf.GetOffset(targetMarker)
		pcOff := buf.GetOffset(lk.Target) + 4 + int64(pcAdjust)
		disp := targetOff - pcOff
		if disp < math.MinInt32 || disp > math.MaxInt32 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "RIP-relative displacement %d does not fit in 32 bits", disp)
		}
		seg := buf.SegmentAt(lk.Target)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(int32(disp)))
		return seg.WriteAt(lk.Target.Offset, b[:])
	}
}
