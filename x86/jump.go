package x86

import (
	"encoding/binary"
	"math"

	"github.com/xyproto/asmforge/asmerr"
	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

// Cond is an x86 condition code, shared by Jcc and SETcc.
type Cond uint8

const (
	CondO   Cond = 0x0
	CondNO  Cond = 0x1
	CondB   Cond = 0x2 // C, NAE
	CondAE  Cond = 0x3 // NB, NC
	CondE   Cond = 0x4 // Z
	CondNE  Cond = 0x5 // NZ
	CondBE  Cond = 0x6 // NA
	CondA   Cond = 0x7 // NBE
	CondS   Cond = 0x8
	CondNS  Cond = 0x9
	CondP   Cond = 0xA // PE
	CondNP  Cond = 0xB // PO
	CondL   Cond = 0xC // NGE
	CondGE  Cond = 0xD // NL
	CondLE  Cond = 0xE // NG
	CondG   Cond = 0xF // NLE
)

// Jcc emits a conditional jump to l. Per spec.md §9's resolved open
// question, it opportunistically picks the 8-bit short form when l is
// already bound to a backward offset that fits in a signed byte, and
// otherwise emits the 32-bit long form (0x0F 0x80+cc) — always for a
// forward (not-yet-bound) reference, matching §8 scenario 5's
// requirement that a far forward JZ use the long encoding.
func (e *Encoder) Jcc(cond Cond, l label.Label) error {
	return e.condJump(byte(0x70)+byte(cond), byte(0x80)+byte(cond), l)
}

// Jmp emits an unconditional jump to l, with the same short/long
// opportunistic choice as Jcc.
func (e *Encoder) Jmp(l label.Label) error {
	return e.unconditionalJump(0xEB, 0xE9, l)
}

func (e *Encoder) condJump(shortOp, longOp byte, l label.Label) error {
	if m, ok := e.tryResolved(l); ok {
		pcAfterShort := e.Buf.Current().Offset + 2
		disp := int64(m.Offset) - int64(pcAfterShort)
		if m.Section == e.Buf.Current().Section && disp >= -128 && disp <= 127 {
			if err := e.write(shortOp); err != nil {
				return err
			}
			return e.emitImm(disp, 1)
		}
	}
	if err := e.write(0x0F); err != nil {
		return err
	}
	if err := e.write(longOp); err != nil {
		return err
	}
	return e.emitBranchDisp32(l)
}

func (e *Encoder) unconditionalJump(shortOp, longOp byte, l label.Label) error {
	if m, ok := e.tryResolved(l); ok {
		pcAfterShort := e.Buf.Current().Offset + 2
		disp := int64(m.Offset) - int64(pcAfterShort)
		if m.Section == e.Buf.Current().Section && disp >= -128 && disp <= 127 {
			if err := e.write(shortOp); err != nil {
				return err
			}
			return e.emitImm(disp, 1)
		}
	}
	if err := e.write(longOp); err != nil {
		return err
	}
	return e.emitBranchDisp32(l)
}

// tryResolved reports whether l is already bound and returns its
// marker, so a short backward branch distance is knowable at emission
// time; callers check that the marker is in the currently selected
// section before choosing the short form.
func (e *Encoder) tryResolved(l label.Label) (buffer.Marker, bool) {
	if !e.Buf.HasLabel(l) {
		return buffer.Marker{}, false
	}
	m, err := e.Buf.GetLabel(l)
	if err != nil {
		return buffer.Marker{}, false
	}
	return m, true
}

// emitBranchDisp32 reserves 4 zero bytes for a rel32 branch
// displacement and registers a linkage that resolves
// target - pc_after_instruction once the buffer is sealed.
func (e *Encoder) emitBranchDisp32(l label.Label) error {
	e.Buf.AddLinkage(l, 0, branchRel32Linker())
	return e.emitDisp32(0)
}

func branchRel32Linker() buffer.Linker {
	return func(buf *buffer.SegmentedBuffer, lk buffer.Linkage, base uint64) error {
		targetMarker, err := buf.GetLabel(lk.Label)
		if err != nil {
			return err
		}
		targetOff := buf.GetOffset(targetMarker)
		pcOff := buf.GetOffset(lk.Target) + 4
		disp := targetOff - pcOff
		if disp < math.MinInt32 || disp > math.MaxInt32 {
			return asmerr.New(asmerr.ImmediateOutOfRange, "branch displacement %d does not fit in 32 bits", disp)
		}
		seg := buf.SegmentAt(lk.Target)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(int32(disp)))
		return seg.WriteAt(lk.Target.Offset, b[:])
	}
}

// Call emits a near relative CALL to l (0xE8 rel32).
func (e *Encoder) Call(l label.Label) error {
	if err := e.write(0xE8); err != nil {
		return err
	}
	return e.emitBranchDisp32(l)
}

// CallIndirect emits CALL r/m64 (0xFF /2) through a register or
// memory operand holding the target address.
func (e *Encoder) CallIndirect(target Location) error {
	if target.Size != Qword {
		return asmerr.New(asmerr.OperandShape, "indirect CALL target must be qword")
	}
	return e.emitModRM(0xFF, false, opExt(2), target, Qword)
}

// JmpIndirect emits JMP r/m64 (0xFF /4).
func (e *Encoder) JmpIndirect(target Location) error {
	if target.Size != Qword {
		return asmerr.New(asmerr.OperandShape, "indirect JMP target must be qword")
	}
	return e.emitModRM(0xFF, false, opExt(4), target, Qword)
}

// Ret emits a bare RET (0xC3).
func (e *Encoder) Ret() error { return e.write(0xC3) }

// RetImm emits RET imm16 (0xC2), popping imm extra bytes off the stack
// on return.
func (e *Encoder) RetImm(n uint16) error {
	if err := e.write(0xC2); err != nil {
		return err
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], n)
	return e.emit(b[:]...)
}

// Setcc emits SETcc dst (0x0F 0x90+cc /0), storing 0 or 1 into a
// byte-sized register or memory destination.
func (e *Encoder) Setcc(cond Cond, dst Location) error {
	if dst.Size != Byte {
		return asmerr.New(asmerr.OperandShape, "SETcc destination must be byte-sized")
	}
	return e.emitModRMLong(byte(0x90)+byte(cond), opExt(0), dst, Byte)
}
