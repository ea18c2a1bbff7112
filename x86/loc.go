package x86

import (
	"github.com/xyproto/asmforge/asmerr"
	"github.com/xyproto/asmforge/label"
)

// Addr is the mutable memory-addressing builder described in spec §6:
// `base_reg + index_reg*scale + offset [+ label]`. DESIGN NOTES §9
// recommends explicit constructors and combinator methods over
// operator overloading for a systems rewrite, so the algebra here is
// a chain of value-receiver methods instead.
type Addr struct {
	Base, Index Register
	Scale       uint8
	Offset      int64
	Lbl         *label.Label
	hasLbl      bool
}

// Mem starts an addressing expression at a base register (or Unset,
// for a label-only or index-only reference).
func Mem(base Register) Addr {
	return Addr{Base: base, Scale: 1}
}

// Index attaches a scaled index register.
func (a Addr) Index(r Register, scale uint8) Addr {
	a.Index = r
	a.Scale = scale
	return a
}

// Disp attaches a constant displacement.
func (a Addr) Disp(offset int64) Addr {
	a.Offset += offset
	return a
}

// Label attaches a symbolic displacement, resolved as RIP-relative
// when the Location is finally emitted.
func (a Addr) Label(l label.Label) Addr {
	a.Lbl = &l
	a.hasLbl = true
	return a
}

// Location is an operand value: either a bare register or a memory
// reference produced by casting an Addr to a size. Once built, a
// reference Location carries no further arithmetic — spec §3's
// invariant that "an operand marked reference cannot be further
// modified by arithmetic on its algebraic form" is enforced simply by
// Location exposing no combinator methods of its own.
type Location struct {
	IsMemory bool
	Reg      Register
	Addr     Addr
	Size     Size
}

// Reg wraps a bare register as a Location.
func Reg(r Register) Location {
	return Location{Reg: r, Size: r.Size}
}

func (a Addr) ref(size Size) (Location, error) {
	if a.Index.IsSet() {
		switch a.Scale {
		case 1, 2, 4, 8:
		default:
			return Location{}, asmerr.New(asmerr.OperandShape, "scale %d is not a power of two <= 8", a.Scale)
		}
		if a.Scale > 1 && a.Index.IsStackPointerLike() {
			return Location{}, asmerr.New(asmerr.OperandShape, "%s cannot be used as a scaled index", a.Index.Name)
		}
	}
	return Location{IsMemory: true, Addr: a, Size: size}, nil
}

// Byte, Word, Dword, Qword, Tword cast an addressing expression into
// a sized memory reference, matching the parser-facing casts in
// spec §6 (`byte|word|dword|qword|tword`).
func (a Addr) Byte() (Location, error)  { return a.ref(Byte) }
func (a Addr) Word() (Location, error)  { return a.ref(Word) }
func (a Addr) Dword() (Location, error) { return a.ref(Dword) }
func (a Addr) Qword() (Location, error) { return a.ref(Qword) }
func (a Addr) Tword() (Location, error) { return a.ref(Tword) }

// IsMemoryOperand reports whether loc is a memory reference OR a real
// register, as opposed to a zero-value Location that addresses
// nothing (a caller that built an Addr but never cast it with Byte/
// Word/Dword/Qword/Tword, or a Reg wrapping an unset Register). This
// is memory-or-register, not memory alone — is_memory() stays a
// separate, narrower predicate (the IsMemory field itself).
func (l Location) IsMemoryOperand() bool { return l.IsMemory || l.Reg.IsSet() }

// hasBaseOrIndex reports whether the memory reference carries any
// register component (as opposed to a bare label or absolute disp32).
func (a Addr) hasBaseOrIndex() bool { return a.Base.IsSet() || a.Index.IsSet() }
