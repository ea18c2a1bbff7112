// Package arm64 implements the AArch64 architecture encoder described
// in spec §4.3.2: fixed 32-bit-word instruction emission, the
// bitmask-immediate encoder, and one method per mnemonic class.
//
// Grounded on the teacher's arm64_instructions.go (ARM64Out), which
// already writes little-endian 32-bit words via encodeInstr and maps
// register names to their 5-bit encodings in arm64GPRegs; this
// package keeps the same opcode-constant-OR-shifted-field construction
// style but replaces bare register-name strings with a typed Register
// and adds the validation spec §4.3.2 requires (width mismatch,
// zero/stack distinction) that the teacher never performed.
package arm64

import "github.com/xyproto/asmforge/asmerr"

// Width is the operand width of a general register.
type Width int

const (
	Width32 Width = iota
	Width64
)

// RegFlag tags the zero-vs-stack distinction spec §4.3.2 calls out:
// several instructions accept one but not the other.
type RegFlag uint8

const (
	FlagZero RegFlag = 1 << iota
	FlagStack
)

// Register is an AArch64 general-purpose register reference.
type Register struct {
	Name  string
	Num   uint32 // 0-31; 31 means either XZR/WZR or SP depending on Flags/context
	Width Width
	Flags RegFlag
}

// IsZero reports whether r is the zero register (WZR/XZR).
func (r Register) IsZero() bool { return r.Flags&FlagZero != 0 }

// IsStack reports whether r is SP.
func (r Register) IsStack() bool { return r.Flags&FlagStack != 0 }

func gpr(name string, num uint32, w Width) Register {
	return Register{Name: name, Num: num, Width: w}
}

// W returns the 32-bit view of general register n (0-30).
func W(n uint32) Register { return gpr(wName(n), n, Width32) }

// X returns the 64-bit view of general register n (0-30).
func X(n uint32) Register { return gpr(xName(n), n, Width64) }

func wName(n uint32) string { return "w" + uitoa(n) }
func xName(n uint32) string { return "x" + uitoa(n) }

func uitoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// WZR and XZR are the zero register, 32- and 64-bit views.
var (
	WZR = Register{Name: "wzr", Num: 31, Width: Width32, Flags: FlagZero}
	XZR = Register{Name: "xzr", Num: 31, Width: Width64, Flags: FlagZero}
)

// SP is the stack pointer (always treated as 64-bit).
var SP = Register{Name: "sp", Num: 31, Width: Width64, Flags: FlagStack}

// LR is the link register, X30.
var LR = X(30)

// FP is the frame pointer, X29.
var FP = X(29)

// checkWidthMatch enforces spec §4.3.2's "register width mismatch
// across operands" validation error.
func checkWidthMatch(regs ...Register) error {
	if len(regs) == 0 {
		return nil
	}
	w := regs[0].Width
	for _, r := range regs[1:] {
		if r.Width != w {
			return asmerr.New(asmerr.RegisterIncompatibility, "register width mismatch: %s vs %s", regs[0].Name, r.Name)
		}
	}
	return nil
}

// requireNotZero rejects a zero register where spec §4.3.2 requires
// the stack register instead (e.g. ADD's Rn when forming a stack
// adjustment).
func requireNotZero(r Register, context string) error {
	if r.IsZero() {
		return asmerr.New(asmerr.RegisterIncompatibility, "%s requires the stack register, not the zero register", context)
	}
	return nil
}

// requireNotStack rejects SP where a plain general register (possibly
// zero) is required.
func requireNotStack(r Register, context string) error {
	if r.IsStack() {
		return asmerr.New(asmerr.RegisterIncompatibility, "%s requires a general register, not SP", context)
	}
	return nil
}
