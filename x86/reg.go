// Package x86 implements the x86-64 architecture encoder described in
// spec §4.3.1: operand validation, the central ModRM/SIB emission
// routine, and one method per mnemonic.
//
// Grounded on the teacher's reg.go (name/size/encoding register maps)
// and mem_ops.go (REX computation, RSP/RBP/SIB quirks), widened with
// the register-flag bits (accumulator, high-byte, REX-required) the
// teacher never needed because Flap never emits byte-sized operands.
package x86

// Size is an operand width.
type Size int

const (
	SizeUnknown Size = iota
	Byte
	Word
	Dword
	Qword
	Tword
)

func (s Size) String() string {
	switch s {
	case Byte:
		return "byte"
	case Word:
		return "word"
	case Dword:
		return "dword"
	case Qword:
		return "qword"
	case Tword:
		return "tword"
	default:
		return "unknown"
	}
}

// RegFlag tags special register roles referenced by the operand
// validation rules in spec §3/§4.3.1.
type RegFlag uint8

const (
	FlagGeneral RegFlag = 1 << iota
	FlagAccumulator
	FlagFloating
	FlagHighByte   // AH/BH/CH/DH — cannot coexist with a REX-extended register
	FlagRexRequired // SPL/BPL/SIL/DIL — byte register that requires a REX prefix to address
)

// Register is an x86-64 operand register. The zero value is the
// Unset sentinel (Size == SizeUnknown), used to mark an absent
// base/index in a Location.
type Register struct {
	Name     string
	Size     Size
	Encoding uint8 // 0-15; low 3 bits feed ModRM/SIB, bit 3 (>=8) means REX-extended
	Flags    RegFlag
}

// Unset marks an absent base or index register.
var Unset = Register{}

// IsSet reports whether r is a real register rather than the Unset
// sentinel.
func (r Register) IsSet() bool { return r.Size != SizeUnknown }

// Extended reports whether r needs a REX extension bit (R8-R15 family).
func (r Register) Extended() bool { return r.Encoding >= 8 }

// RM returns the low 3 bits of the encoding used in ModRM/SIB fields.
func (r Register) RM() uint8 { return r.Encoding & 7 }

// IsStackPointerLike reports whether r's low 3 bits equal RSP's (100),
// the pattern that forces a SIB byte in addressing and that spec §3
// forbids as a scaled index (RSP, R12).
func (r Register) IsStackPointerLike() bool { return r.RM() == 4 }

// IsBasePointerLike reports whether r's low 3 bits equal RBP's (101),
// the pattern that forces an explicit zero-displacement byte when
// used as a base with no other displacement (RBP, R13).
func (r Register) IsBasePointerLike() bool { return r.RM() == 5 }

func reg(name string, size Size, enc uint8, flags RegFlag) Register {
	return Register{Name: name, Size: size, Encoding: enc, Flags: flags}
}

// Byte-sized legacy registers (no REX needed).
var (
	AL = reg("al", Byte, 0, FlagGeneral|FlagAccumulator)
	CL = reg("cl", Byte, 1, FlagGeneral)
	DL = reg("dl", Byte, 2, FlagGeneral)
	BL = reg("bl", Byte, 3, FlagGeneral)
	AH = reg("ah", Byte, 4, FlagHighByte)
	CH = reg("ch", Byte, 5, FlagHighByte)
	DH = reg("dh", Byte, 6, FlagHighByte)
	BH = reg("bh", Byte, 7, FlagHighByte)
)

// REX-required byte surrogates: same encodings as AH/CH/DH/BH but
// only reachable with a REX prefix present, and never high-byte.
var (
	SPL = reg("spl", Byte, 4, FlagGeneral|FlagRexRequired)
	BPL = reg("bpl", Byte, 5, FlagGeneral|FlagRexRequired)
	SIL = reg("sil", Byte, 6, FlagGeneral|FlagRexRequired)
	DIL = reg("dil", Byte, 7, FlagGeneral|FlagRexRequired)
)

// Word-sized legacy registers.
var (
	AX = reg("ax", Word, 0, FlagGeneral|FlagAccumulator)
	CX = reg("cx", Word, 1, FlagGeneral)
	DX = reg("dx", Word, 2, FlagGeneral)
	BX = reg("bx", Word, 3, FlagGeneral)
	SP = reg("sp", Word, 4, FlagGeneral)
	BP = reg("bp", Word, 5, FlagGeneral)
	SI = reg("si", Word, 6, FlagGeneral)
	DI = reg("di", Word, 7, FlagGeneral)
)

// Dword-sized legacy registers.
var (
	EAX = reg("eax", Dword, 0, FlagGeneral|FlagAccumulator)
	ECX = reg("ecx", Dword, 1, FlagGeneral)
	EDX = reg("edx", Dword, 2, FlagGeneral)
	EBX = reg("ebx", Dword, 3, FlagGeneral)
	ESP = reg("esp", Dword, 4, FlagGeneral)
	EBP = reg("ebp", Dword, 5, FlagGeneral)
	ESI = reg("esi", Dword, 6, FlagGeneral)
	EDI = reg("edi", Dword, 7, FlagGeneral)
)

// Qword-sized legacy registers.
var (
	RAX = reg("rax", Qword, 0, FlagGeneral|FlagAccumulator)
	RCX = reg("rcx", Qword, 1, FlagGeneral)
	RDX = reg("rdx", Qword, 2, FlagGeneral)
	RBX = reg("rbx", Qword, 3, FlagGeneral)
	RSP = reg("rsp", Qword, 4, FlagGeneral)
	RBP = reg("rbp", Qword, 5, FlagGeneral)
	RSI = reg("rsi", Qword, 6, FlagGeneral)
	RDI = reg("rdi", Qword, 7, FlagGeneral)
)

// Extended R8-R15 family, one array per width.
var (
	R8B, R9B, R10B, R11B, R12B, R13B, R14B, R15B = extByte()
	R8W, R9W, R10W, R11W, R12W, R13W, R14W, R15W = extWord()
	R8D, R9D, R10D, R11D, R12D, R13D, R14D, R15D = extDword()
	R8, R9, R10, R11, R12, R13, R14, R15         = extQword()
)

func extByte() (a, b, c, d, e, f, g, h Register) {
	return reg("r8b", Byte, 8, FlagGeneral), reg("r9b", Byte, 9, FlagGeneral),
		reg("r10b", Byte, 10, FlagGeneral), reg("r11b", Byte, 11, FlagGeneral),
		reg("r12b", Byte, 12, FlagGeneral), reg("r13b", Byte, 13, FlagGeneral),
		reg("r14b", Byte, 14, FlagGeneral), reg("r15b", Byte, 15, FlagGeneral)
}

func extWord() (a, b, c, d, e, f, g, h Register) {
	return reg("r8w", Word, 8, FlagGeneral), reg("r9w", Word, 9, FlagGeneral),
		reg("r10w", Word, 10, FlagGeneral), reg("r11w", Word, 11, FlagGeneral),
		reg("r12w", Word, 12, FlagGeneral), reg("r13w", Word, 13, FlagGeneral),
		reg("r14w", Word, 14, FlagGeneral), reg("r15w", Word, 15, FlagGeneral)
}

func extDword() (a, b, c, d, e, f, g, h Register) {
	return reg("r8d", Dword, 8, FlagGeneral), reg("r9d", Dword, 9, FlagGeneral),
		reg("r10d", Dword, 10, FlagGeneral), reg("r11d", Dword, 11, FlagGeneral),
		reg("r12d", Dword, 12, FlagGeneral), reg("r13d", Dword, 13, FlagGeneral),
		reg("r14d", Dword, 14, FlagGeneral), reg("r15d", Dword, 15, FlagGeneral)
}

func extQword() (a, b, c, d, e, f, g, h Register) {
	return reg("r8", Qword, 8, FlagGeneral), reg("r9", Qword, 9, FlagGeneral),
		reg("r10", Qword, 10, FlagGeneral), reg("r11", Qword, 11, FlagGeneral),
		reg("r12", Qword, 12, FlagGeneral), reg("r13", Qword, 13, FlagGeneral),
		reg("r14", Qword, 14, FlagGeneral), reg("r15", Qword, 15, FlagGeneral)
}

// ST is the top of the FPU register stack.
var ST = reg("st", Tword, 0, FlagFloating)
