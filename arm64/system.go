package arm64

import "github.com/xyproto/asmforge/asmerr"

// Nop emits NOP — the CRm:op2=000 0000 hint.
func (e *Encoder) Nop() error { return e.emit(0xD503201F) }

// Yield emits YIELD.
func (e *Encoder) Yield() error { return e.emit(0xD503203F) }

// Wfe emits WFE — wait for event.
func (e *Encoder) Wfe() error { return e.emit(0xD503205F) }

// Wfi emits WFI — wait for interrupt.
func (e *Encoder) Wfi() error { return e.emit(0xD503207F) }

// Sev emits SEV — send event.
func (e *Encoder) Sev() error { return e.emit(0xD503209F) }

// Sevl emits SEVL — send event local.
func (e *Encoder) Sevl() error { return e.emit(0xD50320BF) }

// Svc emits SVC #imm16 — supervisor call, the AArch64 syscall gate.
func (e *Encoder) Svc(imm16 uint16) error {
	return e.emit(0xD4000001 | (uint32(imm16) << 5))
}

// Hvc emits HVC #imm16 — hypervisor call.
func (e *Encoder) Hvc(imm16 uint16) error {
	return e.emit(0xD4000002 | (uint32(imm16) << 5))
}

// Brk emits BRK #imm16 — breakpoint, used to embed debugger traps or
// unreachable-code markers.
func (e *Encoder) Brk(imm16 uint16) error {
	return e.emit(0xD4200000 | (uint32(imm16) << 5))
}

// Hlt emits HLT #imm16 — halt, a permanently-undefined instruction
// reserved for external halting debug.
func (e *Encoder) Hlt(imm16 uint16) error {
	return e.emit(0xD4400000 | (uint32(imm16) << 5))
}

// Isb emits ISB — instruction synchronization barrier. option is the
// 4-bit CRm field; 15 (SY) is the only defined value, but any 0-15 is
// encoded as given.
func (e *Encoder) Isb(option uint8) error {
	if option > 15 {
		return asmerr.New(asmerr.ImmediateOutOfRange, "ISB option %d does not fit in 4 bits", option)
	}
	return e.emit(0xD50330DF | (uint32(option) << 8))
}
