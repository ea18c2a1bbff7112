package x86

// Nop emits a single-byte NOP (0x90).
func (e *Encoder) Nop() error { return e.write(0x90) }

// Syscall emits SYSCALL (0x0F 0x05), transferring control to the
// kernel per the host ABI's system-call convention.
func (e *Encoder) Syscall() error {
	if err := e.write(0x0F); err != nil {
		return err
	}
	return e.write(0x05)
}

// Sysret emits SYSRET (0x0F 0x07), returning from a SYSCALL-entered
// kernel routine.
func (e *Encoder) Sysret() error {
	if err := e.write(0x0F); err != nil {
		return err
	}
	return e.write(0x07)
}

// Int emits INT imm8 (0xCD ib), raising the given software interrupt
// vector (e.g. 0x80 for the legacy Linux syscall gate).
func (e *Encoder) Int(vector uint8) error {
	if err := e.write(0xCD); err != nil {
		return err
	}
	return e.write(vector)
}

// Cqo emits CQO (REX.W 0x99), sign-extending RAX into RDX:RAX — the
// widening step DIV/IDIV need ahead of a 64-bit divide.
func (e *Encoder) Cqo() error {
	if err := e.write(0x48); err != nil {
		return err
	}
	return e.write(0x99)
}

// Cdq emits CDQ (0x99), sign-extending EAX into EDX:EAX.
func (e *Encoder) Cdq() error { return e.write(0x99) }
