package x86

// Rep selects the optional repeat prefix for the string-block family.
type Rep uint8

const (
	RepNone Rep = iota
	RepRep      // 0xF3, unconditional repeat (MOVS/STOS/LODS)
	RepRepE     // 0xF3, repeat while equal (CMPS/SCAS)
	RepRepNE    // 0xF2, repeat while not equal (CMPS/SCAS)
)

func (e *Encoder) writeRepPrefix(r Rep) error {
	switch r {
	case RepRep, RepRepE:
		return e.write(0xF3)
	case RepRepNE:
		return e.write(0xF2)
	}
	return nil
}

// stringOp emits one string-block instruction for the given width,
// with REX.W/operand-size-66 prefixing handled the same way the
// central ModRM routine would, but with no ModRM byte at all — these
// opcodes address memory implicitly through RSI/RDI/RAX.
func (e *Encoder) stringOp(rep Rep, size Size, opByte, opWide byte) error {
	if err := e.writeRepPrefix(rep); err != nil {
		return err
	}
	if size == Word {
		if err := e.write(0x66); err != nil {
			return err
		}
	}
	if size == Qword {
		if err := e.write(0x48); err != nil { // REX.W
			return err
		}
	}
	if size == Byte {
		return e.write(opByte)
	}
	return e.write(opWide)
}

// MovsB/W/D/Q copy one element from [RSI] to [RDI], advancing both by
// the element width (backward if DF is set).
func (e *Encoder) MovsB(rep Rep) error { return e.stringOp(rep, Byte, 0xA4, 0xA5) }
func (e *Encoder) MovsW(rep Rep) error { return e.stringOp(rep, Word, 0xA4, 0xA5) }
func (e *Encoder) MovsD(rep Rep) error { return e.stringOp(rep, Dword, 0xA4, 0xA5) }
func (e *Encoder) MovsQ(rep Rep) error { return e.stringOp(rep, Qword, 0xA4, 0xA5) }

// CmpsB/W/D/Q compare [RSI] against [RDI], advancing both.
func (e *Encoder) CmpsB(rep Rep) error { return e.stringOp(rep, Byte, 0xA6, 0xA7) }
func (e *Encoder) CmpsW(rep Rep) error { return e.stringOp(rep, Word, 0xA6, 0xA7) }
func (e *Encoder) CmpsD(rep Rep) error { return e.stringOp(rep, Dword, 0xA6, 0xA7) }
func (e *Encoder) CmpsQ(rep Rep) error { return e.stringOp(rep, Qword, 0xA6, 0xA7) }

// StosB/W/D/Q store the accumulator into [RDI], advancing it.
func (e *Encoder) StosB(rep Rep) error { return e.stringOp(rep, Byte, 0xAA, 0xAB) }
func (e *Encoder) StosW(rep Rep) error { return e.stringOp(rep, Word, 0xAA, 0xAB) }
func (e *Encoder) StosD(rep Rep) error { return e.stringOp(rep, Dword, 0xAA, 0xAB) }
func (e *Encoder) StosQ(rep Rep) error { return e.stringOp(rep, Qword, 0xAA, 0xAB) }

// LodsB/W/D/Q load [RSI] into the accumulator, advancing it.
func (e *Encoder) LodsB(rep Rep) error { return e.stringOp(rep, Byte, 0xAC, 0xAD) }
func (e *Encoder) LodsW(rep Rep) error { return e.stringOp(rep, Word, 0xAC, 0xAD) }
func (e *Encoder) LodsD(rep Rep) error { return e.stringOp(rep, Dword, 0xAC, 0xAD) }
func (e *Encoder) LodsQ(rep Rep) error { return e.stringOp(rep, Qword, 0xAC, 0xAD) }

// ScasB/W/D/Q compare the accumulator against [RDI], advancing it.
func (e *Encoder) ScasB(rep Rep) error { return e.stringOp(rep, Byte, 0xAE, 0xAF) }
func (e *Encoder) ScasW(rep Rep) error { return e.stringOp(rep, Word, 0xAE, 0xAF) }
func (e *Encoder) ScasD(rep Rep) error { return e.stringOp(rep, Dword, 0xAE, 0xAF) }
func (e *Encoder) ScasQ(rep Rep) error { return e.stringOp(rep, Qword, 0xAE, 0xAF) }
