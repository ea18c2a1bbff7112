package arm64

import (
	"encoding/binary"
	"testing"

	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

func newEnc() (*buffer.SegmentedBuffer, *Encoder) {
	buf := buffer.New(buffer.MachineARM64)
	buf.UseSection(buffer.X | buffer.R)
	return buf, New(buf)
}

func wordsOf(t *testing.T, buf *buffer.SegmentedBuffer) []uint32 {
	t.Helper()
	bs := buf.Segments()[0].Bytes
	if len(bs)%4 != 0 {
		t.Fatalf("section length %d is not a multiple of 4", len(bs))
	}
	out := make([]uint32, len(bs)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(bs[i*4:])
	}
	return out
}

// TestMovImmSingleMovz is spec §8 scenario 3: an immediate with only
// one nonzero 16-bit chunk synthesizes as a single MOVZ.
func TestMovImmSingleMovz(t *testing.T) {
	_, e := newEnc()
	if err := e.MovImm(X(0), 0x10000000000); err != nil {
		t.Fatalf("MovImm: %v", err)
	}
	words := wordsOf(t, e.Buf)
	if len(words) != 1 {
		t.Fatalf("expected a single instruction, got %d", len(words))
	}
	// 0x10000000000 == 0x100 << 32: MOVZ x0, #0x100, LSL #32.
	want := uint32(0xD2800000) | (2 << 21) | (0x100 << 5) | 0
	if words[0] != want {
		t.Fatalf("instr = %#08x, want %#08x", words[0], want)
	}
}

// TestMovImmSingleMovn is spec §8 scenario 4: an immediate with only
// one 16-bit chunk differing from 0xFFFF synthesizes as a single MOVN.
func TestMovImmSingleMovn(t *testing.T) {
	_, e := newEnc()
	if err := e.MovImm(X(1), 0xFFFFFFFFFFFF00FF); err != nil {
		t.Fatalf("MovImm: %v", err)
	}
	words := wordsOf(t, e.Buf)
	if len(words) != 1 {
		t.Fatalf("expected a single instruction, got %d", len(words))
	}
	// chunk 0 is 0x00FF, the rest are 0xFFFF: MOVN x1, #0xFF00, LSL #0
	want := uint32(0x92800000) | (0 << 21) | (uint32(0xFF00) << 5) | 1
	if words[0] != want {
		t.Fatalf("instr = %#08x, want %#08x", words[0], want)
	}
}

// TestMovImmChainFallback exercises the MOVZ+MOVK chain path for an
// immediate that is neither single-MOVZ, single-MOVN, nor bitmask
// encodable as a single ORR.
func TestMovImmChainFallback(t *testing.T) {
	_, e := newEnc()
	if err := e.MovImm(X(2), 0x1234000056780001); err != nil {
		t.Fatalf("MovImm: %v", err)
	}
	words := wordsOf(t, e.Buf)
	if len(words) < 2 {
		t.Fatalf("expected a multi-instruction chain, got %d", len(words))
	}
	// The chain starts with a 64-bit MOVZ: bits 31..23 are sf=1, opc=10,
	// 100101 (0x1A5), not MOVN (0x125) or ORR-immediate (0x164).
	if op := words[0] >> 23 & 0x1FF; op != 0x1A5 {
		t.Fatalf("first instruction %#08x is not MOVZ", words[0])
	}
}

// TestBitmaskEncodeDecodeInverse exercises the universal property from
// spec §8: decoding an encoded bitmask immediate reproduces the
// original value, across a representative sample of patterns.
func TestBitmaskEncodeDecodeInverse(t *testing.T) {
	values := []uint64{
		0x1, 0x3, 0xF, 0xFF, 0xFFFF, 0xAAAAAAAAAAAAAAAA,
		0x5555555555555555, 0x0F0F0F0F0F0F0F0F, 0x8000000000000001,
		0x7FFFFFFFFFFFFFFF,
	}
	for _, v := range values {
		n, immr, imms, ok := EncodeBitmask(v, 64)
		if !ok {
			t.Logf("value %#x is not bitmask-encodable at width 64, skipping", v)
			continue
		}
		got, _, _, _, ok := DecodeBitmask(n, immr, imms, 64)
		if !ok {
			t.Fatalf("DecodeBitmask failed to decode triple encoded from %#x", v)
		}
		if got != v {
			t.Fatalf("round trip for %#x: got %#x", v, got)
		}
	}
}

// TestBitmaskRejectsZeroAndAllOnes exercises spec §8 scenario 4: 0 and
// all-ones are never encodable as a bitmask immediate.
func TestBitmaskRejectsZeroAndAllOnes(t *testing.T) {
	if _, _, _, ok := EncodeBitmask(0, 64); ok {
		t.Fatal("expected 0 to be rejected as a bitmask immediate")
	}
	if _, _, _, ok := EncodeBitmask(^uint64(0), 64); ok {
		t.Fatal("expected all-ones to be rejected as a bitmask immediate")
	}
	if _, _, _, ok := EncodeBitmask(0xFFFFFFFF, 32); ok {
		t.Fatal("expected 32-bit all-ones to be rejected as a bitmask immediate")
	}
}

// TestAndImmValueRejectsUnencodable mirrors scenario 4 through the
// public entry point: AND with #0 must fail rather than silently no-op.
func TestAndImmValueRejectsUnencodable(t *testing.T) {
	_, e := newEnc()
	if err := e.AndImmValue(X(0), X(1), 0); err == nil {
		t.Fatal("expected ImmediateOutOfRange for an unencodable AND immediate, got nil")
	}
}

// TestBLabelResolution exercises the imm26 branch relocation end to
// end: a forward B to a bound label resolves to the correct,
// word-scaled signed offset once Link runs.
func TestBLabelResolution(t *testing.T) {
	buf, e := newEnc()
	l := label.New("target")

	if err := e.B(l); err != nil {
		t.Fatalf("B: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := e.Nop(); err != nil {
			t.Fatalf("Nop: %v", err)
		}
	}
	if err := buf.AddLabel(l); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	if err := e.Nop(); err != nil {
		t.Fatalf("Nop: %v", err)
	}

	buf.Align(0x1000)
	if err := buf.Link(0x1000, nil); err != nil {
		t.Fatalf("Link: %v", err)
	}

	words := wordsOf(t, buf)
	// B's own word is index 0; target is 5 words later (4 NOPs then the label).
	imm26 := words[0] & 0x3FFFFFF
	if imm26 != 5 {
		t.Fatalf("B imm26 = %d, want 5", imm26)
	}
	if words[0]&0xFC000000 != 0x14000000 {
		t.Fatalf("B opcode bits corrupted: %#08x", words[0])
	}
}

// TestLdrLiteralResolution exercises the PC-relative literal load
// linkage the same way TestBLabelResolution exercises B.
func TestLdrLiteralResolution(t *testing.T) {
	buf, e := newEnc()
	l := label.New("data")

	if err := e.LdrLiteral(X(3), l); err != nil {
		t.Fatalf("LdrLiteral: %v", err)
	}
	if err := buf.AddLabel(l); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	if err := buf.Fill(8, 0); err != nil {
		t.Fatalf("Fill: %v", err)
	}

	buf.Align(0x1000)
	if err := buf.Link(0x1000, nil); err != nil {
		t.Fatalf("Link: %v", err)
	}

	words := wordsOf(t, buf)
	imm19 := (words[0] >> 5) & 0x7FFFF
	if imm19 != 1 {
		t.Fatalf("LDR literal imm19 = %d, want 1", imm19)
	}
}

// TestWidthMismatchRejected exercises spec §8's universal invariant:
// operands of different widths are a RegisterIncompatibility error.
func TestWidthMismatchRejected(t *testing.T) {
	_, e := newEnc()
	if err := e.AddReg(X(0), W(1), W(2), ShiftLSL, 0); err == nil {
		t.Fatal("expected RegisterIncompatibility mixing X and W registers, got nil")
	}
}

// TestCsetConditionInversion exercises the CSET alias: the encoded
// condition field carries the inverted condition, not the one passed in.
func TestCsetConditionInversion(t *testing.T) {
	_, e := newEnc()
	if err := e.Cset(X(0), CondEQ); err != nil {
		t.Fatalf("Cset: %v", err)
	}
	words := wordsOf(t, e.Buf)
	cond := Cond((words[0] >> 12) & 0xF)
	if cond != CondNE {
		t.Fatalf("encoded condition = %v, want inverted CondNE", cond)
	}
}
