package x86

import (
	"testing"

	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

func newEnc() (*buffer.SegmentedBuffer, *Encoder) {
	buf := buffer.New(buffer.MachineX86_64)
	buf.UseSection(buffer.X | buffer.R)
	return buf, New(buf)
}

func bytesOf(t *testing.T, buf *buffer.SegmentedBuffer) []byte {
	t.Helper()
	return buf.Segments()[0].Bytes
}

// TestMovRegMemAddressSizePrefix is spec §8 scenario 2: MOV AL,[RDX]
// and MOV AL,[EDX] must differ only by the 0x67 address-size prefix.
func TestMovRegMemAddressSizePrefix(t *testing.T) {
	buf, e := newEnc()

	memRDX, err := Mem(RDX).Byte()
	if err != nil {
		t.Fatalf("Mem(RDX).Byte(): %v", err)
	}
	if err := e.Mov(Reg(AL), memRDX); err != nil {
		t.Fatalf("Mov AL,[RDX]: %v", err)
	}
	memEDX, err := Mem(EDX).Byte()
	if err != nil {
		t.Fatalf("Mem(EDX).Byte(): %v", err)
	}
	if err := e.Mov(Reg(AL), memEDX); err != nil {
		t.Fatalf("Mov AL,[EDX]: %v", err)
	}

	got := bytesOf(t, buf)
	want := []byte{0x8A, 0x02, 0x67, 0x8A, 0x02}
	if string(got) != string(want) {
		t.Fatalf("bytes = % X, want % X", got, want)
	}
}

// TestArithmeticRoundTrip encodes spec §8 scenario 1's instruction
// sequence and checks the emitted bytes decode to the expected,
// independently-known x86-64 encodings, byte exactness being the
// property under test (scenario 1's execution result is covered by
// the runtimeexec integration test, which is host-architecture gated).
func TestArithmeticRoundTrip(t *testing.T) {
	buf, e := newEnc()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	must(e.MovImm(Reg(EDX), 5))      // BA 05 00 00 00
	must(e.RolImm(Reg(EDX), 3))      // C1 C2 03
	must(e.Inc(Reg(EDX)))            // FF C2
	must(e.Mov(Reg(EAX), Reg(EDX)))  // 89 D0
	must(e.Inc(Reg(EAX)))            // FF C0
	must(e.Neg(Reg(EAX)))            // F7 D8
	must(e.MovImm(Reg(CL), 2))       // B1 02
	must(e.SarCL(Reg(EAX)))          // D3 F8
	must(e.Neg(Reg(EAX)))            // F7 D8
	must(e.Ret())                   // C3

	want := []byte{
		0xBA, 0x05, 0x00, 0x00, 0x00,
		0xC1, 0xC2, 0x03,
		0xFF, 0xC2,
		0x89, 0xD0,
		0xFF, 0xC0,
		0xF7, 0xD8,
		0xB1, 0x02,
		0xD3, 0xF8,
		0xF7, 0xD8,
		0xC3,
	}
	got := bytesOf(t, buf)
	if string(got) != string(want) {
		t.Fatalf("bytes = % X, want % X", got, want)
	}
}

// TestLongJumpLabelResolution is spec §8 scenario 5: a forward JZ
// followed by many NOPs must use the 32-bit-displacement long form
// (0F 84) once the target is farther than a signed byte can reach.
func TestLongJumpLabelResolution(t *testing.T) {
	buf, e := newEnc()

	l := label.New("L")
	if err := e.Jcc(CondE, l); err != nil {
		t.Fatalf("Jcc: %v", err)
	}
	for i := 0; i < 255; i++ {
		if err := e.Nop(); err != nil {
			t.Fatalf("Nop: %v", err)
		}
	}
	if err := buf.AddLabel(l); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(e.MovImm(Reg(EAX), 1))
	must(e.Ret())

	got := bytesOf(t, buf)
	if got[0] != 0x0F || got[1] != 0x84 {
		t.Fatalf("JZ did not use the long form: got % X", got[:2])
	}

	buf.Align(0x1000)
	if err := buf.Link(0x1000, nil); err != nil {
		t.Fatalf("Link: %v", err)
	}
}

// TestHighByteRexExclusion exercises spec §8's universal invariant:
// a high-byte register cannot coexist with a REX-extended register.
func TestHighByteRexExclusion(t *testing.T) {
	_, e := newEnc()
	if err := e.Mov(Reg(AH), Reg(R8B)); err == nil {
		t.Fatal("expected RegisterIncompatibility mixing AH with R8B, got nil")
	}
}

// TestScaledStackPointerIndexRejected exercises spec §8's universal
// invariant: the stack-pointer-like register cannot be a scaled index.
func TestScaledStackPointerIndexRejected(t *testing.T) {
	if _, err := Mem(RAX).Index(RSP, 2).Dword(); err == nil {
		t.Fatal("expected OperandShape rejecting RSP as a scaled index, got nil")
	}
	if _, err := Mem(RAX).Index(RSP, 1).Dword(); err != nil {
		t.Fatalf("unscaled RSP index should be legal: %v", err)
	}
}

// TestPushPopByteDwordRejected exercises spec §4.3.1: byte and dword
// general registers cannot be pushed or popped.
func TestPushPopByteDwordRejected(t *testing.T) {
	_, e := newEnc()
	if err := e.Push(Reg(EAX)); err == nil {
		t.Fatal("expected OperandShape pushing a dword register, got nil")
	}
	if err := e.Push(Reg(AL)); err == nil {
		t.Fatal("expected OperandShape pushing a byte register, got nil")
	}
	if err := e.Push(Reg(RAX)); err != nil {
		t.Fatalf("pushing a qword register should be legal: %v", err)
	}
}
