//go:build amd64

package runtimeexec

import (
	"testing"

	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
	"github.com/xyproto/asmforge/x86"
)

// TestArithmeticRoundTripExecution is spec §8 scenario 1, run for
// real: the emitted sequence computes 11 and is read back through the
// ABI integer return register.
func TestArithmeticRoundTripExecution(t *testing.T) {
	buf := buffer.New(buffer.MachineX86_64)
	buf.UseSection(buffer.X | buffer.R)
	e := x86.New(buf)
	entry := label.New("entry")

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(buf.AddLabel(entry))
	must(e.MovImm(x86.Reg(x86.EDX), 5))
	must(e.RolImm(x86.Reg(x86.EDX), 3))
	must(e.Inc(x86.Reg(x86.EDX)))
	must(e.Mov(x86.Reg(x86.EAX), x86.Reg(x86.EDX)))
	must(e.Inc(x86.Reg(x86.EAX)))
	must(e.Neg(x86.Reg(x86.EAX)))
	must(e.MovImm(x86.Reg(x86.CL), 2))
	must(e.SarCL(x86.Reg(x86.EAX)))
	must(e.Neg(x86.Reg(x86.EAX)))
	must(e.Ret())

	m, err := Map(buf, nil)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer m.Release()

	got, err := m.CallI32(entry)
	if err != nil {
		t.Fatalf("CallI32: %v", err)
	}
	if got != 11 {
		t.Fatalf("result = %d, want 11", got)
	}
}

// TestScallRoundTrip exercises the packed-argument invocation path:
// the generated code reads its single argument out of the block
// pointed to by RDI and doubles it.
func TestScallRoundTrip(t *testing.T) {
	buf := buffer.New(buffer.MachineX86_64)
	buf.UseSection(buffer.X | buffer.R)
	e := x86.New(buf)
	entry := label.New("double")

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(buf.AddLabel(entry))
	rdiQword, err := x86.Mem(x86.RDI).Qword()
	must(err)
	must(e.Mov(x86.Reg(x86.RAX), rdiQword))
	must(e.Add(x86.Reg(x86.RAX), x86.Reg(x86.RAX)))
	must(e.Ret())

	m, err := Map(buf, nil)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer m.Release()

	got, err := m.Scall(entry, 21)
	if err != nil {
		t.Fatalf("Scall: %v", err)
	}
	if got != 42 {
		t.Fatalf("result = %d, want 42", got)
	}
}
