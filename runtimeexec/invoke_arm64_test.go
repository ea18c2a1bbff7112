//go:build arm64

package runtimeexec

import (
	"testing"

	"github.com/xyproto/asmforge/arm64"
	"github.com/xyproto/asmforge/buffer"
	"github.com/xyproto/asmforge/label"
)

// TestMovSynthesisExecution maps and calls a small AArch64 routine
// that returns a MOV-synthesized immediate through X0, exercising the
// runtime mapper end to end on the arm64 backend.
func TestMovSynthesisExecution(t *testing.T) {
	buf := buffer.New(buffer.MachineARM64)
	buf.UseSection(buffer.X | buffer.R)
	e := arm64.New(buf)
	entry := label.New("entry")

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(buf.AddLabel(entry))
	must(e.MovImm(arm64.X(0), 42))
	must(e.RetReg(arm64.LR))

	m, err := Map(buf, nil)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer m.Release()

	got, err := m.CallI64(entry)
	if err != nil {
		t.Fatalf("CallI64: %v", err)
	}
	if got != 42 {
		t.Fatalf("result = %d, want 42", got)
	}
}

// TestScallRoundTripArm64 exercises the packed-argument invocation
// path: the generated code reads its single argument through X0 and
// doubles it via ADD.
func TestScallRoundTripArm64(t *testing.T) {
	buf := buffer.New(buffer.MachineARM64)
	buf.UseSection(buffer.X | buffer.R)
	e := arm64.New(buf)
	entry := label.New("double")

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(buf.AddLabel(entry))
	must(e.LdrImm(arm64.X(1), arm64.X(0), 0))
	must(e.AddReg(arm64.X(0), arm64.X(1), arm64.X(1), arm64.ShiftLSL, 0))
	must(e.RetReg(arm64.LR))

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
