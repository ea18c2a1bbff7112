package runtimeexec

import (
	"testing"

	"github.com/xyproto/asmforge/buffer"
)

// TestMapRejectsEmptyBuffer exercises the "allocation failure is
// fatal" clause of spec §4.4 for the degenerate empty-buffer case.
func TestMapRejectsEmptyBuffer(t *testing.T) {
	buf := buffer.New(buffer.MachineX86_64)
	buf.UseSection(buffer.X | buffer.R)
	if _, err := Map(buf, nil); err == nil {
		t.Fatal("expected AllocationFailure mapping an empty buffer, got nil")
	}
}

// TestMapAndRelease exercises the mmap/mprotect/munmap life cycle on a
// minimal single-byte executable section (0xC3, RET), independent of
// any typed invocation helper.
func TestMapAndRelease(t *testing.T) {
	buf := buffer.New(buffer.MachineX86_64)
	buf.UseSection(buffer.X | buffer.R)
	if err := buf.PushByte(0xC3); err != nil {
		t.Fatalf("PushByte: %v", err)
	}

	m, err := Map(buf, nil)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if m.Address() == 0 {
		t.Fatal("expected a nonzero mapped base address")
	}
	if err := m.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}
