package buffer

import (
	"testing"

	"github.com/xyproto/asmforge/label"
)

func TestUseSectionDefaultNames(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  string
	}{
		{"text", X | R, ".text"},
		{"rodata", R, ".rodata"},
		{"data", R | W, ".data"},
		{"bss", W, ".bss"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(MachineX86_64)
			seg := b.UseSection(tt.flags)
			if seg.Name != tt.want {
				t.Fatalf("default name = %q, want %q", seg.Name, tt.want)
			}
		})
	}
}

func TestUseSectionReusesByFlags(t *testing.T) {
	b := New(MachineX86_64)
	s1 := b.UseSection(X | R)
	s2 := b.UseSection(X | R)
	if s1.Index != s2.Index {
		t.Fatalf("UseSection created a new section instead of reusing flags=%s", (X | R))
	}
	if len(b.Segments()) != 1 {
		t.Fatalf("want 1 section, got %d", len(b.Segments()))
	}
}

func TestAppendOrderWithinSection(t *testing.T) {
	b := New(MachineX86_64)
	b.UseSection(X | R)
	b.PushByte(0x90)
	b.Insert([]byte{0x01, 0x02})
	b.Fill(2, 0xAA)
	got := b.Segments()[0].Bytes
	want := []byte{0x90, 0x01, 0x02, 0xAA, 0xAA}
	if string(got) != string(want) {
		t.Fatalf("bytes = %v, want %v", got, want)
	}
}

func TestLabelUniqueness(t *testing.T) {
	b := New(MachineX86_64)
	b.UseSection(X | R)
	l := label.New("start")
	if err := b.AddLabel(l); err != nil {
		t.Fatalf("unexpected error binding fresh label: %v", err)
	}
	if err := b.AddLabel(l); err == nil {
		t.Fatal("expected LabelRedefinition error, got nil")
	}
}

func TestGetLabelUndefined(t *testing.T) {
	b := New(MachineX86_64)
	if _, err := b.GetLabel(label.New("missing")); err == nil {
		t.Fatal("expected LabelUndefined error, got nil")
	}
}

func TestMarkerStableAcrossOtherSectionAppends(t *testing.T) {
	b := New(MachineX86_64)
	b.UseSection(X | R)
	b.PushByte(0x90)
	m := b.Current()

	b.UseSection(R) // switch sections and append elsewhere
	b.Insert([]byte{1, 2, 3})

	b.UseSection(X | R)
	if b.Current() != m {
		t.Fatalf("marker shifted after appending to a different section: got %v want %v", b.Current(), m)
	}
}

func TestSealViolationAfterAlign(t *testing.T) {
	b := New(MachineX86_64)
	b.UseSection(X | R)
	b.PushByte(0xC3)
	b.Align(0x1000)

	if err := b.PushByte(0x90); err == nil {
		t.Fatal("expected SealViolation writing after align(), got nil")
	}
}

func TestAlignIdempotentLinkResult(t *testing.T) {
	b := New(MachineX86_64)
	b.UseSection(X | R)
	target := label.New("target")
	b.AddLinkage(target, 0, func(buf *SegmentedBuffer, lk Linkage, base uint64) error {
		seg := buf.SegmentAt(lk.Target)
		return seg.WriteAt(lk.Target.Offset, []byte{1, 2, 3, 4})
	})
	b.Insert([]byte{0, 0, 0, 0})
	b.AddLabel(target)
	b.Align(0x1000)

	err1 := b.Link(0x1000, nil)
	snapshot := append([]byte(nil), b.Segments()[0].Bytes...)
	err2 := b.Link(0x1000, nil)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected link errors: %v, %v", err1, err2)
	}
	if string(snapshot) != string(b.Segments()[0].Bytes) {
		t.Fatalf("link(base) is not idempotent: %v != %v", snapshot, b.Segments()[0].Bytes)
	}
}

func TestEmptySegmentsSkippedByAlign(t *testing.T) {
	b := New(MachineX86_64)
	b.UseSection(X | R)
	b.PushByte(0xC3)
	b.UseSection(R | W) // created but never written

	b.Align(0x1000)
	if b.TotalSize() != alignUp(1, 0x1000) {
		t.Fatalf("TotalSize = %d, want %d (empty section should not contribute)", b.TotalSize(), alignUp(1, 0x1000))
	}
}
