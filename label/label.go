// Package label implements interned symbol names shared by the
// segmented buffer and both architecture encoders.
package label

import "sync/atomic"

// reservedPrefix marks anonymous, compiler-minted labels. It is not a
// character a parser-accepted identifier may start with, so minted
// names can never collide with caller-chosen ones.
const reservedPrefix = "$"

// Label is an interned symbol. Equality is content-based on the bytes
// of its name; Hash is a cached djb2 digest computed once at
// construction so maps keyed by Label never rehash the name.
type Label struct {
	name string
	hash uint64
	text bool
}

// New interns name as a caller-chosen, potentially-exportable label.
// Equality and hashing operate on the bytes of name.
func New(name string) Label {
	return Label{name: name, hash: djb2(name), text: true}
}

var anonCounter uint64

// Anonymous mints a fresh label guaranteed unique within the process
// and disjoint from any parser-accepted name. Anonymous labels are
// never exported, regardless of what add_export is later called with.
func Anonymous(hint string) Label {
	n := atomic.AddUint64(&anonCounter, 1)
	name := reservedPrefix + hint + "." + uitoa(n)
	return Label{name: name, hash: djb2(name), text: false}
}

// Name returns the label's underlying byte string.
func (l Label) Name() string { return l.name }

// Hash returns the cached djb2 hash of the label's name.
func (l Label) Hash() uint64 { return l.hash }

// IsText reports whether the label is a caller-chosen, exportable
// name as opposed to a compiler-minted anonymous one.
func (l Label) IsText() bool { return l.text }

// Equal compares two labels by the bytes of their names.
func (l Label) Equal(other Label) bool { return l.name == other.name }

// String implements fmt.Stringer for diagnostics.
func (l Label) String() string { return l.name }

// djb2 is the classic Bernstein hash: h = h*33 + c. It is cheap,
// deterministic, and good enough for a label table keyed by content.
func djb2(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint64(s[i])
	}
	return h
}

func uitoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
