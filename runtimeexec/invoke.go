package runtimeexec

import (
	"unsafe"

	"github.com/xyproto/asmforge/asmerr"
	"github.com/xyproto/asmforge/label"
)

// CallU32 invokes the zero-argument entry bound to l and returns its
// value from the ABI integer return register, per spec §4.4.
func (m *Mapper) CallU32(l label.Label) (uint32, error) {
	v, err := m.callInt(l)
	return uint32(v), err
}

// CallI32 invokes l and interprets the integer return register as a
// signed 32-bit value.
func (m *Mapper) CallI32(l label.Label) (int32, error) {
	v, err := m.callInt(l)
	return int32(v), err
}

// CallU64 invokes l and returns the full 64-bit integer return register.
func (m *Mapper) CallU64(l label.Label) (uint64, error) {
	return m.callInt(l)
}

// CallI64 invokes l and interprets the integer return register as a
// signed 64-bit value.
func (m *Mapper) CallI64(l label.Label) (int64, error) {
	v, err := m.callInt(l)
	return int64(v), err
}

// CallF32 invokes l and returns its value from the ABI float return
// register (XMM0 on x86-64, D0 on AArch64), read as a float64 and
// narrowed to float32.
func (m *Mapper) CallF32(l label.Label) (float32, error) {
	addr, err := m.AddressOf(l)
	if err != nil {
		return 0, err
	}
	if !hostInvocationSupported {
		return 0, asmerr.New(asmerr.OsError, "in-process float return-register capture is not implemented on this host architecture")
	}
	return float32(callNoArgFloat(addr)), nil
}

func (m *Mapper) callInt(l label.Label) (uint64, error) {
	addr, err := m.AddressOf(l)
	if err != nil {
		return 0, err
	}
	if !hostInvocationSupported {
		return 0, asmerr.New(asmerr.OsError, "in-process integer return-register capture is not implemented on this host architecture")
	}
	return callNoArgInt(addr), nil
}

// Scall invokes l with args packed into a small host-allocated
// argument block, the block's address placed in the ABI's first
// argument register. The callee is responsible for reading its
// arguments back out of that block; the return value is the integer
// return register read immediately after the call, per spec §4.4.
func (m *Mapper) Scall(l label.Label, args ...uint64) (uint64, error) {
	addr, err := m.AddressOf(l)
	if err != nil {
		return 0, err
	}
	if !hostInvocationSupported {
		return 0, asmerr.New(asmerr.OsError, "in-process invocation is not implemented on this host architecture")
	}
	if len(args) == 0 {
		return callNoArgInt(addr), nil
	}
	block := make([]uint64, len(args))
	copy(block, args)
	return callWithArgPtr(addr, uintptr(unsafe.Pointer(&block[0]))), nil
}
