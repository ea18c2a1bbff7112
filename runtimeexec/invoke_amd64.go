package runtimeexec

// hostInvocationSupported gates call_uN/iN/fN and Scall's register-read
// path on the host architecture, per spec §9's "Return-value
// smuggling from generated code" design note.
const hostInvocationSupported = true

// callNoArgInt calls fn with no arguments and returns the integer
// return register (RAX), following the System V AMD64 ABI.
//
//go:noescape
func callNoArgInt(fn uintptr) uint64

// callNoArgFloat calls fn with no arguments and returns the SSE
// return register (XMM0) reinterpreted as a float64.
//
//go:noescape
func callNoArgFloat(fn uintptr) float64

// callWithArgPtr calls fn with argPtr placed in RDI (the first System
// V AMD64 integer argument register) and returns RAX.
//
//go:noescape
func callWithArgPtr(fn uintptr, argPtr uintptr) uint64
