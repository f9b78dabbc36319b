package gatomic

import (
	"sync/atomic"
	"unsafe"
)

func LoadPointer[T any](addr **T) *T {
	return (*T)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(addr))))
}

func CompareAndSwapPointer[T any](addr **T, old, new *T) (swapped bool) {
	return atomic.CompareAndSwapPointer(
		(*unsafe.Pointer)(unsafe.Pointer(addr)),
		unsafe.Pointer(old),
		unsafe.Pointer(new),
	)
}

func LoadInt32(x *int32) int32 {
	return atomic.LoadInt32(x)
}

func CompareAndSwapInt32(addr *int32, old, new int32) bool {
	return atomic.CompareAndSwapInt32(addr, old, new)
}

// AddrOf returns the numeric address of the atomic pointer storage itself
// (not the value it holds). It is used only to establish a stable total
// order over cells, e.g. to sort MCAS entries so that concurrent operations
// sharing locations cannot deadlock each other. The result is stable for
// the lifetime of addr; it stops being meaningful the moment a moving
// garbage collector is involved, which is why it must never be used for
// anything but ordering.
func AddrOf[T any](addr **T) uintptr {
	return uintptr(unsafe.Pointer(addr))
}
