package stats

import "unsafe"

// atomicPtr views an 8-byte slice of a MemBlock's backing buffer as a
// *uint64 for sync/atomic operations. MemBlock slot offsets are multiples
// of 8 by construction (headerSize and slotSize are both multiples of 8),
// so the returned pointer is 8-byte aligned whenever the buffer start is.
func atomicPtr(b []byte) unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}
