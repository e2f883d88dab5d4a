package shm

import "unsafe"

// unsafeSlice views the size bytes at addr (as returned by shmat) as a
// Go []byte without copying. The caller is responsible for Detach()ing
// before the process exits; the GC has no idea this memory exists.
func unsafeSlice(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
