// Package alloc implements the four arena allocator variants the core uses
// to keep per-request allocation cheap: OS (thin heap wrapper), Serial
// (linear bump with chunk chaining), Pack (dual-ended bump over a caller
// buffer) and Pool (size-class free list). Each is modeled as the Allocator
// trait plus capability flags rather than a C-style vtable with no-op
// members, per the "void* polymorphism in allocators" design note.
package alloc

import liberr "github.com/icap-oss/icapd/errors"

// Capability bits an Allocator advertises. Not every allocator supports
// Free or Reset meaningfully (Serial's and Pack's Free are no-ops),
// so callers can check before relying on the side effect rather than
// calling into a silent no-op.
type Capability uint8

const (
	SupportsFree Capability = 1 << iota
	SupportsReset
	SupportsDestroy
)

func (c Capability) Has(bit Capability) bool { return c&bit != 0 }

// Allocator is the trait every arena variant implements.
type Allocator interface {
	// Alloc returns a zeroed slice of exactly n bytes, or an error if the
	// arena cannot satisfy the request (pack/serial: no room; pool: no
	// equivalent lookup and OS fallback disabled; OS: never fails by
	// capacity, only by genuine OS memory exhaustion).
	Alloc(n int) ([]byte, error)
	// Free releases a block back to the allocator. A no-op where
	// Capabilities lacks SupportsFree.
	Free(b []byte)
	// Reset rewinds or clears the allocator for reuse. A no-op where
	// Capabilities lacks SupportsReset.
	Reset()
	// Destroy releases all arena-owned memory. After Destroy the
	// allocator must not be used again.
	Destroy()
	// Capabilities reports which of Free/Reset/Destroy have an effect.
	Capabilities() Capability
}

const (
	// CodeOutOfSpace is returned by Pack/Serial when a request exceeds the
	// remaining (or, for Serial, the per-chunk) capacity.
	CodeOutOfSpace liberr.CodeError = liberr.MinPkgAlloc + iota
	// CodeInvalidPos is returned by Pack.SetStartPos/SetEndPos when the
	// requested cursor would violate cur <= end or escape the block.
	CodeInvalidPos
	// CodePoolExhausted is returned when a Pool allocator's OS fallback is
	// disabled and no free-list entry is available.
	CodePoolExhausted
)

func init() {
	liberr.RegisterIdFctMessage(CodeOutOfSpace, func(code liberr.CodeError) string {
		switch code {
		case CodeOutOfSpace:
			return "allocator out of space"
		case CodeInvalidPos:
			return "invalid pack allocator cursor position"
		case CodePoolExhausted:
			return "pool allocator exhausted, os fallback disabled"
		default:
			return liberr.UnknownMessage
		}
	})
}

func align(n, to int) int {
	if to <= 1 {
		return n
	}
	return (n + to - 1) &^ (to - 1)
}
