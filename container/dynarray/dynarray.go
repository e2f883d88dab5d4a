// Package dynarray implements an unbounded, append-only (name, value)
// chain over a Serial allocator: no random removal, iteration is always
// in the order items were appended.
package dynarray

import (
	"github.com/icap-oss/icapd/alloc"
	"github.com/icap-oss/icapd/container/typeops"
)

type node[T any] struct {
	name  string
	value T
	next  *node[T]
}

// Array is a singly-linked (name, value) chain. The backing Serial
// allocator is only used to account for the chain's footprint the way the
// Pack-backed simplearray does for its block; the node links themselves
// are ordinary Go pointers, since a dynamic array's whole point is that it
// need not live in one contiguous block.
type Array[T any] struct {
	serial *alloc.SerialAllocator
	ops    typeops.Ops[T]
	head   *node[T]
	tail   *node[T]
	length int
}

// New builds an Array whose footprint accounting is chunked through
// chunkSize-sized allocations drawn from source (nil uses the OS heap).
func New[T any](chunkSize int, source alloc.ChunkSource, ops typeops.Ops[T]) *Array[T] {
	return &Array[T]{serial: alloc.NewSerial(chunkSize, source), ops: ops}
}

// Append adds name/value to the end of the chain.
func (a *Array[T]) Append(name string, value T) error {
	footprint := len(name) + a.ops.Size(value) + 16
	if _, err := a.serial.Alloc(footprint); err != nil {
		return err
	}
	n := &node[T]{name: name, value: a.ops.Dup(value)}
	if a.tail == nil {
		a.head, a.tail = n, n
	} else {
		a.tail.next = n
		a.tail = n
	}
	a.length++
	return nil
}

// Len returns the number of items in the chain.
func (a *Array[T]) Len() int { return a.length }

// Find returns the value of the first item named name and whether it was
// found.
func (a *Array[T]) Find(name string) (T, bool) {
	for n := a.head; n != nil; n = n.next {
		if n.name == name {
			return n.value, true
		}
	}
	var zero T
	return zero, false
}

// Iterate calls fn for every item in append order.
func (a *Array[T]) Iterate(fn func(name string, value T)) {
	for n := a.head; n != nil; n = n.next {
		fn(n.name, n.value)
	}
}

// Reset empties the chain and rewinds the backing allocator.
func (a *Array[T]) Reset() {
	for n := a.head; n != nil; n = n.next {
		a.ops.Free(n.value)
	}
	a.head, a.tail, a.length = nil, nil, 0
	a.serial.Reset()
}
