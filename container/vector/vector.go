// Package vector implements a vector of byte-string values whose bytes are
// bump-allocated from the rear of a single Pack allocator. The (offset,
// length) index is kept in Go slices outside that block, not inside it. It also
// provides a flat, offset-based serialization for shipping the vector
// across a process boundary or to disk via package flat.
package vector

import (
	"github.com/icap-oss/icapd/alloc"
	"github.com/icap-oss/icapd/container/flat"
)

// Vector holds arbitrary byte-string values, index-addressed. Value bytes
// are appended to the rear of a Pack allocator (growing toward the front),
// and Push fails once they fill the block. Each value's (offset, length)
// index entry is kept in the offsets/lengths slices, not in the block: the
// block holds value bytes only, with no index block or terminator.
type Vector struct {
	pack    *alloc.PackAllocator
	offsets []int
	lengths []int
}

// New builds an empty Vector backed by buf.
func New(buf []byte) *Vector {
	return &Vector{pack: alloc.NewPack(buf, 1)}
}

// Push appends value to the vector and returns its index.
func (v *Vector) Push(value []byte) (int, error) {
	b, err := v.pack.AllocRearUnaligned(len(value))
	if err != nil {
		return 0, err
	}
	copy(b, value)
	v.offsets = append(v.offsets, v.pack.End())
	v.lengths = append(v.lengths, len(value))
	return len(v.offsets) - 1, nil
}

// Len returns the number of values in the vector.
func (v *Vector) Len() int { return len(v.offsets) }

// At returns a view of the value at index i. The returned slice aliases
// the vector's backing block and must not be retained past the next
// mutation.
func (v *Vector) At(i int) []byte {
	off, n := v.offsets[i], v.lengths[i]
	return v.pack.Bytes()[off : off+n]
}

// Flatten serializes the vector into the self-describing flat-array wire
// format, the form shared memory and on-disk copies actually carry.
func (v *Vector) Flatten() []byte {
	items := make([][]byte, v.Len())
	for i := range items {
		items[i] = v.At(i)
	}
	return flat.Serialize(items)
}

// Unflatten validates and reconstructs a Vector's values from a flat-array
// buffer; it does not reuse buf as a Pack-backed Vector since the two
// representations have different internal layouts — Unflatten is for
// reading a vector a peer process or disk wrote, not for continuing to
// Push into it.
func Unflatten(buf []byte) ([][]byte, error) {
	return flat.Deserialize(buf)
}
