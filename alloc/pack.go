package alloc

// PackAllocator is a dual-ended bump allocator over a caller-provided
// memory block: front allocations grow a `cur` cursor upward, rear
// allocations shrink an `end` cursor downward. It never reallocates and
// never frees individually — only Reset (rewind both cursors) or the
// explicit SetStartPos/SetEndPos pop operations move them backward. It is
// used to lay out arrays and vectors in one contiguous block suitable for
// shared memory or on-disk persistence.
type PackAllocator struct {
	base        []byte
	cur         int
	end         int
	originalEnd int
	alignment   int
}

// NewPack carves a PackAllocator out of buf. alignment must be a power of
// two; 8 is the typical choice to keep slots aligned for atomic access.
func NewPack(buf []byte, alignment int) *PackAllocator {
	if alignment <= 0 {
		alignment = 1
	}
	return &PackAllocator{
		base:        buf,
		cur:         0,
		end:         len(buf),
		originalEnd: len(buf),
		alignment:   alignment,
	}
}

func (p *PackAllocator) Capabilities() Capability { return SupportsReset | SupportsDestroy }
func (p *PackAllocator) Free([]byte)              {}
func (p *PackAllocator) Destroy()                 { p.base = nil; p.cur, p.end, p.originalEnd = 0, 0, 0 }

// Reset rewinds both cursors to the full original block.
func (p *PackAllocator) Reset() {
	p.cur = 0
	p.end = p.originalEnd
}

// Alloc is the generic Allocator.Alloc entry point and allocates from the
// front, aligned.
func (p *PackAllocator) Alloc(n int) ([]byte, error) { return p.AllocFront(n) }

// AllocFront bumps cur upward by the aligned size of n and returns the
// (unaligned-length) slice at the old cur.
func (p *PackAllocator) AllocFront(n int) ([]byte, error) {
	return p.allocFront(n, true)
}

// AllocFrontUnaligned bumps cur by exactly n bytes, skipping alignment.
func (p *PackAllocator) AllocFrontUnaligned(n int) ([]byte, error) {
	return p.allocFront(n, false)
}

func (p *PackAllocator) allocFront(n int, aligned bool) ([]byte, error) {
	sz := n
	if aligned {
		sz = align(n, p.alignment)
	}
	if p.cur+sz > p.end {
		return nil, CodeOutOfSpace.Error(nil)
	}
	b := p.base[p.cur : p.cur+n]
	p.cur += sz
	return b, nil
}

// AllocRear decrements end by the aligned size of n and returns a slice of
// length n at the new end.
func (p *PackAllocator) AllocRear(n int) ([]byte, error) {
	return p.allocRear(n, true)
}

// AllocRearUnaligned decrements end by exactly n bytes.
func (p *PackAllocator) AllocRearUnaligned(n int) ([]byte, error) {
	return p.allocRear(n, false)
}

func (p *PackAllocator) allocRear(n int, aligned bool) ([]byte, error) {
	sz := n
	if aligned {
		sz = align(n, p.alignment)
	}
	if p.cur+sz > p.end {
		return nil, CodeOutOfSpace.Error(nil)
	}
	p.end -= sz
	return p.base[p.end : p.end+n], nil
}

// DataSize reports the number of bytes currently committed from both ends:
// (cur - base) + (originalEnd - end).
func (p *PackAllocator) DataSize() int {
	return p.cur + (p.originalEnd - p.end)
}

// SetStartPos rewinds cur to p, "popping" every front allocation made since.
// p must lie within [0, end].
func (p *PackAllocator) SetStartPos(pos int) error {
	if pos < 0 || pos > p.end {
		return CodeInvalidPos.Error(nil)
	}
	p.cur = pos
	return nil
}

// SetEndPos rewinds end to pos, "popping" every rear allocation made since.
// pos must lie within [cur, originalEnd]. Passing a negative value restores
// the original end.
func (p *PackAllocator) SetEndPos(pos int) error {
	if pos < 0 {
		p.end = p.originalEnd
		return nil
	}
	if pos < p.cur || pos > p.originalEnd {
		return CodeInvalidPos.Error(nil)
	}
	p.end = pos
	return nil
}

func (p *PackAllocator) Cur() int { return p.cur }
func (p *PackAllocator) End() int { return p.end }

// Bytes exposes the whole backing block, for callers (such as package
// vector) that need to address previously allocated regions by absolute
// offset rather than through the slice AllocFront/AllocRear returned.
func (p *PackAllocator) Bytes() []byte { return p.base }
