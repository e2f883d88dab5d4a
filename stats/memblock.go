package stats

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// Signature marks the start of a MemBlock image, the Go analogue of
// c-icap's MEMBLOCK_SIG.
const Signature uint16 = 0xFAFA

const headerSize = 8 // uint16 signature + uint16 padding + int32 count
const slotSize = 16  // uint64 value + uint64 aux

// MemBlock is the statistics memory block: a signature-tagged header
// followed by one fixed-width slot per registered entry. Counter and KBS
// entries use only Value; TimeUS/TimeMS/IntMean entries keep a running
// mean in Value with the sample count in Aux.
type MemBlock struct {
	mu    sync.Mutex
	types []Type // one per slot, not itself persisted to the wire image
	buf   []byte
}

// Init lays out a fresh MemBlock over buf, which must be at least
// Size(count) bytes. types gives the type of each slot in order, normally
// Registry.Iterate's order at the point the child process forks.
func Init(buf []byte, types []Type) (*MemBlock, error) {
	if len(buf) < Size(len(types)) {
		return nil, CodeBadMemblock.Error(nil)
	}
	binary.LittleEndian.PutUint16(buf[0:2], Signature)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(types)))
	b := &MemBlock{types: types, buf: buf}
	b.Reset()
	return b, nil
}

// Attach reconstructs a MemBlock view over a buffer a previous Init (in
// this or another process sharing the region) already laid out.
func Attach(buf []byte, types []Type) (*MemBlock, error) {
	if err := Check(buf); err != nil {
		return nil, err
	}
	count := int(binary.LittleEndian.Uint32(buf[4:8]))
	if count != len(types) {
		return nil, CodeBadMemblock.Error(nil)
	}
	return &MemBlock{types: types, buf: buf}, nil
}

// Check validates the signature and declared slot count fit the buffer,
// the way every untrusted shared-memory read in this module must before
// touching slot data.
func Check(buf []byte) error {
	if len(buf) < headerSize {
		return CodeBadMemblock.Error(nil)
	}
	if binary.LittleEndian.Uint16(buf[0:2]) != Signature {
		return CodeBadMemblock.Error(nil)
	}
	count := int(binary.LittleEndian.Uint32(buf[4:8]))
	if count < 0 || len(buf) < Size(count) {
		return CodeBadMemblock.Error(nil)
	}
	return nil
}

// Size returns the byte size of a MemBlock with count slots.
func Size(count int) int {
	return headerSize + count*slotSize
}

func (b *MemBlock) slot(id int) []byte {
	off := headerSize + id*slotSize
	return b.buf[off : off+slotSize]
}

func (b *MemBlock) valuePtr(id int) *uint64 {
	return (*uint64)(atomicPtr(b.slot(id)[0:8]))
}

func (b *MemBlock) auxPtr(id int) *uint64 {
	return (*uint64)(atomicPtr(b.slot(id)[8:16]))
}

// Count returns the number of slots this block carries.
func (b *MemBlock) Count() int { return len(b.types) }

// IncCounter adds count to a TypeCounter slot.
func (b *MemBlock) IncCounter(id int, count uint64) {
	atomic.AddUint64(b.valuePtr(id), count)
}

// DecCounter subtracts count from a TypeCounter slot.
func (b *MemBlock) DecCounter(id int, count uint64) {
	atomic.AddUint64(b.valuePtr(id), -count)
}

// GetCounter reads a TypeCounter slot.
func (b *MemBlock) GetCounter(id int) uint64 {
	return atomic.LoadUint64(b.valuePtr(id))
}

// IncKBS feeds count bytes into a TypeKBS slot.
func (b *MemBlock) IncKBS(id int) func(count uint64) {
	return func(count uint64) {
		b.mu.Lock()
		defer b.mu.Unlock()
		v := b.valuePtr(id)
		atomic.AddUint64(v, count)
	}
}

// KBS returns the accumulated kilobytes and sub-kilobyte remainder of a
// TypeKBS slot, satisfying kilobytes*1024+remainder == total bytes fed.
func (b *MemBlock) KBS(id int) (kilobytes, remainder uint64) {
	total := atomic.LoadUint64(b.valuePtr(id))
	return total >> 10, total & 0x3FF
}

// SetMean records a new sample into a TimeUS/TimeMS/IntMean slot, folding
// it into the running mean: (old*n + sample) / (n+1).
func (b *MemBlock) SetMean(id int, sample uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.valuePtr(id)
	n := b.auxPtr(id)
	old := atomic.LoadUint64(v)
	count := atomic.LoadUint64(n)
	newMean := (old*count + sample) / (count + 1)
	atomic.StoreUint64(v, newMean)
	atomic.StoreUint64(n, count+1)
}

// Mean returns the current running mean and sample count of a mean-typed
// slot.
func (b *MemBlock) Mean(id int) (mean, samples uint64) {
	return atomic.LoadUint64(b.valuePtr(id)), atomic.LoadUint64(b.auxPtr(id))
}

// Reset zeroes every slot.
func (b *MemBlock) Reset() {
	for id := range b.types {
		s := b.slot(id)
		for i := range s {
			s[i] = 0
		}
	}
}

// Merge folds src into b, slot by slot, stopping at the shorter of the two
// slot counts the way ci_stat_memblock_merge does for a monitor merging a
// shrunk child's history into a wider-typed running block. Counter and KBS
// slots add; mean-typed slots combine running means weighted by sample
// count, which keeps the merge associative: merging A then B gives the
// same mean as merging B then A, and merging (A then B) then C agrees with
// merging A then (B then C).
func (b *MemBlock) Merge(src *MemBlock) {
	n := len(b.types)
	if len(src.types) < n {
		n = len(src.types)
	}
	for id := 0; id < n; id++ {
		switch b.types[id] {
		case TypeCounter:
			atomic.AddUint64(b.valuePtr(id), atomic.LoadUint64(src.valuePtr(id)))
		case TypeKBS:
			atomic.AddUint64(b.valuePtr(id), atomic.LoadUint64(src.valuePtr(id)))
		case TypeTimeUS, TypeTimeMS, TypeIntMean:
			b.mu.Lock()
			dv, dn := b.valuePtr(id), b.auxPtr(id)
			sv, sn := atomic.LoadUint64(src.valuePtr(id)), atomic.LoadUint64(src.auxPtr(id))
			destVal, destN := atomic.LoadUint64(dv), atomic.LoadUint64(dn)
			total := destN + sn
			if total == 0 {
				b.mu.Unlock()
				continue
			}
			merged := (destVal*destN + sv*sn) / total
			atomic.StoreUint64(dv, merged)
			atomic.StoreUint64(dn, total)
			b.mu.Unlock()
		}
	}
}
