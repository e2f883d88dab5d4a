// Package bufpool implements the sized buffer pool and object pool: a
// two-level size-class classifier backed by per-class alloc.PoolAllocator
// instances, grounded on hayabusa-cloud-iobuf's IndirectPool[T] tiering
// (Pico..Big 32B..32KiB) but expressed over plain []byte rather than fixed
// generic array types, since the core's buffers are variably sized up to
// the request length, not compile-time-fixed structs.
package bufpool

import (
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/icap-oss/icapd/alloc"
	liberr "github.com/icap-oss/icapd/errors"
)

const (
	headerSize     = 16
	signature      = 0xB0FA
	shortClasses   = 16 // up to 1 KiB, bucket = (size-1)>>6
	oversizeLimit  = 32 * 1024
)

const (
	CodeExhausted liberr.CodeError = liberr.MinPkgBufPool + iota
	CodeOversize
	CodeBadHeader
)

func init() {
	liberr.RegisterIdFctMessage(CodeExhausted, func(code liberr.CodeError) string {
		switch code {
		case CodeExhausted:
			return "buffer pool exhausted"
		case CodeOversize:
			return "request larger than the pool's largest class, routed to OS"
		case CodeBadHeader:
			return "buffer header signature mismatch on free"
		default:
			return liberr.UnknownMessage
		}
	})
}

// longClassSizes are the long-table bucket sizes (2..32 KiB), the fixed set
// the spec names explicitly.
var longClassSizes = [...]int{2048, 4096, 8192, 16384, 32768}

// Pool is the sized buffer pool: short_buffers[16] for requests up to
// 1 KiB, long_buffers for requests up to 32 KiB, oversize falls through to
// the OS allocator.
type Pool struct {
	short [shortClasses]*alloc.PoolAllocator
	long  [len(longClassSizes)]*alloc.PoolAllocator
	os    *alloc.OSAllocator

	// live tracks the outstanding PoolItem backing each handed-out block,
	// keyed by the address of its first byte, so Free can hand the exact
	// item back to its owning alloc.PoolAllocator in O(1) instead of
	// reconstructing one (which would always look generation-stale).
	mu   sync.Mutex
	live map[uintptr]*alloc.PoolItem
}

func New() *Pool {
	p := &Pool{os: alloc.NewOS(), live: make(map[uintptr]*alloc.PoolItem)}
	for i := range p.short {
		size := (i + 1) << 6 // 64, 128, ..., 1024
		p.short[i] = alloc.NewPool(headerSize + size)
	}
	for i, size := range longClassSizes {
		p.long[i] = alloc.NewPool(headerSize + size)
	}
	return p
}

// classFor returns the rounded-up class size and backing pool for a
// request of n bytes, or (0, nil) if n exceeds the largest class.
func (p *Pool) classFor(n int) (int, *alloc.PoolAllocator) {
	if n <= 1024 {
		idx := (n - 1) >> 6
		if idx < 0 {
			idx = 0
		}
		return (idx + 1) << 6, p.short[idx]
	}
	for i, size := range longClassSizes {
		if n <= size {
			return size, p.long[i]
		}
	}
	return 0, nil
}

// Alloc returns a payload slice of at least n bytes (rounded up to the
// class size R, reported back as size) prefixed with a 16-byte header so
// Free is O(1). Oversize requests (n > 32 KiB) are served directly by the
// OS allocator and carry no header.
func (p *Pool) Alloc(n int) (payload []byte, size int, err error) {
	if n > oversizeLimit {
		b, _ := p.os.Alloc(n)
		return b, n, nil
	}

	classSize, pool := p.classFor(n)
	if pool == nil {
		return nil, 0, CodeExhausted.Error(nil)
	}

	block := pool.AllocItem()
	binary.LittleEndian.PutUint16(block.Bytes[0:2], signature)
	binary.LittleEndian.PutUint64(block.Bytes[2:10], uint64(classSize))

	payload := block.Bytes[headerSize:]
	p.mu.Lock()
	p.live[blockKey(block.Bytes)] = block
	p.mu.Unlock()

	return payload, classSize, nil
}

// Free releases a payload slice previously returned by Alloc. It walks
// back to the full header+payload block via the payload's own backing
// array (payload's data pointer is always headerSize bytes into the
// block's), looks up the original PoolItem and hands it back to its owning
// alloc.PoolAllocator. Oversize blocks (no tracked block) are silently
// dropped to the garbage collector.
func (p *Pool) Free(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := payloadKey(payload)
	block, ok := p.live[key]
	if !ok {
		return nil
	}
	delete(p.live, key)

	if binary.LittleEndian.Uint16(block.Bytes[0:2]) != signature {
		return CodeBadHeader.Error(nil)
	}
	size := int(binary.LittleEndian.Uint64(block.Bytes[2:10]))

	if pool := p.poolForClassSize(size); pool != nil {
		pool.FreeItem(block)
	}
	return nil
}

func blockKey(block []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(block))) + headerSize
}

func payloadKey(payload []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(payload)))
}

func (p *Pool) poolForClassSize(size int) *alloc.PoolAllocator {
	if size <= 1024 && size%64 == 0 {
		return p.short[size/64-1]
	}
	for i, s := range longClassSizes {
		if s == size {
			return p.long[i]
		}
	}
	return nil
}
