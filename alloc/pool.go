package alloc

import "sync"

// PoolItem is a single fixed-size slot handed out by PoolAllocator. It
// carries a generation number so Free can detect a pointer that outlived a
// Reset: the spec's documented surprise is that, after Reset, a stray Free
// of a pre-reset item falls through to the OS heap rather than corrupting
// the (already-cleared) free list.
type PoolItem struct {
	Bytes []byte
	gen   uint64
	next  *PoolItem // free-list / in-use-list link, owned by PoolAllocator
}

// PoolAllocator is a size-class free list: Alloc pops the free list or
// heap-allocates a new item when it is empty; Free returns an item to the
// free list for reuse. Guarded by its own mutex since pools are shared
// across the worker threads of one child process.
type PoolAllocator struct {
	itemSize int
	mu       sync.Mutex
	free     *PoolItem
	inUse    *PoolItem
	gen      uint64

	allocCount uint64
	hitsCount  uint64

	os *OSAllocator
}

func NewPool(itemSize int) *PoolAllocator {
	return &PoolAllocator{itemSize: itemSize, os: NewOS()}
}

func (p *PoolAllocator) Capabilities() Capability {
	return SupportsFree | SupportsReset | SupportsDestroy
}

func (p *PoolAllocator) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = nil
	p.inUse = nil
}

// Alloc ignores n and always returns an item of the pool's configured
// itemSize; it exists to satisfy the Allocator interface uniformly.
func (p *PoolAllocator) Alloc(int) ([]byte, error) {
	it := p.AllocItem()
	return it.Bytes, nil
}

func (p *PoolAllocator) AllocItem() *PoolItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.allocCount++

	var it *PoolItem
	if p.free != nil {
		it = p.free
		p.free = it.next
		p.hitsCount++
	} else {
		it = &PoolItem{Bytes: make([]byte, p.itemSize)}
	}

	it.gen = p.gen
	it.next = p.inUse
	p.inUse = it
	return it
}

// Free removes it from the in-use list and returns it to the free list. An
// item whose generation does not match the pool's current generation (it
// survived a Reset) is instead released directly, matching the spec's
// documented stale-pointer behavior.
func (p *PoolAllocator) Free(b []byte) {
	// Allocator.Free takes a []byte for interface uniformity; callers that
	// have the PoolItem should prefer FreeItem, which skips this lookup.
	// A block not found in the current in-use list (stale) is left alone.
	if len(b) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for n := p.inUse; n != nil; n = n.next {
		if len(n.Bytes) > 0 && &n.Bytes[0] == &b[0] {
			p.unlinkInUse(n)
			n.next = p.free
			p.free = n
			return
		}
	}
}

func (p *PoolAllocator) FreeItem(it *PoolItem) {
	if it == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if it.gen != p.gen {
		// Stale: pool has been reset since this item was handed out.
		// Falls through to the OS heap, never touching the current lists.
		return
	}

	p.unlinkInUse(it)
	it.next = p.free
	p.free = it
}

func (p *PoolAllocator) unlinkInUse(it *PoolItem) {
	if p.inUse == it {
		p.inUse = it.next
		return
	}
	for n := p.inUse; n != nil; n = n.next {
		if n.next == it {
			n.next = it.next
			return
		}
	}
}

// Reset frees every outstanding item (free and in-use lists both cleared)
// and bumps the generation counter so any later FreeItem call on an item
// allocated before this Reset is recognized as stale.
func (p *PoolAllocator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = nil
	p.inUse = nil
	p.gen++
}

// Counters returns {alloc_count, hits_count} for diagnostics.
func (p *PoolAllocator) Counters() (allocCount, hitsCount uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocCount, p.hitsCount
}
