package bufpool

import "code.hybscloud.com/iobuf"

// FixedClassPool adapts a Pool size-class to hayabusa-cloud-iobuf's
// generic iobuf.Pool[T] interface, the shape every pluggable I/O buffer
// consumer in that pack is written against. Size is fixed at construction
// since iobuf.Pool's Get takes no arguments.
type FixedClassPool struct {
	pool *Pool
	size int
}

var _ iobuf.Pool[[]byte] = (*FixedClassPool)(nil)

// NewFixedClassPool returns a FixedClassPool handing out buffers of size
// bytes (rounded up to pool's nearest class) from pool.
func NewFixedClassPool(pool *Pool, size int) *FixedClassPool {
	return &FixedClassPool{pool: pool, size: size}
}

// Get acquires a buffer, satisfying iobuf.Pool[[]byte].
func (f *FixedClassPool) Get() ([]byte, error) {
	buf, _, err := f.pool.Alloc(f.size)
	return buf, err
}

// Put returns a buffer previously obtained from Get.
func (f *FixedClassPool) Put(item []byte) error {
	return f.pool.Free(item)
}
