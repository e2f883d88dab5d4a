package bufpool

import (
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/icap-oss/icapd/alloc"
	liberr "github.com/icap-oss/icapd/errors"
)

const (
	CodeUnknownObjectClass liberr.CodeError = liberr.MinPkgBufPool + 100 + iota
)

func init() {
	liberr.RegisterIdFctMessage(CodeUnknownObjectClass, func(code liberr.CodeError) string {
		if code == CodeUnknownObjectClass {
			return "object pool: unregistered class id"
		}
		return liberr.UnknownMessage
	})
}

// ObjectPool is a registry of size-classes indexed by an integer ID rather
// than a rounded byte size; pooled objects carry the same 16-byte
// {signature, id} prefix as buffers so both kinds of allocation are
// indistinguishable to a generic free-by-header caller.
type ObjectPool struct {
	mu      sync.Mutex
	classes map[uint64]*alloc.PoolAllocator
	live    map[uintptr]*alloc.PoolItem
}

func NewObjectPool() *ObjectPool {
	return &ObjectPool{
		classes: make(map[uint64]*alloc.PoolAllocator),
		live:    make(map[uintptr]*alloc.PoolItem),
	}
}

// Register declares class id as holding objects of itemSize bytes
// (excluding the header). Must happen before any Alloc(id) call.
func (o *ObjectPool) Register(id uint64, itemSize int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.classes[id] = alloc.NewPool(headerSize + itemSize)
}

func (o *ObjectPool) Alloc(id uint64) ([]byte, error) {
	o.mu.Lock()
	pool, ok := o.classes[id]
	o.mu.Unlock()
	if !ok {
		return nil, CodeUnknownObjectClass.Error(nil)
	}

	item := pool.AllocItem()
	binary.LittleEndian.PutUint16(item.Bytes[0:2], signature)
	binary.LittleEndian.PutUint64(item.Bytes[2:10], id)

	payload := item.Bytes[headerSize:]
	o.mu.Lock()
	o.live[uintptr(unsafe.Pointer(unsafe.SliceData(payload)))] = item
	o.mu.Unlock()
	return payload, nil
}

func (o *ObjectPool) Free(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	key := payloadKey(payload)

	o.mu.Lock()
	defer o.mu.Unlock()

	item, ok := o.live[key]
	if !ok {
		return nil
	}
	delete(o.live, key)

	id := binary.LittleEndian.Uint64(item.Bytes[2:10])
	if pool, ok := o.classes[id]; ok {
		pool.FreeItem(item)
	}
	return nil
}
