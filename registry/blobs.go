package registry

import (
	"sync"

	liberr "github.com/icap-oss/icapd/errors"
	"github.com/icap-oss/icapd/alloc"
	"github.com/icap-oss/icapd/stats"
)

const CodeBlobExists liberr.CodeError = liberr.MinPkgRegistry + 100

func init() {
	liberr.RegisterIdFctMessage(CodeBlobExists, func(code liberr.CodeError) string {
		if code == CodeBlobExists {
			return "registered blob name already frozen"
		}
		return liberr.UnknownMessage
	})
}

// BlobRegistry holds named user blobs frozen into the registry after the
// first fork, the "registered_blob[0..M]" tail of the registry layout. It
// is append-only by design: children must see the same blob set as the
// monitor without any possibility of a late registration racing a
// just-forked child.
type BlobRegistry struct {
	mu     sync.Mutex
	pack   *alloc.PackAllocator
	byName map[string][]byte
	frozen bool
}

// NewBlobRegistry builds an empty BlobRegistry backed by buf.
func NewBlobRegistry(buf []byte) *BlobRegistry {
	return &BlobRegistry{pack: alloc.NewPack(buf, 8), byName: make(map[string][]byte)}
}

// Register adds a named blob. It must be called only before Freeze; a
// call after Freeze returns CodeBlobExists unconditionally.
func (b *BlobRegistry) Register(name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return CodeBlobExists.Error(nil)
	}
	if _, ok := b.byName[name]; ok {
		return CodeBlobExists.Error(nil)
	}
	region, err := b.pack.AllocFront(len(data))
	if err != nil {
		return err
	}
	copy(region, data)
	b.byName[name] = region
	return nil
}

// Freeze marks the registry read-only: every child forked after this point
// sees exactly the same blob set, matching the spec's "registered after
// first fork" constraint.
func (b *BlobRegistry) Freeze() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true
}

// Get returns the named blob, or nil if it was never registered.
func (b *BlobRegistry) Get(name string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byName[name]
}

// Histograms returns the shared histogram area attached to this registry.
// It is a convenience accessor: Registry does not own a HistogramRegistry
// directly (histograms are global, not per-child), so monitor code wires
// one instance here.
func (r *Registry) Histograms() *stats.HistogramRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.histograms == nil {
		r.histograms = stats.NewHistogramRegistry()
	}
	return r.histograms
}
