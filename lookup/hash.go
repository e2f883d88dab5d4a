package lookup

import "hash/fnv"

// HashBackend parses the table once, then answers lookups from an
// in-memory hash table instead of the "file" backend's linear scan.
// Bucket count is rounded up to the spec's documented `2^k - 1` sizing.
type HashBackend struct {
	buckets [][]Record
	mask    uint32
}

func init() {
	_ = Register("hash", func(path string) (Backend, error) {
		records, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		return NewHashBackend(records), nil
	})
}

// NextHashSize rounds n up to the next value of the form 2^k - 1, the
// bucket-count invariant spec.md §4.16 names for the hash backend.
func NextHashSize(n int) int {
	if n < 1 {
		n = 1
	}
	size := 1
	for size <= n {
		size <<= 1
	}
	return size - 1
}

// NewHashBackend builds a HashBackend over an already-parsed record set.
func NewHashBackend(records []Record) *HashBackend {
	size := NextHashSize(len(records))
	b := &HashBackend{
		buckets: make([][]Record, size+1),
		mask:    uint32(size),
	}
	for _, r := range records {
		idx := b.bucketIndex(r.Key)
		b.buckets[idx] = append(b.buckets[idx], r)
	}
	return b
}

func (b *HashBackend) bucketIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() & b.mask
}

func (b *HashBackend) Lookup(key string) ([]string, bool) {
	for _, r := range b.buckets[b.bucketIndex(key)] {
		if r.Key == key {
			return r.Values, true
		}
	}
	return nil, false
}

func (b *HashBackend) Close() error { return nil }
