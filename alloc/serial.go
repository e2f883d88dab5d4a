package alloc

// ChunkSource supplies a new fixed-size chunk on demand. SerialAllocator
// takes one as a constructor argument instead of importing package bufpool
// directly, so bufpool (which is itself backed by a PoolAllocator) can hand
// SerialAllocator its chunks without the two packages importing each other.
// The default, NewSerial with a nil source, draws chunks from the OS heap.
type ChunkSource func(size int) ([]byte, error)

type serialChunk struct {
	buf  []byte
	used int
	next *serialChunk
}

// SerialAllocator allocates linearly from a chain of fixed-size chunks.
// Free is a no-op: individual allocations are never reclaimed, only the
// whole arena via Reset. It is not safe for concurrent use; the intended
// owner is a single request's worth of work.
type SerialAllocator struct {
	chunkSize int
	source    ChunkSource
	head      *serialChunk
	current   *serialChunk
}

func NewSerial(chunkSize int, source ChunkSource) *SerialAllocator {
	if source == nil {
		os := NewOS()
		source = os.Alloc
	}
	return &SerialAllocator{chunkSize: chunkSize, source: source}
}

func (s *SerialAllocator) Capabilities() Capability { return SupportsReset | SupportsDestroy }
func (s *SerialAllocator) Free([]byte)              {}

func (s *SerialAllocator) Destroy() {
	s.head = nil
	s.current = nil
}

// Reset rewinds the head chunk to empty and drops every chained extension
// chunk, exactly matching the spec's "rewinds the head chunk and frees
// subsequent chunks".
func (s *SerialAllocator) Reset() {
	if s.head != nil {
		s.head.used = 0
		s.head.next = nil
	}
	s.current = s.head
}

func (s *SerialAllocator) newChunk() (*serialChunk, error) {
	buf, err := s.source(s.chunkSize)
	if err != nil {
		return nil, err
	}
	return &serialChunk{buf: buf}, nil
}

// Alloc aligns n to 8 bytes; if n exceeds the chunk size entirely the
// request fails outright (it can never fit any chunk). If it doesn't fit
// the current chunk's remaining space, a fresh same-size chunk is linked
// and allocation proceeds from it.
func (s *SerialAllocator) Alloc(n int) ([]byte, error) {
	sz := align(n, 8)
	if sz > s.chunkSize {
		return nil, CodeOutOfSpace.Error(nil)
	}

	if s.head == nil {
		c, err := s.newChunk()
		if err != nil {
			return nil, err
		}
		s.head = c
		s.current = c
	}

	if s.current.used+sz > len(s.current.buf) {
		c, err := s.newChunk()
		if err != nil {
			return nil, err
		}
		s.current.next = c
		s.current = c
	}

	b := s.current.buf[s.current.used : s.current.used+n]
	s.current.used += sz
	return b, nil
}
