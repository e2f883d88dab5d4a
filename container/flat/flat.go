// Package flat implements the self-describing on-disk/shared-memory
// representation of a vector of byte-string values: a header, a table of
// offsets relative to the start of the buffer, and the payloads themselves,
// each length-prefixed. It is the wire format vectors in package vector
// serialize to and from when they cross a process boundary or hit disk.
package flat

import (
	"encoding/binary"
	"errors"
)

const headerSize = 8 // int32 total_bytes + int32 item_count

var (
	// ErrTruncated is returned when the buffer is shorter than its own
	// declared size or an offset table entry.
	ErrTruncated = errors.New("flat: buffer truncated")
	// ErrCorrupt is returned when an offset or length escapes the buffer.
	ErrCorrupt = errors.New("flat: offset or length out of bounds")
)

// Serialize packs items into the flat format: a 4-byte item count escapes
// into the header followed by one uint32 offset per item, then the
// payloads, each itself prefixed with a uint32 length.
func Serialize(items [][]byte) []byte {
	n := len(items)
	offTable := headerSize + 4*n

	size := offTable
	offsets := make([]uint32, n)
	for i, it := range items {
		offsets[i] = uint32(size)
		size += 4 + len(it)
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(size))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(n))

	for i, off := range offsets {
		binary.LittleEndian.PutUint32(buf[headerSize+4*i:headerSize+4*i+4], off)
	}
	for i, it := range items {
		o := offsets[i]
		binary.LittleEndian.PutUint32(buf[o:o+4], uint32(len(it)))
		copy(buf[o+4:o+4+uint32(len(it))], it)
	}
	return buf
}

// Check validates that every offset and length-prefixed payload in buf lies
// entirely within it. It must be called before Deserialize on any buffer
// that did not originate from this process's own Serialize call (disk
// blobs, shared-memory regions written by another process, a crashed
// write) since those can be torn or corrupted.
func Check(buf []byte) error {
	if len(buf) < headerSize {
		return ErrTruncated
	}
	total := binary.LittleEndian.Uint32(buf[0:4])
	count := binary.LittleEndian.Uint32(buf[4:8])
	if uint64(total) != uint64(len(buf)) {
		return ErrTruncated
	}

	offTableEnd := uint64(headerSize) + 4*uint64(count)
	if offTableEnd > uint64(len(buf)) {
		return ErrCorrupt
	}

	for i := uint32(0); i < count; i++ {
		off := binary.LittleEndian.Uint32(buf[headerSize+4*i : headerSize+4*i+4])
		if uint64(off)+4 > uint64(len(buf)) {
			return ErrCorrupt
		}
		plen := binary.LittleEndian.Uint32(buf[off : off+4])
		if uint64(off)+4+uint64(plen) > uint64(len(buf)) {
			return ErrCorrupt
		}
	}
	return nil
}

// Deserialize reads back the items packed by Serialize. Callers must call
// Check first on any buffer not produced in-process.
func Deserialize(buf []byte) ([][]byte, error) {
	if err := Check(buf); err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(buf[4:8])
	items := make([][]byte, count)
	for i := uint32(0); i < count; i++ {
		off := binary.LittleEndian.Uint32(buf[headerSize+4*i : headerSize+4*i+4])
		plen := binary.LittleEndian.Uint32(buf[off : off+4])
		items[i] = buf[off+4 : off+4+plen]
	}
	return items, nil
}
