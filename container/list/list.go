// Package list implements a generic doubly-linked list over a Serial
// allocator, with a free-list ("trash") of removed nodes so repeated
// insert/remove cycles reuse slots before the arena grows.
package list

import (
	"github.com/icap-oss/icapd/alloc"
	"github.com/icap-oss/icapd/container/typeops"
)

type node[T any] struct {
	value      T
	prev, next *node[T]
}

// List is a doubly-linked list. Nodes removed via Remove go onto an
// internal free list and are handed back out by the next PushBack/PushFront
// instead of allocating a fresh node from the Serial arena.
type List[T any] struct {
	serial     *alloc.SerialAllocator
	ops        typeops.Ops[T]
	head, tail *node[T]
	trash      *node[T]
	length     int
}

// New builds an empty List whose node footprint accounting is chunked
// through chunkSize-sized allocations drawn from source (nil uses the OS
// heap).
func New[T any](chunkSize int, source alloc.ChunkSource, ops typeops.Ops[T]) *List[T] {
	return &List[T]{serial: alloc.NewSerial(chunkSize, source), ops: ops}
}

func (l *List[T]) newNode(value T) (*node[T], error) {
	if l.trash != nil {
		n := l.trash
		l.trash = n.next
		n.value = value
		n.prev, n.next = nil, nil
		return n, nil
	}
	if _, err := l.serial.Alloc(l.ops.Size(value) + 32); err != nil {
		return nil, err
	}
	return &node[T]{value: value}, nil
}

// PushBack appends value to the tail of the list.
func (l *List[T]) PushBack(value T) error {
	n, err := l.newNode(l.ops.Dup(value))
	if err != nil {
		return err
	}
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.length++
	return nil
}

// PushFront prepends value to the head of the list.
func (l *List[T]) PushFront(value T) error {
	n, err := l.newNode(l.ops.Dup(value))
	if err != nil {
		return err
	}
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.length++
	return nil
}

// Len returns the number of elements currently in the list.
func (l *List[T]) Len() int { return l.length }

// Iterate calls fn for every element from head to tail.
func (l *List[T]) Iterate(fn func(value T)) {
	for n := l.head; n != nil; n = n.next {
		fn(n.value)
	}
}

// RemoveFront removes and returns the head element.
func (l *List[T]) RemoveFront() (T, bool) {
	var zero T
	if l.head == nil {
		return zero, false
	}
	n := l.head
	l.head = n.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	l.length--
	v := n.value
	l.toTrash(n)
	return v, true
}

// Remove deletes the first node equal to value per ops.Equal, returning
// whether one was found and removed.
func (l *List[T]) Remove(value T) bool {
	for n := l.head; n != nil; n = n.next {
		if !l.ops.Equal(n.value, value) {
			continue
		}
		if n.prev != nil {
			n.prev.next = n.next
		} else {
			l.head = n.next
		}
		if n.next != nil {
			n.next.prev = n.prev
		} else {
			l.tail = n.prev
		}
		l.length--
		l.ops.Free(n.value)
		l.toTrash(n)
		return true
	}
	return false
}

func (l *List[T]) toTrash(n *node[T]) {
	n.prev = nil
	n.next = l.trash
	l.trash = n
}

// Reset empties the list; it does not rewind the Serial allocator, since
// live trash nodes still reference memory inside it.
func (l *List[T]) Reset() {
	for n := l.head; n != nil; n = n.next {
		l.ops.Free(n.value)
	}
	l.head, l.tail, l.length = nil, nil, 0
}
