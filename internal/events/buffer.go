package events

import (
	"errors"
	"sync"
)

var ErrBufferFull = errors.New("event buffer full")

type message struct {
	Kind string
	Data []byte
	prev *message
}

// buffer is a capped FIFO of pending events. The producer drops new events
// once the cap is reached rather than block the caller.
type buffer struct {
	lock sync.Mutex
	head *message
	tail *message
	size int
	cap  int
}

func newBuffer(cap int) *buffer {
	return &buffer{cap: cap}
}

func (b *buffer) PushBack(msg *message) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.cap > 0 && b.size >= b.cap {
		return ErrBufferFull
	}

	if b.head == nil {
		b.head = msg
		b.tail = msg
	} else {
		b.tail.prev = msg
		b.tail = msg
	}
	b.size++

	return nil
}

func (b *buffer) Pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.head == nil {
		return nil
	}
	tmp := b.head
	if b.head.prev != nil {
		b.head = b.head.prev
	} else {
		// removing the last one
		b.head = nil
		b.tail = nil
	}
	b.size--
	return tmp
}

func (b *buffer) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.size
}
