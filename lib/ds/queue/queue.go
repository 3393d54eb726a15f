package queue

import (
	"errors"
	"sync"

	"netcore/lib/ds/internal"
)

var ErrQueueEmpty = errors.New("queue is empty")

type Queue[T any] interface {
	Enqueue(v T)
	Dequeue() (T, error)
	Peek() (T, error)
	Len() uint
}

// FIFO is an unbounded first-in first-out queue.
// Dequeued slots are cleared so the queue never keeps a reference
// to an element it handed out.
type FIFO[T any] struct {
	queue []T
	head  int
}

func NewFIFO[T any](initialCap uint) *FIFO[T] {
	return &FIFO[T]{queue: make([]T, 0, initialCap)}
}

var _ Queue[int] = (*FIFO[int])(nil)

func (q *FIFO[T]) Enqueue(v T) {
	if q.head > 0 && q.head == len(q.queue) {
		// Drained. Reuse the backing array from the start.
		q.queue = q.queue[:0]
		q.head = 0
	}
	q.queue = append(q.queue, v)
}

func (q *FIFO[T]) Dequeue() (T, error) {
	if q.Len() == 0 {
		return internal.Zero[T](), ErrQueueEmpty
	}

	v := q.queue[q.head]
	q.queue[q.head] = internal.Zero[T]()
	q.head++

	if q.head > cap(q.queue)/2 {
		q.compact()
	}

	return v, nil
}

func (q *FIFO[T]) Peek() (T, error) {
	if q.Len() == 0 {
		return internal.Zero[T](), ErrQueueEmpty
	}
	return q.queue[q.head], nil
}

func (q *FIFO[T]) Len() uint {
	return uint(len(q.queue) - q.head)
}

func (q *FIFO[T]) compact() {
	n := copy(q.queue, q.queue[q.head:])
	clear(q.queue[n:])
	q.queue = q.queue[:n]
	q.head = 0
}

// Locked serializes every operation on the underlying queue.
// Use it when producers and the consumer run on different goroutines.
type Locked[T any] struct {
	q  Queue[T]
	mu sync.Mutex
}

func NewLocked[T any](q Queue[T]) *Locked[T] {
	return &Locked[T]{q: q}
}

var _ Queue[int] = (*Locked[int])(nil)

func (l *Locked[T]) Enqueue(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.q.Enqueue(v)
}

func (l *Locked[T]) Dequeue() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Dequeue()
}

func (l *Locked[T]) Peek() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Peek()
}

func (l *Locked[T]) Len() uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Len()
}
