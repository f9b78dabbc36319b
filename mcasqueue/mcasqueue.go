// Package mcasqueue implements a FIFO queue composed from two
// mcasstack.Stack values, the second of package mcas's two documented but
// unspecified consumers (spec.md: "higher-level lock-free data structures
// (stack, queue)... that consume the MCAS primitive").
package mcasqueue

import "github.com/YangKeao/beee/mcasstack"

// Queue is a FIFO: values are pushed onto an "in" stack; Dequeue drains
// "in" onto an "out" stack (reversing it) the first time "out" runs dry,
// then pops "out".
//
// Each individual Push/Pop against "in" or "out" is a single MCas call and
// therefore lock-free on its own, but the drain-and-reverse sequence
// inside Dequeue is not itself one atomic step — it is an ordinary
// sequence of stack operations. Queue is safe for concurrent use, but FIFO
// ordering across the drain is only meaningful with a single dequeuer at a
// time; concurrent dequeuers may interleave with an in-progress drain.
type Queue[T any] struct {
	in  *mcasstack.Stack[T]
	out *mcasstack.Stack[T]
}

// NewQueue returns a new, empty Queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		in:  mcasstack.NewStack[T](),
		out: mcasstack.NewStack[T](),
	}
}

// Enqueue adds v to the back of the queue.
func (q *Queue[T]) Enqueue(v T) {
	q.in.Push(v)
}

// Dequeue removes and returns the value at the front of the queue. It
// reports false if the queue was empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	if v, ok := q.out.Pop(); ok {
		return v, true
	}
	for {
		v, ok := q.in.Pop()
		if !ok {
			break
		}
		q.out.Push(v)
	}
	return q.out.Pop()
}
