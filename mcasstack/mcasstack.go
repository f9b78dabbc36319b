// Package mcasstack implements a lock-free stack directly on top of
// package mcas, plus a Transfer operation that moves the top element of
// one stack onto another as a single atomic step. It exists to exercise
// the MCAS primitive as a real consumer would, the way spec.md documents
// "higher-level lock-free data structures (stack, queue)" as the intended
// clients of the engine without specifying them. Single-cell push/pop
// already works with an ordinary CAS; Transfer is the part that actually
// needs two locations to move together, which is what MCAS is for.
package mcasstack

import (
	"github.com/YangKeao/beee/ccas"
	"github.com/YangKeao/beee/mcas"
)

type node[T any] struct {
	val  T
	next *node[T]
}

// Stack is a lock-free LIFO. The zero Stack is not usable; use NewStack.
type Stack[T any] struct {
	top *ccas.Cell[mcas.Union[*node[T]]]
}

// NewStack returns a new, empty Stack.
func NewStack[T any]() *Stack[T] {
	var empty *node[T]
	return &Stack[T]{top: mcas.NewCell(&empty)}
}

// current returns a stable (raw, value) snapshot of the stack's top, or ok
// = false if an in-flight descriptor was observed. Per spec.md §5's "must
// help" discipline, observing a descriptor here always drives it to
// completion (rather than just spinning) before reporting ok = false, so
// the caller's retry is guaranteed to make progress instead of busy-waiting
// on someone else's work.
func current[T any](top *ccas.Cell[mcas.Union[*node[T]]]) (raw *ccas.Union[mcas.Union[*node[T]]], val *node[T], ok bool) {
	raw = top.LoadRaw()
	if raw.IsDescriptor() {
		raw.Descriptor().Help(raw)
		return nil, nil, false
	}
	mu := raw.Value()
	if mu.IsDescriptor() {
		mcas.Read(top)
		return nil, nil, false
	}
	return raw, *mu.Value(), true
}

// Push adds v to the top of the stack.
func (s *Stack[T]) Push(v T) {
	for {
		raw, top, ok := current(s.top)
		if !ok {
			continue
		}
		n := &node[T]{val: v, next: top}
		if mcas.MCas([]mcas.Entry[*node[T]]{
			{Cell: s.top, Expect: raw, New: mcas.Node(&n)},
		}) {
			return
		}
	}
}

// Pop removes and returns the top of the stack. It reports false if the
// stack was empty.
func (s *Stack[T]) Pop() (T, bool) {
	for {
		raw, top, ok := current(s.top)
		if !ok {
			continue
		}
		if top == nil {
			var zero T
			return zero, false
		}
		next := top.next
		if mcas.MCas([]mcas.Entry[*node[T]]{
			{Cell: s.top, Expect: raw, New: mcas.Node(&next)},
		}) {
			return top.val, true
		}
	}
}

// Transfer atomically pops the top of src and pushes it onto dst as a
// single MCas call over both stacks' top cells. No observer can ever see
// the moved value absent from both stacks or present in both: the two
// updates commit or fail together. It reports false if src was empty.
func Transfer[T any](dst, src *Stack[T]) bool {
	for {
		srcRaw, srcTop, ok := current(src.top)
		if !ok {
			continue
		}
		if srcTop == nil {
			return false
		}
		dstRaw, dstTop, ok := current(dst.top)
		if !ok {
			continue
		}

		newSrcTop := srcTop.next
		moved := &node[T]{val: srcTop.val, next: dstTop}

		if mcas.MCas([]mcas.Entry[*node[T]]{
			{Cell: src.top, Expect: srcRaw, New: mcas.Node(&newSrcTop)},
			{Cell: dst.top, Expect: dstRaw, New: mcas.Node(&moved)},
		}) {
			return true
		}
	}
}
