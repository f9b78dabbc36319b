// Package mcas implements multi-word compare-and-swap: an all-or-nothing
// update of N independently-addressed cells, built on top of package ccas.
// MCas sorts its entries by cell address before acquiring them, which is
// what lets two concurrent MCas calls that share a location avoid
// deadlocking each other (one always acquires its shared cell first).
package mcas

import (
	"fmt"
	"sort"

	"github.com/YangKeao/beee/ccas"
	"github.com/YangKeao/beee/status"
)

// Union is the payload CCAS-layer cells hold when used to drive an MCAS:
// either a plain value or a pending MCAS descriptor. It is the "MCasUnion"
// of the design: the T parameter of the underlying ccas.Cell is Union[U],
// never U directly, so a reader must unwrap through both layers to reach a
// U (see spec data model, §3).
type Union[U any] struct {
	value *U
	mdesc *Descriptor[U]
}

// NewValue wraps v as a plain value node.
func NewValue[U any](v *U) *Union[U] {
	return &Union[U]{value: v}
}

// IsDescriptor reports whether u holds a pending Descriptor.
func (u *Union[U]) IsDescriptor() bool {
	return u.mdesc != nil
}

// Value returns the wrapped payload pointer, or nil if u holds a
// Descriptor.
func (u *Union[U]) Value() *U {
	return u.value
}

// Descriptor returns the wrapped MCAS descriptor, or nil if u holds a
// plain value.
func (u *Union[U]) Descriptor() *Descriptor[U] {
	return u.mdesc
}

// NewCell returns a new MCAS-participating cell, initialized to hold v.
func NewCell[U any](v *U) *ccas.Cell[Union[U]] {
	return ccas.NewCell(NewValue(v))
}

// Node allocates a fresh, not-yet-published value node wrapping v. Use it
// to build the New field of an Entry. A node from Node never matches any
// cell's current node (NewCell installs a node of its own), so an Expect
// built with it always fails the precondition; to build an Expect, read
// the cell's current node with Cell.LoadRaw instead — expect must be the
// exact node address currently installed, not merely an equal value.
func Node[U any](v *U) *ccas.Union[Union[U]] {
	return ccas.NewValue(NewValue(v))
}

// Entry describes one location participating in an MCas call: the cell,
// the node it is expected to currently hold, and the node to install if
// the whole MCas commits.
type Entry[U any] struct {
	Cell   *ccas.Cell[Union[U]]
	Expect *ccas.Union[Union[U]]
	New    *ccas.Union[Union[U]]
}

// Descriptor describes a pending N-way swap: the frozen, address-sorted
// entry list (I3, I5) and the shared status cell that decides all of them
// together. It is an opaque handle — callers never construct one directly;
// MCas and the helping protocol manage its lifetime.
type Descriptor[U any] struct {
	entries  []Entry[U]
	status   *status.Cell
	envelope *ccas.Union[Union[U]]
}

func newDescriptor[U any](entries []Entry[U]) *Descriptor[U] {
	d := &Descriptor[U]{
		entries: entries,
		status:  status.NewCell(status.Undecided),
	}
	d.envelope = ccas.NewValue(&Union[U]{mdesc: d})
	return d
}

// Retire marks d as no longer reachable by its owner, for the benefit of a
// future memory-reclamation layer. This implementation does not reclaim
// anything: per spec §5, a minimum viable implementation leaks descriptors
// deliberately. Retire exists so an epoch-based or hazard-pointer scheme
// has a stable attachment point without requiring changes to MCas itself.
func (d *Descriptor[U]) Retire() {}

// prepare returns a sorted copy of entries, per I5 (distinct addresses,
// ascending order). It panics if the same cell appears twice: per spec §4.3
// edge cases, a repeated cell is a programmer error with undefined
// semantics, and this implementation chooses to assert rather than
// silently misbehave.
func prepare[U any](entries []Entry[U]) []Entry[U] {
	sorted := append([]Entry[U](nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cell.Addr() < sorted[j].Cell.Addr()
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Cell.Addr() == sorted[i-1].Cell.Addr() {
			panic(fmt.Errorf("mcas: entry %d targets the same cell as entry %d", i, i-1))
		}
	}
	return sorted
}

// MCas atomically updates every entry's cell from its Expect node to its
// New node, or updates none of them. It returns true iff the swap
// committed. entries must name distinct cells (I5); duplicates panic.
func MCas[U any](entries []Entry[U]) bool {
	if len(entries) == 0 {
		return true
	}
	d := newDescriptor(prepare(entries))
	return help(d)
}

// Read returns a pointer to the innermost payload of cell, helping any
// in-flight MCAS (or CCAS) descriptor to completion first.
func Read[U any](cell *ccas.Cell[Union[U]]) *U {
	for {
		inner := cell.Read()
		if inner.IsDescriptor() {
			help(inner.Descriptor())
			continue
		}
		return inner.Value()
	}
}

// help drives d to a decided status and propagates that decision to every
// entry. It is idempotent and safe to call concurrently and recursively:
// any thread that observes d's envelope published in a cell it is itself
// trying to acquire runs exactly this same protocol, so it is always
// making progress on d rather than waiting on it (see concurrency notes,
// spec §5).
func help[U any](d *Descriptor[U]) bool {
	acquire(d)
	propagate(d)
	return d.status.Load() == status.Successful
}

// acquire is phase 1: publish d's envelope into every entry's cell, in
// sorted order, stopping as soon as the status is decided (by this call or
// by a concurrent helper).
func acquire[U any](d *Descriptor[U]) {
	for _, e := range d.entries {
		if !acquireEntry(d, e) {
			return
		}
	}
	d.status.CompareAndSwap(status.Undecided, status.Successful)
}

// acquireEntry runs the inner retry loop of phase 1 for a single entry. It
// reports whether the slot was acquired; a false return means the status
// has already been decided (by us, just now, or by someone else) and the
// whole acquire phase should stop.
func acquireEntry[U any](d *Descriptor[U], e Entry[U]) bool {
	for {
		if d.status.Load() != status.Undecided {
			return false
		}
		e.Cell.CCas(e.Expect, d.envelope, d.status)
		p := e.Cell.LoadRaw()
		switch {
		case p == d.envelope:
			return true
		case p.IsDescriptor():
			// Some other CCAS (not ours) is mid-flight at this cell; help it
			// off before retrying our own attempt.
			p.Descriptor().Help(p)
		case p.Value().IsDescriptor():
			// Another MCas owns this cell right now. Help it to completion
			// using the same protocol its owner runs, then retry: the
			// address-sort invariant (I5) guarantees this can only recurse
			// into MCASes holding strictly lower-addressed cells, so it
			// cannot cycle.
			help(p.Value().Descriptor())
		default:
			// p holds some other, incompatible value: our precondition
			// failed for this entry.
			d.status.CompareAndSwap(status.Undecided, status.Failed)
			return false
		}
	}
}

// propagate is phase 2: replace d's envelope, wherever it was installed,
// with the decided outcome for that entry. A failing CAS here is benign —
// it only means another helper already finalized the slot.
func propagate[U any](d *Descriptor[U]) {
	successful := d.status.Load() == status.Successful
	for _, e := range d.entries {
		final := e.Expect
		if successful {
			final = e.New
		}
		e.Cell.CompareAndSwapRaw(d.envelope, final)
	}
}
