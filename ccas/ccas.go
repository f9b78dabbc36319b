// Package ccas implements conditional compare-and-swap: a single-word CAS
// that only takes effect while an auxiliary status cell remains Undecided.
// It is the layer MCAS is built from (see package mcas); used alone it lets
// one CAS be vetoed by a status decided somewhere else entirely.
package ccas

import (
	"github.com/YangKeao/beee/gatomic"
	"github.com/YangKeao/beee/status"
)

// Union is the tagged union every target word holds a pointer to: either a
// plain Value or a pending Descriptor. Exactly one of the two accessors
// below is meaningful for a given Union; which one is determined by how it
// was constructed.
type Union[T any] struct {
	value *T
	desc  *Descriptor[T]
}

// NewValue wraps v as a plain value node.
func NewValue[T any](v *T) *Union[T] {
	return &Union[T]{value: v}
}

// IsDescriptor reports whether u holds a pending Descriptor rather than a
// plain value.
func (u *Union[T]) IsDescriptor() bool {
	return u.desc != nil
}

// Value returns the wrapped payload pointer, or nil if u holds a
// Descriptor.
func (u *Union[T]) Value() *T {
	return u.value
}

// Descriptor returns the wrapped descriptor, or nil if u holds a plain
// value.
func (u *Union[T]) Descriptor() *Descriptor[T] {
	return u.desc
}

// Descriptor describes a pending conditional swap: the target cell, the
// expected and new union nodes, and the status cell the swap is
// conditioned on. Descriptors are typically stack-allocated by the caller
// of CCas and published by CAS into the target; they must not be reused
// once published (I2).
type Descriptor[T any] struct {
	target *Cell[T]
	expect *Union[T]
	new    *Union[T]
	status *status.Cell
}

// Help executes the finalizing step of d: it reads the status cell and
// CASes the target from published (the address at which d itself was
// observed) to d's new node if the status is still Undecided, else back to
// d's expected node. Help is idempotent — any number of threads may call it
// concurrently for the same descriptor and the cell ends up in the same
// terminal referent, because only the CAS whose expected argument is the
// currently published descriptor address can succeed.
//
// The status load uses ordinary (sequentially consistent) atomic load:
// sync/atomic does not expose a weaker ordering on typed values, so there
// is no relaxed-load knob to turn here. Correctness depends only on the
// finalizing CAS below, not on the freshness of this load.
func (d *Descriptor[T]) Help(published *Union[T]) {
	final := d.new
	if d.status.Load() != status.Undecided {
		final = d.expect
	}
	gatomic.CompareAndSwapPointer(&d.target.ptr, published, final)
}

// Retire marks d as no longer reachable by its publisher, for the benefit
// of a future memory-reclamation layer. This implementation does not
// reclaim anything: per spec §5, a minimum viable implementation leaks
// descriptors deliberately. Retire exists so an epoch-based or
// hazard-pointer scheme has a stable attachment point without requiring
// changes to CCas itself.
func (d *Descriptor[T]) Retire() {}

// Cell is a shared atomic pointer to a Union[T]: a target word in the
// protocol. The zero Cell is not usable; construct one with NewCell.
type Cell[T any] struct {
	ptr *Union[T]
}

// NewCell returns a Cell initialized to hold v as a plain value.
func NewCell[T any](v *T) *Cell[T] {
	return &Cell[T]{ptr: NewValue(v)}
}

// LoadRaw returns the currently published union node without unwrapping
// any in-flight descriptor.
func (c *Cell[T]) LoadRaw() *Union[T] {
	return gatomic.LoadPointer(&c.ptr)
}

// Addr returns the numeric address of the cell's own pointer storage. It
// exists solely so higher layers (package mcas) can establish a stable
// total order over a set of cells; see gatomic.AddrOf.
func (c *Cell[T]) Addr() uintptr {
	return gatomic.AddrOf(&c.ptr)
}

// CompareAndSwapRaw performs a plain CAS of the cell's underlying pointer,
// bypassing the CCAS protocol. It is used by higher layers (package mcas)
// to publish and finalize their own descriptors through this cell without
// paying for a second, nested descriptor.
func (c *Cell[T]) CompareAndSwapRaw(old, new *Union[T]) bool {
	return gatomic.CompareAndSwapPointer(&c.ptr, old, new)
}

// CCas conditionally replaces the cell's current node with new iff the
// current node equals expect and status is still Undecided; otherwise the
// cell is left unchanged. A no-op is silent: the only externally visible
// failure mode of CCAS is that nothing happened (see package-level doc and
// spec §7).
func (c *Cell[T]) CCas(expect, new *Union[T], cond *status.Cell) {
	d := &Descriptor[T]{target: c, expect: expect, new: new, status: cond}
	published := &Union[T]{desc: d}
	for {
		if c.CompareAndSwapRaw(expect, published) {
			d.Help(published)
			return
		}
		cur := c.LoadRaw()
		if cur.IsDescriptor() {
			cur.Descriptor().Help(cur)
			continue
		}
		// cur holds a Value, but not the one we expected: the precondition
		// isn't met. Silent no-op.
		return
	}
}

// Read returns a pointer to the cell's current payload, helping any
// in-flight descriptor to completion first.
func (c *Cell[T]) Read() *T {
	for {
		cur := c.LoadRaw()
		if cur.IsDescriptor() {
			cur.Descriptor().Help(cur)
			continue
		}
		return cur.Value()
	}
}
