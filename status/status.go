// Package status provides the tri-state atomic cell shared by every CCAS
// operation synthesized during one MCAS call. A Cell starts Undecided and
// moves, at most once, to either Failed or Successful; no transition out of
// a terminal value is ever observed.
package status

import "github.com/YangKeao/beee/gatomic"

// Value is one of the three states a Cell can hold.
type Value int32

const (
	Undecided Value = iota
	Failed
	Successful
)

func (v Value) String() string {
	switch v {
	case Undecided:
		return "Undecided"
	case Failed:
		return "Failed"
	case Successful:
		return "Successful"
	default:
		return "Value(?)"
	}
}

// Cell is a word-sized atomic whose value domain is {Undecided, Failed,
// Successful}. The zero Cell is Undecided.
//
// Status loads made while helping a descriptor (see package ccas) may use a
// plain Load: sync/atomic gives every typed atomic operation sequentially
// consistent semantics, so there is no weaker ordering to opt into here.
// Correctness does not depend on the load anyway — only on the finalizing
// CAS that follows it.
type Cell struct {
	v int32
}

// NewCell returns a Cell initialized to v.
func NewCell(v Value) *Cell {
	return &Cell{v: int32(v)}
}

// Load reads the current value.
func (c *Cell) Load() Value {
	return Value(gatomic.LoadInt32(&c.v))
}

// CompareAndSwap sets the cell to new iff it currently holds old, and
// returns the value the cell held immediately before this call (not
// necessarily old: transitions are monotonic, Undecided -> terminal, so a
// returned value other than old means some other transition already won).
// Swapped can be recovered as previous == old.
func (c *Cell) CompareAndSwap(old, new Value) (previous Value) {
	for {
		cur := c.Load()
		if cur != old {
			return cur
		}
		if gatomic.CompareAndSwapInt32(&c.v, int32(old), int32(new)) {
			return cur
		}
	}
}
