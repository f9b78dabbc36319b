package status

import (
	"sync"
	"testing"
)

func TestCellZeroValueIsUndecided(t *testing.T) {
	var c Cell
	assertEqual(t, Undecided, c.Load())
}

func TestCellCompareAndSwap(t *testing.T) {
	c := NewCell(Undecided)
	assertEqual(t, Undecided, c.CompareAndSwap(Undecided, Successful))
	assertEqual(t, Successful, c.Load())

	// Once terminal, no further transition is possible: a stale "old" of
	// Undecided does not move the cell to Failed, and the previous
	// (terminal) value comes back instead of the stale "old" we passed in.
	assertEqual(t, Successful, c.CompareAndSwap(Undecided, Failed))
	assertEqual(t, Successful, c.Load())
}

func TestCellMonotonicUnderConcurrency(t *testing.T) {
	c := NewCell(Undecided)
	var wg sync.WaitGroup
	results := make([]bool, 200)
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			results[i] = c.CompareAndSwap(Undecided, Failed) == Undecided
		}(i)
		go func(i int) {
			defer wg.Done()
			results[100+i] = c.CompareAndSwap(Undecided, Successful) == Undecided
		}(i)
	}
	wg.Wait()

	won := 0
	for _, r := range results {
		if r {
			won++
		}
	}
	assertEqual(t, 1, won)
	final := c.Load()
	assertTrue(t, final == Failed || final == Successful)
}

func TestValueString(t *testing.T) {
	assertEqual(t, "Undecided", Undecided.String())
	assertEqual(t, "Failed", Failed.String())
	assertEqual(t, "Successful", Successful.String())
}

func assertTrue(t *testing.T, x bool) bool {
	t.Helper()
	if !x {
		t.Errorf("not true")
		return false
	}
	return true
}

func assertFalse(t *testing.T, x bool) {
	t.Helper()
	if x {
		t.Errorf("not false")
	}
}

func assertEqual[T comparable](t *testing.T, x, y T) {
	t.Helper()
	if x != y {
		t.Errorf("not equal, got %#v want %#v", y, x)
	}
}
