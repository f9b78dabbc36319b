package mcas

import (
	"sync"
	"sync/atomic"
	"testing"
)

// P2/P5: under concurrent contention, two cells kept in lockstep by MCas
// (every successful call increments both by the same amount) never
// diverge, and the run completes — no deadlock, regardless of how many
// goroutines race on the same pair of cells.
func TestConcurrentMCasStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in -short mode")
	}

	const workers = 32
	const itersPerWorker = 100

	vLeft, vRight := 0, 100
	left := NewCell(&vLeft)
	right := NewCell(&vRight)

	var wg sync.WaitGroup
	var committed atomic.Int64

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < itersPerWorker; i++ {
				lraw := left.LoadRaw()
				rraw := right.LoadRaw()
				lu, ru := lraw.Value(), rraw.Value()
				if lu == nil || ru == nil {
					continue
				}
				lv, rv := lu.Value(), ru.Value()
				if lv == nil || rv == nil {
					continue
				}
				nl, nr := *lv+1, *rv+1
				if MCas([]Entry[int]{
					{Cell: left, Expect: lraw, New: Node(&nl)},
					{Cell: right, Expect: rraw, New: Node(&nr)},
				}) {
					committed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	gotL, gotR := *Read(left), *Read(right)
	if gotL-vLeft != gotR-vRight {
		t.Fatalf("cells fell out of lockstep: left moved %d, right moved %d", gotL-vLeft, gotR-vRight)
	}
	if committed.Load() == 0 {
		t.Fatalf("no MCas call ever committed")
	}
}
