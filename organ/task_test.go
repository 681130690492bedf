package organ

import (
	"sync"
	"testing"
)

func TestBaseTaskAddDrainPendingPreservesAllVoices(t *testing.T) {
	bt := newBaseTask(GroupWindchest, 1, false, 2, 256)
	voices := make([]*voice, 5)
	for i := range voices {
		voices[i] = &voice{}
		bt.Add(voices[i])
	}

	drained := bt.drainPending()
	if len(drained) != len(voices) {
		t.Fatalf("drainPending returned %d voices, want %d", len(drained), len(voices))
	}
	seen := make(map[*voice]bool)
	for _, v := range drained {
		seen[v] = true
		if v.pendingNext != nil {
			t.Fatalf("drained voice still links to pendingNext, want cleared")
		}
	}
	for _, v := range voices {
		if !seen[v] {
			t.Fatalf("voice %p missing from drained list", v)
		}
	}
}

func TestBaseTaskDrainPendingEmptiesTheQueue(t *testing.T) {
	bt := newBaseTask(GroupWindchest, 1, false, 2, 256)
	bt.Add(&voice{})

	if len(bt.drainPending()) != 1 {
		t.Fatalf("first drainPending should return the one added voice")
	}
	if got := bt.drainPending(); len(got) != 0 {
		t.Fatalf("second drainPending = %d voices, want 0 (queue already drained)", len(got))
	}
}

// TestBaseTaskAddIsSafeUnderConcurrentProducers drives many goroutines
// pushing concurrently, the MPSC shape the pending-adds stack is built
// for (§9), and checks the single drain afterward accounts for every
// push with none lost or duplicated.
func TestBaseTaskAddIsSafeUnderConcurrentProducers(t *testing.T) {
	bt := newBaseTask(GroupWindchest, 1, false, 2, 256)

	const producers = 32
	const perProducer = 100
	pushed := make([]*voice, producers*perProducer)
	for i := range pushed {
		pushed[i] = &voice{}
	}

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				bt.Add(pushed[p*perProducer+i])
			}
		}(p)
	}
	wg.Wait()

	drained := bt.drainPending()
	if len(drained) != len(pushed) {
		t.Fatalf("drainPending returned %d voices, want %d", len(drained), len(pushed))
	}
	seen := make(map[*voice]int)
	for _, v := range drained {
		seen[v]++
	}
	for _, v := range pushed {
		if seen[v] != 1 {
			t.Fatalf("voice %p seen %d times in drained list, want exactly 1", v, seen[v])
		}
	}
}
