// SPDX-License-Identifier: EPL-2.0

package command

import (
	"sync"
	"testing"

	"github.com/ik5/audiograph/errs"
)

func TestQueuePushPopOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue[int](4)
	for i := 0; i < 4; i++ {
		if err := q.Push(i); err != nil {
			t.Fatalf("Push(%d) error: %v", i, err)
		}
	}

	if err := q.Push(99); err != errs.QueueFull {
		t.Fatalf("Push on full queue = %v, want QueueFull", err)
	}

	for i := 0; i < 4; i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() ok = false at i=%d", i)
		}
		if v != i {
			t.Errorf("Pop() = %d, want %d", v, i)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned ok=true")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()

	q := NewQueue[int](1024)
	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for q.Push(base+i) != nil {
					// capacity comfortably exceeds total pushes; should not loop
				}
			}
		}(p * perProducer)
	}
	wg.Wait()

	seen := make(map[int]bool)
	count := 0
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		seen[v] = true
		count++
	}

	if count != producers*perProducer {
		t.Errorf("drained %d items, want %d", count, producers*perProducer)
	}
	if len(seen) != count {
		t.Errorf("saw %d distinct values, want %d (no duplicates/drops)", len(seen), count)
	}
}

func TestCommandQueueArrivalOrderTiebreak(t *testing.T) {
	t.Parallel()

	q := NewCommandQueue(8)
	for i := 0; i < 3; i++ {
		if err := q.PushCommand(Command{TargetID: 1, FrameTime: 100}); err != nil {
			t.Fatalf("PushCommand error: %v", err)
		}
	}

	var seqs []uint64
	for {
		cmd, ok := q.Pop()
		if !ok {
			break
		}
		seqs = append(seqs, cmd.Seq())
	}

	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Errorf("seq[%d]=%d not increasing after seq[%d]=%d", i, seqs[i], i-1, seqs[i-1])
		}
	}
}

func TestStatusBusDropsOldestPositionUnderPressure(t *testing.T) {
	t.Parallel()

	bus := NewStatusBus(2)
	bus.Push(Event{Kind: EventPosition, FramePosition: 1})
	bus.Push(Event{Kind: EventPosition, FramePosition: 2})
	// Queue now full of two Position events; a high-value event should
	// evict one of them rather than being dropped itself.
	bus.Push(Event{Kind: EventStopped})

	events := bus.Drain()
	foundStopped := false
	for _, ev := range events {
		if ev.Kind == EventStopped {
			foundStopped = true
		}
	}
	if !foundStopped {
		t.Error("EventStopped was dropped instead of evicting a Position event")
	}
}
