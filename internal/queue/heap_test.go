package queue

import (
	"container/heap"
	"testing"

	"jobscraper/pkg/models"
)

// TestTaskHeapPriorityThenFIFO checks that higher
// priority pops first, and ties break FIFO by enqueue sequence.
func TestTaskHeapPriorityThenFIFO(t *testing.T) {
	h := &taskHeap{}
	heap.Init(h)

	push := func(seq int64, pr models.Priority) {
		heap.Push(h, &entry{task: &models.ScrapeTask{Priority: pr}, seq: seq})
	}

	push(1, models.PriorityNormal)
	push(2, models.PriorityLow)
	push(3, models.PriorityUrgent)
	push(4, models.PriorityNormal) // same priority as seq 1, enqueued later
	push(5, models.PriorityHigh)

	var order []int64
	for h.Len() > 0 {
		e := heap.Pop(h).(*entry)
		order = append(order, e.seq)
	}

	want := []int64{3, 5, 1, 4, 2}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got seq %d, want %d (full order %v)", i, order[i], want[i], order)
		}
	}
}
