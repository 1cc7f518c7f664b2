package queue

import "jobscraper/pkg/models"

// entry wraps a task with the monotonic sequence number used to break
// priority ties FIFO.
type entry struct {
	task *models.ScrapeTask
	seq  int64
	// index is maintained by container/heap for Fix/Remove.
	index int
}

// taskHeap is a max-heap on (Priority, then earlier seq wins) so Pop
// always returns the highest-priority, oldest-enqueued task.
type taskHeap []*entry

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
