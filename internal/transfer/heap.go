package transfer

import "github.com/sorairo/resonance/internal/domain"

// heapItem is one entry in the priority queue of pending jobs. Items may go
// stale: if a job's priority is raised after an item for it was already
// pushed, the old item is left in place and skipped when popped rather than
// hunted down and fixed up in place.
type heapItem struct {
	priority domain.Priority
	seq      uint64
	key      string
}

// jobHeap orders by priority descending, then by sequence ascending (FIFO
// within a priority band). It implements container/heap.Interface.
type jobHeap []heapItem

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(heapItem))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
