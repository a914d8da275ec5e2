package routingcore

import "container/heap"

// dijkstraWorkspace is C4: the minimum-priority structure over reachable
// TCTargets keyed by DijkstraNode.PathCost, supporting duplicate keys.
// Tie-breaking is by insertion order (stable within a single run), which
// is deterministic given identical inputs (spec.md §4.4, §8 S2).
//
// Membership is tracked on DijkstraNode.inQueue/heapIndex rather than a
// side-table, so remove() is O(log n) rather than a linear scan: each
// target keeps its own heap index, which heap.Remove needs.
type dijkstraWorkspace struct {
	h       targetHeap
	nextSeq int
}

func newDijkstraWorkspace() *dijkstraWorkspace {
	return &dijkstraWorkspace{}
}

func (w *dijkstraWorkspace) insert(t *TCTarget) {
	t.Dijkstra.inQueue = true
	t.Dijkstra.seq = w.nextSeq
	w.nextSeq++
	heap.Push(&w.h, t)
}

func (w *dijkstraWorkspace) remove(t *TCTarget) {
	if !t.Dijkstra.inQueue {
		return
	}
	heap.Remove(&w.h, t.Dijkstra.heapIndex)
	t.Dijkstra.inQueue = false
	t.Dijkstra.heapIndex = -1
}

func (w *dijkstraWorkspace) min() *TCTarget {
	if len(w.h) == 0 {
		return nil
	}
	return w.h[0]
}

func (w *dijkstraWorkspace) popMin() *TCTarget {
	if len(w.h) == 0 {
		return nil
	}
	t := heap.Pop(&w.h).(*TCTarget)
	t.Dijkstra.inQueue = false
	t.Dijkstra.heapIndex = -1
	return t
}

func (w *dijkstraWorkspace) empty() bool {
	return len(w.h) == 0
}

// targetHeap implements container/heap.Interface over *TCTarget, ordered
// by PathCost with stable (FIFO-among-equal-keys) tie-breaking.
type targetHeap []*TCTarget

func (h targetHeap) Len() int { return len(h) }

func (h targetHeap) Less(i, j int) bool {
	if h[i].Dijkstra.PathCost != h[j].Dijkstra.PathCost {
		return h[i].Dijkstra.PathCost < h[j].Dijkstra.PathCost
	}
	return h[i].Dijkstra.seq < h[j].Dijkstra.seq
}

func (h targetHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].Dijkstra.heapIndex = i
	h[j].Dijkstra.heapIndex = j
}

func (h *targetHeap) Push(x any) {
	t := x.(*TCTarget)
	t.Dijkstra.heapIndex = len(*h)
	*h = append(*h, t)
}

func (h *targetHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
