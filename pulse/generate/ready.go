package generate

import "container/heap"

// readyQueue orders dispatchable items by priority, highest first.
// Equal priorities dispatch in the order they became ready.
type readyQueue struct {
	items itemHeap
	seq   uint64
}

func (q *readyQueue) push(w *WorkItem) {
	q.seq++
	w.seq = q.seq
	heap.Push(&q.items, w)
}

func (q *readyQueue) pop() *WorkItem {
	if len(q.items) == 0 {
		return nil
	}
	return heap.Pop(&q.items).(*WorkItem)
}

func (q *readyQueue) len() int {
	return len(q.items)
}

type itemHeap []*WorkItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(*WorkItem)) }

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return w
}

// readySet tracks outstanding dependencies and releases items whose
// dependencies have all completed.
type readySet struct {
	queue       readyQueue
	outstanding map[string]map[string]struct{}
	dependents  map[string][]string
}

func newReadySet(items []*WorkItem) *readySet {
	rs := &readySet{
		outstanding: make(map[string]map[string]struct{}, len(items)),
		dependents:  make(map[string][]string),
	}
	for _, w := range items {
		set := make(map[string]struct{}, len(w.dependencies))
		for _, dep := range w.dependencies {
			set[dep] = struct{}{}
			rs.dependents[dep] = append(rs.dependents[dep], w.ID)
		}
		rs.outstanding[w.ID] = set
	}
	for _, w := range items {
		if len(rs.outstanding[w.ID]) == 0 {
			rs.queue.push(w)
		}
	}
	return rs
}

// complete clears id from every dependent and returns the ids that became ready
func (rs *readySet) complete(id string) []string {
	var released []string
	for _, dep := range rs.dependents[id] {
		set := rs.outstanding[dep]
		if _, ok := set[id]; !ok {
			continue
		}
		delete(set, id)
		if len(set) == 0 {
			released = append(released, dep)
		}
	}
	return released
}
