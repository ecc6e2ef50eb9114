// Package merger selects the best k items of a scored sequence with a
// bounded heap instead of sorting the whole sequence.
package merger

import (
	"container/heap"
	"slices"
)

// TopK returns the k items that order first under less, best first. Items
// that compare equal keep their input order. k <= 0 or k >= len(items)
// stably sorts a copy of items.
func TopK[T any](items []T, k int, less func(a, b T) bool) []T {
	if k <= 0 || k >= len(items) {
		out := slices.Clone(items)
		slices.SortStableFunc(out, func(a, b T) int {
			switch {
			case less(a, b):
				return -1
			case less(b, a):
				return 1
			}
			return 0
		})
		return out
	}

	h := &boundedHeap[T]{less: less, entries: make([]entry[T], 0, k)}
	for i, it := range items {
		e := entry[T]{item: it, seq: i}
		if h.Len() < k {
			heap.Push(h, e)
			continue
		}
		if h.before(e, h.entries[0]) {
			h.entries[0] = e
			heap.Fix(h, 0)
		}
	}
	out := make([]T, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(entry[T]).item
	}
	return out
}

type entry[T any] struct {
	item T
	seq  int
}

// boundedHeap keeps the worst retained entry at the root.
type boundedHeap[T any] struct {
	entries []entry[T]
	less    func(a, b T) bool
}

// before reports whether a ranks ahead of b; input order breaks ties.
func (h *boundedHeap[T]) before(a, b entry[T]) bool {
	if h.less(a.item, b.item) {
		return true
	}
	if h.less(b.item, a.item) {
		return false
	}
	return a.seq < b.seq
}

func (h *boundedHeap[T]) Len() int { return len(h.entries) }

func (h *boundedHeap[T]) Less(i, j int) bool {
	return h.before(h.entries[j], h.entries[i])
}

func (h *boundedHeap[T]) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *boundedHeap[T]) Push(x interface{}) {
	h.entries = append(h.entries, x.(entry[T]))
}

func (h *boundedHeap[T]) Pop() interface{} {
	old := h.entries
	n := len(old)
	item := old[n-1]
	h.entries = old[:n-1]
	return item
}
