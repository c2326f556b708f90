package zambezi

import "container/heap"

// Hit is one search result: a docid and its accumulated score.
type Hit struct {
	Doc   DocID
	Score uint32
}

// topKHeap is a bounded min-heap of Hit keyed by Score, used to keep only
// the best limit results seen so far without sorting the whole candidate
// stream. The root is always the weakest surviving hit, so a new candidate
// needs one comparison against it. Score ties break by docid in the
// traversal direction: the docid that traversal surfaces first wins.
type topKHeap struct {
	limit   int
	reverse bool
	items   []Hit
}

func newTopKHeap(limit int, reverse bool) *topKHeap {
	if limit < 0 {
		limit = 0
	}
	return &topKHeap{limit: limit, reverse: reverse, items: make([]Hit, 0, limit)}
}

// Offer inserts (doc, score) if it qualifies for the top-k, evicting the
// current weakest entry if the heap is already full.
func (h *topKHeap) Offer(doc DocID, score uint32) {
	if h.limit <= 0 {
		return
	}
	if len(h.items) < h.limit {
		heap.Push(h, Hit{Doc: doc, Score: score})
		return
	}
	if h.weaker(h.items[0], Hit{Doc: doc, Score: score}) {
		h.items[0] = Hit{Doc: doc, Score: score}
		heap.Fix(h, 0)
	}
}

// Min returns the score of the current weakest surviving hit and whether
// the heap is at capacity. Pruning algorithms use this as the
// early-termination threshold: once a cursor's remaining upper bound
// cannot beat Min, it can no longer affect the final top-k.
func (h *topKHeap) Min() (uint32, bool) {
	if len(h.items) < h.limit || h.limit == 0 {
		return 0, false
	}
	return h.items[0].Score, true
}

func (h *topKHeap) Len() int { return len(h.items) }

// Sorted drains the heap into a slice ordered best-first: highest score
// first, score ties ordered by docid in the traversal direction.
func (h *topKHeap) Sorted() []Hit {
	out := make([]Hit, len(h.items))
	// Popping a min-heap yields weakest-first; fill the slice backwards.
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Hit)
	}
	return out
}

// weaker reports whether a ranks below b: lower score is weaker, and on a
// score tie the docid that traversal surfaces later is weaker.
func (h *topKHeap) weaker(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if h.reverse {
		return a.Doc < b.Doc
	}
	return a.Doc > b.Doc
}

// heap.Interface implementation, ordered so items[0] is always the
// weakest hit.
func (h *topKHeap) Less(i, j int) bool { return h.weaker(h.items[i], h.items[j]) }
func (h *topKHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x any)         { h.items = append(h.items, x.(Hit)) }
func (h *topKHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
