// Package ordered implements the out-of-order completion queue that lets
// BlockEncoder/BlockDecoder submit blocks for asynchronous (de)compression
// and still emit them downstream in strict submission order, regardless of
// the order in which the codec's completion callbacks actually fire.
package ordered

import (
	"container/heap"
	"sync"
)

// BlockData is an indexed payload awaiting emission. Index determines
// emission order. Count is the number of records the block holds: the
// encoder writes it into the wire block, and the decoder uses it to bound
// how many records it reads back out of the block.
type BlockData struct {
	Index uint64
	Buf   []byte
	Count int64
}

// Queue is a min-heap keyed by BlockData.Index. Push inserts in O(log n);
// Pop returns the item whose Index equals an internal next-expected
// counter, incrementing it, or reports nothing if the head's Index is
// greater — i.e. pop stalls until the missing index arrives. There is no
// removal by index and no tolerance for duplicate indices: callers must
// assign strictly monotonic indices before Push.
type Queue struct {
	mu   sync.Mutex
	h    minHeap
	next uint64
}

// NewQueue returns an empty Queue expecting index 0 first.
func NewQueue() *Queue {
	return &Queue{}
}

// Push inserts item into the queue. Safe to call from a codec's
// completion goroutine concurrently with Pop/Len from the owning stream's
// goroutine.
func (q *Queue) Push(item *BlockData) {
	q.mu.Lock()
	heap.Push(&q.h, item)
	q.mu.Unlock()
}

// Pop returns the next in-order item and true, or nil and false if the
// head of the queue (if any) does not yet carry the expected index.
func (q *Queue) Pop() (*BlockData, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 || q.h[0].Index != q.next {
		return nil, false
	}
	item := heap.Pop(&q.h).(*BlockData)
	q.next++
	return item, true
}

// Len reports the number of items currently queued, in-order or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

type minHeap []*BlockData

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].Index < h[j].Index }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(*BlockData)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
