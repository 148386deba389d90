package meshtool

import "container/heap"

// candidate is a queued contraction (spec section 3): error is the
// quadric evaluated at whichever endpoint gave the lower value, keep is
// that survivor, drop is the other endpoint, seq breaks ties
// deterministically, and valid is flipped false by invalidation instead of
// removing the record from the heap (lazy deletion, spec section 4.3/9).
type candidate struct {
	err   float64
	seq   uint64
	keep  uint32
	drop  uint32
	valid bool
	index int // position in the heap, maintained by container/heap callbacks
}

// candidateHeap implements container/heap.Interface ordered by (err, seq),
// in the same shape as the teacher's EdgeHeap (mesh_simplification.go),
// generalized to the spec's (error, seq) tiebreak.
type candidateHeap []*candidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].err != h[j].err {
		return h[i].err < h[j].err
	}
	return h[i].seq < h[j].seq
}
func (h candidateHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *candidateHeap) Push(x interface{}) {
	c := x.(*candidate)
	c.index = len(*h)
	*h = append(*h, c)
}
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.index = -1
	*h = old[:n-1]
	return c
}

// contractionQueue owns the heap plus the non-owning side tables that let
// invalidation reach a vertex's queued candidates in O(1): a per-vertex
// seq->candidate back-index and a (u,v)->candidate dedup map. The heap
// owns the candidates; the side tables only hold references into it
// (spec section 4.3, 9).
type contractionQueue struct {
	heap       candidateHeap
	nextSeq    uint64
	byVertex   []map[uint64]*candidate // byVertex[v][seq] = candidate touching v
	byEndpoint map[[2]uint32]*candidate
}

func newContractionQueue(nVerts int) *contractionQueue {
	q := &contractionQueue{
		byVertex:   make([]map[uint64]*candidate, nVerts),
		byEndpoint: make(map[[2]uint32]*candidate),
	}
	for i := range q.byVertex {
		q.byVertex[i] = make(map[uint64]*candidate)
	}
	heap.Init(&q.heap)
	return q
}

func (q *contractionQueue) addVertex() {
	q.byVertex = append(q.byVertex, make(map[uint64]*candidate))
}

func endpointKey(u, v uint32) [2]uint32 {
	if u > v {
		u, v = v, u
	}
	return [2]uint32{u, v}
}

// genContraction normalizes u<v, does nothing if the pair already has a
// live candidate, sums the two vertex quadrics, evaluates at both
// endpoints, picks the lower as keep, and pushes the record (spec section
// 4.3).
func (q *contractionQueue) genContraction(u, v uint32, qu, qv Quadric, pu, pv Vec3) {
	key := endpointKey(u, v)
	if _, exists := q.byEndpoint[key]; exists {
		return
	}
	sum := qu.Add(qv)
	eu := sum.Eval(pu)
	ev := sum.Eval(pv)

	c := &candidate{seq: q.nextSeq, valid: true}
	q.nextSeq++
	if eu <= ev {
		c.err, c.keep, c.drop = eu, u, v
	} else {
		c.err, c.keep, c.drop = ev, v, u
	}

	heap.Push(&q.heap, c)
	q.byVertex[u][c.seq] = c
	q.byVertex[v][c.seq] = c
	q.byEndpoint[key] = c
}

// nextValid pops until a valid candidate is found, discarding invalidated
// ones along the way, and returns nil when the heap drains (spec 4.3).
func (q *contractionQueue) nextValid() *candidate {
	for q.heap.Len() > 0 {
		c := heap.Pop(&q.heap).(*candidate)
		if c.valid {
			return c
		}
	}
	return nil
}

// peekValid discards invalidated candidates off the top of the heap and
// returns the next valid one without popping it, leaving it in place so a
// caller can inspect its error before committing to the contraction (spec
// section 6 "[NEW]" ContractUntilError).
func (q *contractionQueue) peekValid() *candidate {
	for q.heap.Len() > 0 {
		c := q.heap[0]
		if c.valid {
			return c
		}
		heap.Pop(&q.heap)
	}
	return nil
}

// popTop removes the current heap-top candidate, which must be the one
// last returned by peekValid.
func (q *contractionQueue) popTop() {
	heap.Pop(&q.heap)
}

// invalidateEndpoint flips valid=false on every candidate touching v and
// removes the corresponding entries from the partner endpoint's back-map
// and the (u,v) dedup map (spec section 4.3).
func (q *contractionQueue) invalidateEndpoint(v uint32) {
	for seq, c := range q.byVertex[v] {
		c.valid = false
		other := c.keep
		if other == v {
			other = c.drop
		}
		delete(q.byVertex[other], seq)
		delete(q.byEndpoint, endpointKey(c.keep, c.drop))
	}
	q.byVertex[v] = make(map[uint64]*candidate)
}

// moveVertex transfers the side-table entries for a vertex relocated by
// swap-with-last compaction (old index `from` becomes `to`), rewriting the
// endpoint fields of every candidate still referencing `from`.
func (q *contractionQueue) moveVertex(from, to uint32) {
	moved := q.byVertex[from]
	q.byVertex[to] = moved
	for _, c := range moved {
		var other uint32
		if c.keep == from {
			c.keep = to
			other = c.drop
		} else {
			c.drop = to
			other = c.keep
		}
		delete(q.byEndpoint, endpointKey(other, from))
		q.byEndpoint[endpointKey(other, to)] = c
	}
	q.byVertex = q.byVertex[:len(q.byVertex)-1]
}

func (q *contractionQueue) popVertex() {
	q.byVertex = q.byVertex[:len(q.byVertex)-1]
}
