package nav

import (
	"container/heap"
	"math"
)

// slot is the per-node search state for one request. A slot whose gen
// differs from the arena's current generation is untouched.
type slot struct {
	gen     uint32
	closed  bool
	g, h    int32
	parent  int32
	heapIdx int32
}

// scratch is a request-scoped search arena indexed by node id. Reset is
// O(1): bumping the generation invalidates every slot at once.
type scratch struct {
	gen   uint32
	slots []slot
	open  openSet
	nbuf  []int
}

func newScratch(n int) *scratch {
	s := &scratch{slots: make([]slot, n)}
	s.open.s = s
	return s
}

func (s *scratch) reset() {
	s.gen++
	if s.gen == 0 {
		clear(s.slots)
		s.gen = 1
	}
	s.open.items = s.open.items[:0]
}

// at returns id's slot, initialising it on first touch this generation.
func (s *scratch) at(id int) *slot {
	sl := &s.slots[id]
	if sl.gen != s.gen {
		*sl = slot{gen: s.gen, g: math.MaxInt32, parent: -1, heapIdx: -1}
	}
	return sl
}

// openSet is a binary min-heap on f = g + h, ties broken on lower h.
// Each node's heap position is kept in its slot for in-place decrease-key.
type openSet struct {
	items []int32
	s     *scratch
}

func (o *openSet) Len() int { return len(o.items) }

func (o *openSet) Less(i, j int) bool {
	a, b := &o.s.slots[o.items[i]], &o.s.slots[o.items[j]]
	fa, fb := a.g+a.h, b.g+b.h
	if fa != fb {
		return fa < fb
	}
	return a.h < b.h
}

func (o *openSet) Swap(i, j int) {
	o.items[i], o.items[j] = o.items[j], o.items[i]
	o.s.slots[o.items[i]].heapIdx = int32(i)
	o.s.slots[o.items[j]].heapIdx = int32(j)
}

func (o *openSet) Push(x any) {
	id := x.(int32)
	o.s.slots[id].heapIdx = int32(len(o.items))
	o.items = append(o.items, id)
}

func (o *openSet) Pop() any {
	n := len(o.items) - 1
	id := o.items[n]
	o.items = o.items[:n]
	o.s.slots[id].heapIdx = -1
	return id
}

func (o *openSet) push(id int) { heap.Push(o, int32(id)) }
func (o *openSet) pop() int { return int(heap.Pop(o).(int32)) }
func (o *openSet) fix(heapIdx int32) { heap.Fix(o, int(heapIdx)) }
