// Package workq provides the scratch queue used to build epsilon closures
// over a compiled program: the set of instructions reachable from a
// starting instruction without consuming input, in priority order.
//
// It is grounded on the sparse-set technique used elsewhere in this module
// for O(1) idempotent membership (see internal/sparse), extended with a
// Mark primitive so a caller can split one queue into ordered sub-runs
// without allocating a second queue. The DFA package builds its closures
// with Insert and Walk and does not use Mark.
package workq

import (
	"github.com/coregx/redfa/internal/conv"
	"github.com/coregx/redfa/internal/sparse"
	"github.com/coregx/redfa/prog"
)

type entry struct {
	id   prog.ID
	mark bool
}

// Workq is a fixed-capacity, insertion-ordered set of instruction ids. It
// is reused across many closure computations; Clear resets it in O(1).
//
// Workq is not safe for concurrent use. Each DFA owns one pair of these as
// scratch space, guarded by the lock that protects state construction.
type Workq struct {
	set      *sparse.SparseSet
	capacity int
	dense    []entry
}

// New creates a Workq able to hold instruction ids in [0, capacity).
func New(capacity int) *Workq {
	return &Workq{
		set:      sparse.NewSparseSet(conv.IntToUint32(capacity)),
		capacity: capacity,
		dense:    make([]entry, 0, capacity),
	}
}

// Cap returns the instruction-id capacity the queue was built for.
func (q *Workq) Cap() int { return q.capacity }

// Len returns the number of instruction ids currently queued, excluding
// marks.
func (q *Workq) Len() int {
	n := 0
	for _, e := range q.dense {
		if !e.mark {
			n++
		}
	}
	return n
}

// Contains reports whether id has already been added since the last
// Clear.
func (q *Workq) Contains(id prog.ID) bool {
	return q.set.Contains(uint32(id))
}

// Insert appends id to the queue if it is not already present. Insertion
// order is preserved: whichever alternative reaches an instruction first
// keeps its place in Walk order. The DFA sorts the ids before keying a
// state, and the Backtracker does not use Workq.
func (q *Workq) Insert(id prog.ID) {
	if q.set.Contains(uint32(id)) {
		return
	}
	q.set.Insert(uint32(id))
	q.dense = append(q.dense, entry{id: id})
}

// Mark appends a separator into the queue's insertion order without
// occupying a membership slot. Marks do not affect Contains and are
// skipped by Walk; use WalkMarked to see them.
func (q *Workq) Mark() {
	q.dense = append(q.dense, entry{mark: true})
}

// Clear empties the queue in O(1), keeping its backing arrays.
func (q *Workq) Clear() {
	q.set.Clear()
	q.dense = q.dense[:0]
}

// Walk calls f for every queued instruction id, in insertion order,
// skipping marks.
func (q *Workq) Walk(f func(id prog.ID)) {
	for _, e := range q.dense {
		if !e.mark {
			f(e.id)
		}
	}
}

// WalkMarked calls f for every entry in insertion order, reporting
// whether each one is a mark rather than an instruction id.
func (q *Workq) WalkMarked(f func(id prog.ID, mark bool)) {
	for _, e := range q.dense {
		f(e.id, e.mark)
	}
}

// Ids returns the queued instruction ids, in insertion order, as a fresh
// slice. Prefer Walk in hot paths to avoid the allocation.
func (q *Workq) Ids() []prog.ID {
	out := make([]prog.ID, 0, q.Len())
	q.Walk(func(id prog.ID) { out = append(out, id) })
	return out
}
