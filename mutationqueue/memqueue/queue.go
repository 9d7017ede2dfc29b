// Package memqueue is an in-memory stand-in for the real mutation queue,
// used by local documents view tests and by the demo wiring in cmd/. The
// real queue's durability and commit-time precondition checking are out
// of scope for this repository (spec.md §1); this type only implements
// the read contract the overlay cache's recalculation path needs.
package memqueue

import (
	"sort"
	"sync"

	"docoverlay/document"
	"docoverlay/mutation"
	"docoverlay/mutationqueue"
)

// Queue is an ordered, in-memory list of mutation batches.
type Queue struct {
	mu      sync.Mutex
	batches []mutationqueue.Batch
	nextID  int64
}

// New returns an empty queue whose first AddBatch call is assigned id 1.
func New() *Queue {
	return &Queue{nextID: 1}
}

// AddBatch appends a new batch containing mutations, assigns it the next
// batch id, and returns the assigned id.
func (q *Queue) AddBatch(mutations ...mutation.Mutation) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextID
	q.nextID++
	q.batches = append(q.batches, mutationqueue.Batch{ID: id, Mutations: mutations})
	return id
}

// RemoveBatch drops a batch once the caller considers it acknowledged —
// mirroring what the real queue does once a batch is no longer pending,
// without the durability mechanics that accompany it there.
func (q *Queue) RemoveBatch(batchID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, b := range q.batches {
		if b.ID == batchID {
			q.batches = append(q.batches[:i], q.batches[i+1:]...)
			return
		}
	}
}

// GetAllMutationBatchesAffectingDocumentKeys implements
// mutationqueue.Queue.
func (q *Queue) GetAllMutationBatchesAffectingDocumentKeys(keys []document.Key) ([]mutationqueue.Batch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	want := make(map[document.Key]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	var matched []mutationqueue.Batch
	for _, b := range q.batches {
		for _, m := range b.Mutations {
			if want[m.Key()] {
				matched = append(matched, b)
				break
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}
