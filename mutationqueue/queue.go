// Package mutationqueue declares the MutationQueue external collaborator
// contract (spec.md §4.5) and the Batch type overlays are recalculated
// from. The real mutation queue — its durability, its precondition
// checking at commit time — is out of scope per spec.md §1; this package
// only fixes the interface the overlay cache and local documents view
// require from it.
package mutationqueue

import (
	"sort"

	"docoverlay/document"
	"docoverlay/mutation"
)

// Batch is an ordered group of mutations assigned a single batch id by
// the mutation queue. Batch ids are strictly increasing.
type Batch struct {
	ID        int64
	Mutations []mutation.Mutation
}

// Keys returns the distinct document keys this batch touches, in the
// order their mutations first appear.
func (b Batch) Keys() []document.Key {
	seen := make(map[document.Key]bool, len(b.Mutations))
	var keys []document.Key
	for _, m := range b.Mutations {
		k := m.Key()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// ApplyToLocalViewWithFieldMask folds every mutation in the batch that
// targets key over doc in place, returning the union of mask with the
// fields any of them wrote (AllFields once a Set or Delete is folded in).
func (b Batch) ApplyToLocalViewWithFieldMask(key document.Key, doc *document.Document, mask document.FieldMask) document.FieldMask {
	for _, m := range b.Mutations {
		if m.Key() != key {
			continue
		}
		mask = m.ApplyToLocalViewWithFieldMask(doc, mask)
	}
	return mask
}

// Queue is the MutationQueue external collaborator contract.
type Queue interface {
	// GetAllMutationBatchesAffectingDocumentKeys returns every batch that
	// touches at least one of keys, ordered by ascending ID.
	GetAllMutationBatchesAffectingDocumentKeys(keys []document.Key) ([]Batch, error)
}

// SortBatchesByID sorts batches ascending by ID in place and returns them,
// a convenience for Queue implementations that don't already keep batches
// ordered.
func SortBatchesByID(batches []Batch) []Batch {
	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })
	return batches
}
