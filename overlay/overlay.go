// Package overlay defines the Overlay entity and the OverlayCache
// contract shared by the in-memory (memcache) and persistent
// (boltcache) implementations.
package overlay

import (
	"docoverlay/document"
	"docoverlay/mutation"
)

// Overlay pairs the highest batch id among the batches that contribute to
// a document's current local view with the single mutation equivalent to
// their composed effect. Immutable after construction.
type Overlay struct {
	largestBatchID int64
	mutation       mutation.Mutation
}

// New builds an Overlay. largestBatchID must be the maximum batch id
// among the batches contributing to mutation's effect.
func New(largestBatchID int64, m mutation.Mutation) Overlay {
	return Overlay{largestBatchID: largestBatchID, mutation: m}
}

// Key returns the overlay's target document key (the mutation's key).
func (o Overlay) Key() document.Key { return o.mutation.Key() }

// LargestBatchID returns the highest contributing batch id.
func (o Overlay) LargestBatchID() int64 { return o.largestBatchID }

// Mutation returns the overlay's composed mutation.
func (o Overlay) Mutation() mutation.Mutation { return o.mutation }
