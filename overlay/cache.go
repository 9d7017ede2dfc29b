package overlay

import (
	"docoverlay/document"
	"docoverlay/mutation"
)

// Cache is the contract shared by the in-memory (memcache) and persistent
// (boltcache) overlay stores. Every operation is conceptually scoped to a
// transaction; the in-memory variant ignores that scoping since it has no
// host storage layer of its own.
type Cache interface {
	// GetOverlay returns the overlay for key, or ok=false if none exists.
	GetOverlay(key document.Key) (Overlay, bool, error)

	// SaveOverlays installs an overlay (largestBatchID, m) for every
	// (key, m) pair in mutations, replacing any prior overlay for that
	// key. Nil mutations are skipped.
	SaveOverlays(largestBatchID int64, mutations map[document.Key]mutation.Mutation) error

	// RemoveOverlaysForBatchID removes exactly the overlays whose
	// LargestBatchID equals batchID.
	RemoveOverlaysForBatchID(batchID int64) error

	// GetOverlaysForCollection returns every overlay whose key is an
	// immediate child of collection and whose LargestBatchID is strictly
	// greater than sinceBatchID. Sub-collection descendants are excluded.
	GetOverlaysForCollection(collection document.ResourcePath, sinceBatchID int64) (map[document.Key]Overlay, error)

	// GetOverlaysForCollectionGroup returns overlays whose key's
	// collection group equals collectionGroup and whose LargestBatchID is
	// strictly greater than sinceBatchID, collected batch by batch in
	// ascending LargestBatchID order; the returned map itself carries no
	// order. The result contains entire batches: it grows past count only
	// to finish the batch that reached it, never splitting one.
	GetOverlaysForCollectionGroup(collectionGroup string, sinceBatchID int64, count int) (map[document.Key]Overlay, error)
}
