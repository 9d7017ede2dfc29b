// Package memcache implements the in-memory OverlayCache (component C3):
// a sorted key map of overlays plus an inverted index by batch id, both
// maintained in lockstep. Overlays saved here die with the process.
package memcache

import (
	"sort"
	"sync"

	"docoverlay/document"
	"docoverlay/mutation"
	"docoverlay/overlay"
)

// Cache is the in-memory OverlayCache. It owns its two maps exclusively;
// no external reader mutates them, so a single mutex over both is
// sufficient (the transaction model in spec.md §5 means callers never
// need it to support concurrent transactions anyway).
type Cache struct {
	mu             sync.Mutex
	overlays       *sortedMap
	overlayByBatch map[int64]map[document.Key]struct{}
}

// New returns an empty in-memory overlay cache.
func New() *Cache {
	return &Cache{
		overlays:       newSortedMap(),
		overlayByBatch: make(map[int64]map[document.Key]struct{}),
	}
}

// GetOverlay implements overlay.Cache.
func (c *Cache) GetOverlay(key document.Key) (overlay.Overlay, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.overlays.get(key)
	return o, ok, nil
}

// SaveOverlays implements overlay.Cache. Each entry replaces any prior
// overlay for its key, removing that key from the old overlay's batch
// bucket before inserting it into the new one so invariant (3) in
// spec.md §3 ("removing a batch id removes exactly the overlays whose
// largestBatchId equals that batch id") holds after subsequent saves.
func (c *Cache) SaveOverlays(largestBatchID int64, mutations map[document.Key]mutation.Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, m := range mutations {
		if m == nil {
			continue
		}
		c.saveOverlayLocked(largestBatchID, key, m)
	}
	return nil
}

func (c *Cache) saveOverlayLocked(largestBatchID int64, key document.Key, m mutation.Mutation) {
	if prev, ok := c.overlays.get(key); ok {
		c.removeFromBatchIndexLocked(prev.LargestBatchID(), key)
	}
	c.overlays.insert(key, overlay.New(largestBatchID, m))
	bucket, ok := c.overlayByBatch[largestBatchID]
	if !ok {
		bucket = make(map[document.Key]struct{})
		c.overlayByBatch[largestBatchID] = bucket
	}
	bucket[key] = struct{}{}
}

func (c *Cache) removeFromBatchIndexLocked(batchID int64, key document.Key) {
	bucket, ok := c.overlayByBatch[batchID]
	if !ok {
		return
	}
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(c.overlayByBatch, batchID)
	}
}

// RemoveOverlaysForBatchID implements overlay.Cache.
func (c *Cache) RemoveOverlaysForBatchID(batchID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.overlayByBatch[batchID]
	if !ok {
		return nil
	}
	delete(c.overlayByBatch, batchID)
	for key := range bucket {
		c.overlays.remove(key)
	}
	return nil
}

// GetOverlaysForCollection implements overlay.Cache. It seeks the sorted
// map from the synthetic key collection.Child(""), walks ascending, and
// stops as soon as the iterated key is no longer prefixed by collection.
func (c *Cache) GetOverlaysForCollection(collection document.ResourcePath, sinceBatchID int64) (map[document.Key]overlay.Overlay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[document.Key]overlay.Overlay)
	start := document.NewKey(collection.Child(""))
	c.overlays.ascendFrom(start, func(key document.Key, o overlay.Overlay) bool {
		if !collection.IsPrefixOf(key.Path()) {
			return false
		}
		if key.Path().Len() != collection.Len()+1 {
			return true // descendant of a sub-collection: skip, keep walking
		}
		if o.LargestBatchID() > sinceBatchID {
			result[key] = o
		}
		return true
	})
	return result, nil
}

// GetOverlaysForCollectionGroup implements overlay.Cache. It scans every
// overlay, buckets qualifying ones by batch id, then drains the buckets
// in ascending batch-id order, stopping after the first bucket that
// pushes the result to at least count entries — so the result always
// holds whole batches, per spec.md §4.3.1 and the open question in §9.
func (c *Cache) GetOverlaysForCollectionGroup(collectionGroup string, sinceBatchID int64, count int) (map[document.Key]overlay.Overlay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byBatch := make(map[int64]map[document.Key]overlay.Overlay)
	c.overlays.ascend(func(key document.Key, o overlay.Overlay) bool {
		group, ok := key.CollectionGroup()
		if !ok || group != collectionGroup {
			return true
		}
		if o.LargestBatchID() <= sinceBatchID {
			return true
		}
		bucket, ok := byBatch[o.LargestBatchID()]
		if !ok {
			bucket = make(map[document.Key]overlay.Overlay)
			byBatch[o.LargestBatchID()] = bucket
		}
		bucket[key] = o
		return true
	})

	batchIDs := make([]int64, 0, len(byBatch))
	for id := range byBatch {
		batchIDs = append(batchIDs, id)
	}
	sort.Slice(batchIDs, func(i, j int) bool { return batchIDs[i] < batchIDs[j] })

	result := make(map[document.Key]overlay.Overlay)
	for _, id := range batchIDs {
		for key, o := range byBatch[id] {
			result[key] = o
		}
		if len(result) >= count {
			break
		}
	}
	return result, nil
}

// Len returns the number of overlays currently cached. Exposed for tests
// and for a stats endpoint, not part of the overlay.Cache contract.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlays.len()
}

// NewestKey returns the key that sorts last among cached overlays, used
// by a stats endpoint to report the high-water mark of the key space
// without walking the whole map in ascending order. Exposed for tests
// and diagnostics, not part of the overlay.Cache contract.
func (c *Cache) NewestKey() (document.Key, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var newest document.Key
	found := false
	c.overlays.descend(func(key document.Key, _ overlay.Overlay) bool {
		newest = key
		found = true
		return false
	})
	return newest, found
}
