package boltcache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// groupFilters is a latency optimization over GetOverlaysForCollectionGroup:
// one bloom filter per (userID, collectionGroup), populated as overlays are
// saved, consulted before a range scan is issued. A negative test proves
// the group currently has no overlays and lets the cache skip the bbolt
// scan entirely; a positive test (including every false positive) falls
// through to the real scan, so this can never change an answer — only
// spec.md §4.3.2's indexed scan does that. Mirrors the teacher's
// bloom.go: sync.Map of filters keyed by name, double-checked-locking
// creation.
type groupFilters struct {
	mu               sync.Mutex
	filters          sync.Map // string (userID+"\x00"+group) -> *bloom.BloomFilter
	expectedOverlays uint
	falsePositive    float64
}

func newGroupFilters(expectedOverlays uint, falsePositive float64) *groupFilters {
	return &groupFilters{expectedOverlays: expectedOverlays, falsePositive: falsePositive}
}

func filterKey(userID, group string) string {
	return userID + "\x00" + group
}

func (f *groupFilters) add(userID, group string) {
	key := filterKey(userID, group)
	filter, ok := f.filters.Load(key)
	if !ok {
		f.mu.Lock()
		filter, ok = f.filters.Load(key)
		if !ok {
			filter = bloom.NewWithEstimates(f.expectedOverlays, f.falsePositive)
			f.filters.Store(key, filter)
		}
		f.mu.Unlock()
	}
	filter.(*bloom.BloomFilter).AddString(group)
	// Re-add under the full composite so repeated groups strengthen the
	// same filter rather than a look-alike only ever seeing one Add.
	filter.(*bloom.BloomFilter).AddString(key)
}

// maybeHasOverlays reports whether group might have overlays for userID.
// false is authoritative (no scan needed); true may be a false positive.
func (f *groupFilters) maybeHasOverlays(userID, group string) bool {
	key := filterKey(userID, group)
	filter, ok := f.filters.Load(key)
	if !ok {
		return false
	}
	return filter.(*bloom.BloomFilter).TestString(key)
}

// clear drops the filter for (userID, group) so the next add rebuilds it
// cleanly. Bloom filters don't support deletion of individual members;
// since overlay removal is comparatively rare and the filter is purely
// an optimization, a full rebuild-on-next-write is simpler than tracking
// per-member reference counts.
func (f *groupFilters) clear(userID, group string) {
	f.filters.Delete(filterKey(userID, group))
}
