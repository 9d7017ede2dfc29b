package memcache

import (
	"github.com/google/btree"

	"docoverlay/document"
	"docoverlay/overlay"
)

// btreeDegree mirrors the degree launix-de-memcp's storage/index.go uses
// for its delta btree: small enough to keep node splits cheap for an
// in-memory index that is rewritten on every overlay save.
const btreeDegree = 8

// entry is the value type stored in the sorted map: a document key paired
// with its overlay, ordered by the key's path comparator.
type entry struct {
	key     document.Key
	overlay overlay.Overlay
}

func entryLess(a, b entry) bool {
	return a.key.Less(b.key)
}

// sortedMap is the ordered associative container keyed by document.Key
// (component C1 of the design): a B-tree, not a hand-rolled red-black
// tree, since google/btree already gives O(log n) seeks and
// snapshot-consistent ascending/descending iteration.
type sortedMap struct {
	tree *btree.BTreeG[entry]
}

func newSortedMap() *sortedMap {
	return &sortedMap{tree: btree.NewG(btreeDegree, entryLess)}
}

func (m *sortedMap) get(key document.Key) (overlay.Overlay, bool) {
	e, ok := m.tree.Get(entry{key: key})
	if !ok {
		return overlay.Overlay{}, false
	}
	return e.overlay, true
}

func (m *sortedMap) insert(key document.Key, o overlay.Overlay) {
	m.tree.ReplaceOrInsert(entry{key: key, overlay: o})
}

func (m *sortedMap) remove(key document.Key) {
	m.tree.Delete(entry{key: key})
}

func (m *sortedMap) len() int {
	return m.tree.Len()
}

// ascendFrom walks entries in ascending key order starting at the first
// key >= from, calling fn until it returns false or entries are
// exhausted. The btree snapshots its pivot on call, so this is
// snapshot-consistent with the map state at the time ascendFrom is
// invoked.
func (m *sortedMap) ascendFrom(from document.Key, fn func(document.Key, overlay.Overlay) bool) {
	m.tree.AscendGreaterOrEqual(entry{key: from}, func(e entry) bool {
		return fn(e.key, e.overlay)
	})
}

// ascend walks every entry in ascending key order.
func (m *sortedMap) ascend(fn func(document.Key, overlay.Overlay) bool) {
	m.tree.Ascend(func(e entry) bool {
		return fn(e.key, e.overlay)
	})
}

// descend walks every entry in descending key order.
func (m *sortedMap) descend(fn func(document.Key, overlay.Overlay) bool) {
	m.tree.Descend(func(e entry) bool {
		return fn(e.key, e.overlay)
	})
}
