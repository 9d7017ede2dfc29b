// Package memindex is an in-memory stand-in for the real index manager,
// used by local documents view tests and by the demo wiring in cmd/.
// The real manager's on-disk index maintenance is out of scope for this
// repository (spec.md §1); this type only remembers parents a caller
// registers explicitly.
package memindex

import (
	"sync"

	"docoverlay/document"
)

// Manager is a registered-parents map: for each collection group name,
// the set of parent paths (documents, or the root) known to contain a
// collection with that name.
type Manager struct {
	mu      sync.Mutex
	parents map[string][]document.ResourcePath
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{parents: make(map[string][]document.ResourcePath)}
}

// AddCollectionParent records that parent contains a sub-collection
// named collectionGroup.
func (m *Manager) AddCollectionParent(collectionGroup string, parent document.ResourcePath) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parents[collectionGroup] {
		if p.Equal(parent) {
			return
		}
	}
	m.parents[collectionGroup] = append(m.parents[collectionGroup], parent)
}

// GetCollectionParents implements indexmanager.Manager.
func (m *Manager) GetCollectionParents(collectionGroup string) []document.ResourcePath {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]document.ResourcePath, len(m.parents[collectionGroup]))
	copy(out, m.parents[collectionGroup])
	return out
}
