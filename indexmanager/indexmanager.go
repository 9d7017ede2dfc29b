// Package indexmanager declares the IndexManager external collaborator
// contract (spec.md §4.5). The real index manager's on-disk index
// maintenance is out of scope per spec.md §1; this package only fixes
// the interface the local documents view's collection-group queries
// require from it.
package indexmanager

import "docoverlay/document"

// Manager is the IndexManager external collaborator contract.
type Manager interface {
	// GetCollectionParents returns the parent path (a document, or the
	// root) of every collection named collectionGroup that is known to
	// exist.
	GetCollectionParents(collectionGroup string) []document.ResourcePath
}
