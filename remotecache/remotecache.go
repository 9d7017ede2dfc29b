// Package remotecache declares the RemoteDocumentCache external
// collaborator contract (spec.md §4.5). The real remote cache — its
// on-disk page management, its schema migration — is out of scope per
// spec.md §1; this package only fixes the interface the local documents
// view requires from it.
package remotecache

import (
	"time"

	"docoverlay/document"
	"docoverlay/query"
)

// Cache is the RemoteDocumentCache external collaborator contract.
type Cache interface {
	// GetEntry returns the remote document at key, or an invalid-document
	// sentinel if the key is absent from the remote cache.
	GetEntry(key document.Key) (*document.Document, error)

	// GetEntries returns the remote documents at keys, keyed by key. Every
	// requested key is present in the result, absent ones mapped to an
	// invalid-document sentinel.
	GetEntries(keys []document.Key) (map[document.Key]*document.Document, error)

	// GetDocumentsMatchingQuery returns every remote document matching q
	// whose read time is at or after sinceReadTime.
	GetDocumentsMatchingQuery(q query.Query, sinceReadTime time.Time) (map[document.Key]*document.Document, error)
}
