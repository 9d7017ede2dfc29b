// Package memremote is an in-memory stand-in for the real remote
// document cache, used by local documents view tests and by the demo
// wiring in cmd/. On-disk page management and schema migration are out
// of scope for this repository (spec.md §1); this type only serves
// documents a test has pre-loaded into it.
package memremote

import (
	"sync"
	"time"

	"docoverlay/document"
	"docoverlay/query"
)

// Cache is a fixed-content snapshot of remote documents, keyed by
// document key.
type Cache struct {
	mu   sync.Mutex
	docs map[document.Key]*document.Document
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{docs: make(map[document.Key]*document.Document)}
}

// Put installs doc as the remote entry for its key, overwriting any
// prior entry.
func (c *Cache) Put(doc *document.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[doc.Key] = doc
}

// GetEntry implements remotecache.Cache.
func (c *Cache) GetEntry(key document.Key) (*document.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc, ok := c.docs[key]; ok {
		return doc.Clone(), nil
	}
	return document.NewInvalidDocument(key), nil
}

// GetEntries implements remotecache.Cache.
func (c *Cache) GetEntries(keys []document.Key) (map[document.Key]*document.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[document.Key]*document.Document, len(keys))
	for _, k := range keys {
		if doc, ok := c.docs[k]; ok {
			result[k] = doc.Clone()
		} else {
			result[k] = document.NewInvalidDocument(k)
		}
	}
	return result, nil
}

// GetDocumentsMatchingQuery implements remotecache.Cache: a full scan of
// every held document that is an immediate child of q.Path, filtered by
// read time and query.Matches.
func (c *Cache) GetDocumentsMatchingQuery(q query.Query, sinceReadTime time.Time) (map[document.Key]*document.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[document.Key]*document.Document)
	for k, doc := range c.docs {
		if !k.IsImmediateChildOf(q.Path) {
			continue
		}
		if doc.ReadTime.Before(sinceReadTime) {
			continue
		}
		if query.Matches(q, doc) {
			result[k] = doc.Clone()
		}
	}
	return result, nil
}
