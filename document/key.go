package document

// Key is the canonical path to a document. Document paths have even
// length: a root-level document has two segments (its collection and its
// id), a nested one has four (collection/id/subcollection/id), and so
// on — collections are always the odd-length paths one segment shorter.
type Key struct {
	path ResourcePath
}

// NewKey builds a Key from a document ResourcePath.
func NewKey(path ResourcePath) Key {
	return Key{path: path}
}

// KeyFromString parses a slash-separated document path.
func KeyFromString(s string) Key {
	return Key{path: ParsePath(s)}
}

// Path returns the document's path.
func (k Key) Path() ResourcePath {
	return k.path
}

// CollectionPath returns the path of the collection that directly contains
// this document (the document's path with its last segment dropped).
func (k Key) CollectionPath() (ResourcePath, bool) {
	return k.path.Parent()
}

// CollectionGroup returns the last collection-segment name of the
// document's path: for "rooms/r1/messages/m1" that is "messages". A
// single-segment path has no collection segment above it and so has no
// collection group.
func (k Key) CollectionGroup() (string, bool) {
	coll, ok := k.CollectionPath()
	if !ok || coll.Len() == 0 {
		return "", false
	}
	return coll.LastSegment(), true
}

// IsImmediateChildOf reports whether k names a document directly inside
// collection (path length exactly collection.Len()+1), excluding
// descendants inside sub-collections.
func (k Key) IsImmediateChildOf(collection ResourcePath) bool {
	if k.path.Len() != collection.Len()+1 {
		return false
	}
	return collection.IsPrefixOf(k.path)
}

// Equal reports whether k and other name the same document.
func (k Key) Equal(other Key) bool {
	return k.path.Equal(other.path)
}

// Compare orders keys by their path's component-wise comparator.
func (k Key) Compare(other Key) int {
	return k.path.Compare(other.path)
}

// Less reports whether k sorts strictly before other.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// String renders the key as a slash-separated path.
func (k Key) String() string {
	return k.path.String()
}
