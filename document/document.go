package document

import "time"

// Kind distinguishes a found document from one the local view only knows
// as absent or not yet resolved.
type Kind int

const (
	// KindInvalid marks a document with no known data: either the remote
	// cache has never seen it, or it is a synthetic base for a non-patch
	// overlay that is about to overwrite it entirely.
	KindInvalid Kind = iota
	// KindNoDocument marks a document the remote cache has confirmed does
	// not exist as of ReadTime.
	KindNoDocument
	// KindFoundDocument marks a document with known field data.
	KindFoundDocument
)

// Document is the mutable value local reads and writes operate on: a
// remote snapshot, a mutation's effect on one, or both composed.
type Document struct {
	Key      Key
	Kind     Kind
	Fields   map[string]any
	ReadTime time.Time
	// HasLocalMutations is set once some overlay's mutation has been
	// applied to this value, so callers can tell a local-only write
	// apart from a pure remote snapshot.
	HasLocalMutations bool
}

// NewInvalidDocument returns a document with no known data for key.
func NewInvalidDocument(key Key) *Document {
	return &Document{Key: key, Kind: KindInvalid, Fields: map[string]any{}}
}

// NewNoDocument returns a document confirmed absent as of readTime.
func NewNoDocument(key Key, readTime time.Time) *Document {
	return &Document{Key: key, Kind: KindNoDocument, Fields: map[string]any{}, ReadTime: readTime}
}

// NewFoundDocument returns a document with the given field data.
func NewFoundDocument(key Key, readTime time.Time, fields map[string]any) *Document {
	return &Document{Key: key, Kind: KindFoundDocument, Fields: cloneFields(fields), ReadTime: readTime}
}

// Exists reports whether the document is known to exist.
func (d *Document) Exists() bool {
	return d != nil && d.Kind == KindFoundDocument
}

// Clone returns a deep-enough copy safe for independent mutation.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{
		Key:               d.Key,
		Kind:              d.Kind,
		Fields:            cloneFields(d.Fields),
		ReadTime:          d.ReadTime,
		HasLocalMutations: d.HasLocalMutations,
	}
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
