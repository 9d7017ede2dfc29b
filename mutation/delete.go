package mutation

import (
	"time"

	"docoverlay/document"
)

// DeleteMutation tombstones the document.
type DeleteMutation struct {
	key document.Key
}

// NewDelete builds a DeleteMutation targeting key.
func NewDelete(key document.Key) *DeleteMutation {
	return &DeleteMutation{key: key}
}

func (m *DeleteMutation) Key() document.Key { return m.key }

func (m *DeleteMutation) IsPatch() bool { return false }

func (m *DeleteMutation) ApplyToLocalView(base *document.Document, now time.Time) *document.Document {
	out := document.NewNoDocument(m.key, now)
	out.HasLocalMutations = true
	return out
}

// ApplyToLocalViewWithFieldMask tombstones base and hands back AllFields:
// a delete makes the whole document's state known (absent), the same as
// a set makes the whole document's state known (its new field values).
func (m *DeleteMutation) ApplyToLocalViewWithFieldMask(base *document.Document, mask document.FieldMask) document.FieldMask {
	base.Kind = document.KindNoDocument
	base.Fields = map[string]any{}
	base.HasLocalMutations = true
	return document.AllFields()
}
