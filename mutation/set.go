package mutation

import (
	"time"

	"docoverlay/document"
)

// SetMutation replaces the entire document with Fields.
type SetMutation struct {
	key    document.Key
	Fields map[string]any
}

// NewSet builds a SetMutation targeting key with the given fields.
func NewSet(key document.Key, fields map[string]any) *SetMutation {
	return &SetMutation{key: key, Fields: fields}
}

func (m *SetMutation) Key() document.Key { return m.key }

func (m *SetMutation) IsPatch() bool { return false }

func (m *SetMutation) ApplyToLocalView(base *document.Document, now time.Time) *document.Document {
	out := document.NewFoundDocument(m.key, now, m.Fields)
	out.HasLocalMutations = true
	return out
}

// ApplyToLocalViewWithFieldMask replaces base's fields entirely, so the
// mask it hands back is AllFields rather than a union of the fields m
// writes: a set mutation is not bounded by any field list, and any
// fields a prior batch in the sequence wrote no longer matter.
func (m *SetMutation) ApplyToLocalViewWithFieldMask(base *document.Document, mask document.FieldMask) document.FieldMask {
	base.Kind = document.KindFoundDocument
	base.Fields = cloneMap(m.Fields)
	base.HasLocalMutations = true
	return document.AllFields()
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
