package mutation

import (
	"time"

	"docoverlay/document"
)

// PatchMutation writes a set of field paths, gated by Precondition. Its
// effect depends on the base document's existence, which is why the
// overlay cache and local documents view must special-case it.
type PatchMutation struct {
	key          document.Key
	Values       map[string]any
	Mask         document.FieldMask
	Precondition Precondition
}

// NewPatch builds a PatchMutation targeting key, writing values whose keys
// form the field mask, gated by precondition.
func NewPatch(key document.Key, values map[string]any, precondition Precondition) *PatchMutation {
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	mask := document.NewFieldMask(fields...)
	return &PatchMutation{key: key, Values: values, Mask: mask, Precondition: precondition}
}

func (m *PatchMutation) Key() document.Key { return m.key }

func (m *PatchMutation) IsPatch() bool { return true }

func (m *PatchMutation) ApplyToLocalView(base *document.Document, now time.Time) *document.Document {
	out := base.Clone()
	if out == nil {
		out = document.NewInvalidDocument(m.key)
	}
	if !m.Precondition.Met(out) {
		// Precondition mismatch is not an error: the patch simply no-ops.
		return out
	}
	if out.Kind != document.KindFoundDocument {
		out.Kind = document.KindFoundDocument
		out.Fields = map[string]any{}
	}
	for f, v := range m.Values {
		out.Fields[f] = v
	}
	out.ReadTime = now
	out.HasLocalMutations = true
	return out
}

func (m *PatchMutation) ApplyToLocalViewWithFieldMask(base *document.Document, mask document.FieldMask) document.FieldMask {
	if !m.Precondition.Met(base) {
		return mask
	}
	if base.Kind != document.KindFoundDocument {
		base.Kind = document.KindFoundDocument
		base.Fields = map[string]any{}
	}
	out := mask
	for f, v := range m.Values {
		base.Fields[f] = v
		out = out.Add(f)
	}
	base.HasLocalMutations = true
	return out
}
