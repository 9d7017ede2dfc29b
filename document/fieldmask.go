package document

// FieldMask tracks which fields of a document a composed mutation
// sequence has written while recomputing an overlay. The zero value is
// the empty mask (no fields written yet). It is nullable in spirit: once
// a Set or Delete mutation folds into the sequence, the effective mask
// is no longer any particular set of field paths but the whole document
// (the prior fields are replaced or gone entirely), so AllFields is a
// distinguished mask standing for "the whole document is now known"
// rather than a literal list of paths — mirroring calculateOverlayMutation's
// need to tell "some fields changed" apart from "the whole document
// changed" so it can emit a SetMutation instead of a field-limited Patch.
type FieldMask struct {
	all    bool
	fields map[string]struct{}
}

// NewFieldMask builds a FieldMask from the given field paths.
func NewFieldMask(fields ...string) FieldMask {
	m := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return FieldMask{fields: m}
}

// AllFields returns the distinguished mask standing for the entire
// document rather than any particular set of field paths.
func AllFields() FieldMask {
	return FieldMask{all: true}
}

// IsAll reports whether m stands for the entire document.
func (m FieldMask) IsAll() bool {
	return m.all
}

// Contains reports whether field is in the mask. The all mask contains
// every field.
func (m FieldMask) Contains(field string) bool {
	if m.all {
		return true
	}
	_, ok := m.fields[field]
	return ok
}

// Add inserts field into the mask, creating it if nil, and returns the
// (possibly newly allocated) mask. The all mask is returned unchanged:
// it already covers every field.
func (m FieldMask) Add(field string) FieldMask {
	if m.all {
		return m
	}
	fields := m.fields
	if fields == nil {
		fields = make(map[string]struct{}, 1)
	}
	fields[field] = struct{}{}
	return FieldMask{fields: fields}
}

// Union returns a mask containing every field in m or other. If either
// is the all mask, the result is the all mask.
func (m FieldMask) Union(other FieldMask) FieldMask {
	if m.all || other.all {
		return AllFields()
	}
	out := make(map[string]struct{}, len(m.fields)+len(other.fields))
	for f := range m.fields {
		out[f] = struct{}{}
	}
	for f := range other.fields {
		out[f] = struct{}{}
	}
	return FieldMask{fields: out}
}

// Fields returns the mask's field paths as a slice. Order is unspecified.
// Returns nil for the all mask, which has no enumerable field list.
func (m FieldMask) Fields() []string {
	if m.all {
		return nil
	}
	out := make([]string, 0, len(m.fields))
	for f := range m.fields {
		out = append(out, f)
	}
	return out
}
