package mutation

import "docoverlay/document"

// CalculateOverlay derives a single mutation equivalent to the composed
// effect of a mutation-batch sequence on doc, given the field mask that
// sequence wrote. doc is the post-application document (it has already
// had every batch's ApplyToLocalViewWithFieldMask folded into it in
// place); mask records which fields any of those batches touched, or is
// AllFields if a Set or Delete made the whole document's state known.
//
// A mask of AllFields must yield a SetMutation, not a Patch limited to
// whatever fields happen to be in doc: a Patch only ever writes the
// fields in its mask, so folding one in for a batch sequence whose net
// effect is a full overwrite would silently let the remote base
// document's other fields leak back into the local view when the
// overlay is next applied.
func CalculateOverlay(doc *document.Document, mask document.FieldMask) Mutation {
	if !doc.Exists() {
		return NewDelete(doc.Key)
	}
	if mask.IsAll() {
		return NewSet(doc.Key, doc.Fields)
	}
	values := make(map[string]any, len(mask.Fields()))
	for _, f := range mask.Fields() {
		if v, ok := doc.Fields[f]; ok {
			values[f] = v
		}
	}
	return NewPatch(doc.Key, values, PreconditionNone)
}
