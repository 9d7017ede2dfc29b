// Package mutation defines the closed set of local-write variants the
// overlay cache and local documents view apply to base documents.
package mutation

import (
	"time"

	"docoverlay/document"
)

// Precondition gates whether a PatchMutation applies.
type Precondition int

const (
	// PreconditionNone means the mutation applies unconditionally.
	PreconditionNone Precondition = iota
	// PreconditionExists requires the base document to exist.
	PreconditionExists
	// PreconditionNotExists requires the base document to not exist.
	PreconditionNotExists
)

// Met reports whether the precondition holds against base.
func (p Precondition) Met(base *document.Document) bool {
	switch p {
	case PreconditionExists:
		return base.Exists()
	case PreconditionNotExists:
		return !base.Exists()
	default:
		return true
	}
}

// Mutation is opaque to the overlay cache beyond its target key, its
// effect on a base document, and whether it is a PatchMutation.
type Mutation interface {
	// Key returns the document this mutation targets.
	Key() document.Key
	// ApplyToLocalView applies the mutation to base (which may be nil or
	// invalid) and returns the resulting local view, timestamped now.
	ApplyToLocalView(base *document.Document, now time.Time) *document.Document
	// ApplyToLocalViewWithFieldMask applies the mutation to base in place
	// and returns the union of mask with the fields this mutation wrote,
	// or AllFields for a mutation that replaces or removes the whole
	// document (Set, Delete). Used while folding a batch sequence over a document during
	// recalculation.
	ApplyToLocalViewWithFieldMask(base *document.Document, mask document.FieldMask) document.FieldMask
	// IsPatch reports whether this is a PatchMutation, whose effect
	// depends on the base document's existence.
	IsPatch() bool
}
