package mutation

import (
	"time"

	"docoverlay/document"
)

// VerifyMutation asserts a precondition and otherwise never changes the
// document. The mutation queue uses it to pin a read assumption inside a
// write batch (e.g. a transform that must observe a specific prior
// value); the overlay cache treats it like any other non-patch variant,
// since its effect never depends on the base document once the
// precondition is known to have been checked by the batch itself.
type VerifyMutation struct {
	key document.Key
}

// NewVerify builds a VerifyMutation targeting key.
func NewVerify(key document.Key) *VerifyMutation {
	return &VerifyMutation{key: key}
}

func (m *VerifyMutation) Key() document.Key { return m.key }

func (m *VerifyMutation) IsPatch() bool { return false }

func (m *VerifyMutation) ApplyToLocalView(base *document.Document, now time.Time) *document.Document {
	return base.Clone()
}

func (m *VerifyMutation) ApplyToLocalViewWithFieldMask(base *document.Document, mask document.FieldMask) document.FieldMask {
	return mask
}
