package localdocs

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"docoverlay/document"
	"docoverlay/indexmanager/memindex"
	"docoverlay/mutation"
	"docoverlay/mutationqueue/memqueue"
	"docoverlay/overlay/memcache"
	"docoverlay/query"
	"docoverlay/remotecache/memremote"
)

func key(segments ...string) document.Key {
	return document.NewKey(document.NewResourcePath(segments...))
}

func newTestView() (*View, *memremote.Cache, *memqueue.Queue, *memcache.Cache, *memindex.Manager) {
	remote := memremote.New()
	queue := memqueue.New()
	overlays := memcache.New()
	indexes := memindex.New()
	return New(remote, queue, overlays, indexes), remote, queue, overlays, indexes
}

// S1 (spec.md §8): single set mutation, point read.
func TestGetDocumentSingleSetMutation(t *testing.T) {
	view, remote, _, overlays, _ := newTestView()
	alice := key("users", "alice")

	remote.Put(document.NewFoundDocument(alice, time.Now(), map[string]any{"age": 30}))
	err := overlays.SaveOverlays(5, map[document.Key]mutation.Mutation{
		alice: mutation.NewSet(alice, map[string]any{"age": 31, "city": "NYC"}),
	})
	if err != nil {
		t.Fatalf("SaveOverlays: %v", err)
	}

	doc, err := view.GetDocument(alice)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Fields["age"] != 31 || doc.Fields["city"] != "NYC" {
		t.Fatalf("unexpected local view: %+v", doc.Fields)
	}
}

// S2 (spec.md §8): a patch mutation invalidated by a subsequent remote
// change must be recalculated by computeViews via existenceStateChanged.
func TestComputeViewsRecalculatesOnExistenceStateChange(t *testing.T) {
	view, remote, queue, overlays, _ := newTestView()
	bob := key("users", "bob")

	batchID := queue.AddBatch(mutation.NewPatch(bob, map[string]any{"city": "LA"}, mutation.PreconditionExists))
	if err := overlays.SaveOverlays(batchID, map[document.Key]mutation.Mutation{
		bob: mutation.NewPatch(bob, map[string]any{"city": "LA"}, mutation.PreconditionExists),
	}); err != nil {
		t.Fatalf("SaveOverlays: %v", err)
	}

	// Remote now delivers users/bob = {name: "Bob"}.
	remote.Put(document.NewFoundDocument(bob, time.Now(), map[string]any{"name": "Bob"}))
	docs := map[document.Key]*document.Document{
		bob: document.NewFoundDocument(bob, time.Now(), map[string]any{"name": "Bob"}),
	}
	changed := map[document.Key]struct{}{bob: {}}

	result, err := view.GetLocalViewOfDocuments(docs, changed)
	if err != nil {
		t.Fatalf("GetLocalViewOfDocuments: %v", err)
	}

	got := result[bob]
	if got.Fields["name"] != "Bob" || got.Fields["city"] != "LA" {
		t.Fatalf("expected recalculated overlay to apply the patch, got %+v", got.Fields)
	}

	o, ok, err := overlays.GetOverlay(bob)
	if err != nil || !ok {
		t.Fatalf("expected an overlay to remain for bob: ok=%v err=%v", ok, err)
	}
	if o.LargestBatchID() != batchID {
		t.Fatalf("LargestBatchID() = %d, want %d", o.LargestBatchID(), batchID)
	}
}

// S5 (spec.md §8): recalculation picks the highest contributing batch id.
func TestRecalculateAndSaveOverlaysPicksHighestBatchID(t *testing.T) {
	view, _, queue, overlays, _ := newTestView()
	k := key("users", "carol")

	queue.AddBatch(mutation.NewPatch(k, map[string]any{"a": 1}, mutation.PreconditionNone))
	queue.AddBatch(mutation.NewPatch(k, map[string]any{"b": 2}, mutation.PreconditionNone))
	id3 := queue.AddBatch(mutation.NewPatch(k, map[string]any{"c": 3}, mutation.PreconditionNone))

	docs := map[document.Key]*document.Document{
		k: document.NewFoundDocument(k, time.Now(), map[string]any{}),
	}
	if err := view.RecalculateAndSaveOverlays(docs); err != nil {
		t.Fatalf("RecalculateAndSaveOverlays: %v", err)
	}

	o, ok, err := overlays.GetOverlay(k)
	if err != nil || !ok {
		t.Fatalf("expected an overlay for %s: ok=%v err=%v", k, ok, err)
	}
	if o.LargestBatchID() != id3 {
		t.Fatalf("LargestBatchID() = %d, want %d (the highest contributing batch)", o.LargestBatchID(), id3)
	}
}

// A Set mutation recalculated into an overlay must not leak fields from
// the remote base document: its mask is AllFields, not the set of field
// paths it writes, so CalculateOverlay must emit a SetMutation rather
// than a Patch that only covers those fields.
func TestRecalculateAndSaveOverlaysDoesNotLeakBaseFieldsThroughSet(t *testing.T) {
	view, remote, queue, overlays, _ := newTestView()
	alice := key("users", "alice")

	remote.Put(document.NewFoundDocument(alice, time.Now(), map[string]any{"age": 30}))
	queue.AddBatch(mutation.NewSet(alice, map[string]any{"name": "Bob"}))

	if err := view.RecalculateAndSaveOverlaysForDocumentKeys([]document.Key{alice}); err != nil {
		t.Fatalf("RecalculateAndSaveOverlaysForDocumentKeys: %v", err)
	}

	o, ok, err := overlays.GetOverlay(alice)
	if err != nil || !ok {
		t.Fatalf("expected an overlay for alice: ok=%v err=%v", ok, err)
	}
	if _, ok := o.Mutation().(*mutation.SetMutation); !ok {
		t.Fatalf("expected a recalculated SetMutation, got %T", o.Mutation())
	}

	doc, err := view.GetDocument(alice)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "Bob"}, doc.Fields); diff != "" {
		t.Fatalf("local view must not leak the remote base document's fields (-want +got):\n%s", diff)
	}
}

// Invariant 6 (spec.md §8): computeViews is idempotent.
func TestGetLocalViewOfDocumentsIsIdempotent(t *testing.T) {
	view, remote, _, overlays, _ := newTestView()
	alice := key("users", "alice")

	remote.Put(document.NewFoundDocument(alice, time.Now(), map[string]any{"age": 30}))
	if err := overlays.SaveOverlays(1, map[document.Key]mutation.Mutation{
		alice: mutation.NewSet(alice, map[string]any{"age": 31}),
	}); err != nil {
		t.Fatalf("SaveOverlays: %v", err)
	}

	docsFor := func() map[document.Key]*document.Document {
		return map[document.Key]*document.Document{
			alice: document.NewFoundDocument(alice, time.Now(), map[string]any{"age": 30}),
		}
	}

	first, err := view.GetLocalViewOfDocuments(docsFor(), nil)
	if err != nil {
		t.Fatalf("GetLocalViewOfDocuments (1st): %v", err)
	}
	second, err := view.GetLocalViewOfDocuments(docsFor(), nil)
	if err != nil {
		t.Fatalf("GetLocalViewOfDocuments (2nd): %v", err)
	}

	if diff := cmp.Diff(first[alice].Fields, second[alice].Fields); diff != "" {
		t.Fatalf("computeViews must be idempotent (-first +second):\n%s", diff)
	}
}

// S6 (spec.md §8): query match via overlay on missing remote.
func TestGetDocumentsMatchingQueryMatchesViaOverlayOnMissingRemote(t *testing.T) {
	view, _, _, overlays, _ := newTestView()
	x := key("messages", "x")

	if err := overlays.SaveOverlays(4, map[document.Key]mutation.Mutation{
		x: mutation.NewSet(x, map[string]any{"author": "alice", "body": "hi"}),
	}); err != nil {
		t.Fatalf("SaveOverlays: %v", err)
	}

	q := query.NewCollectionQuery(document.NewResourcePath("messages"), query.Filter{
		Field: "author", Op: query.OpEqual, Value: "alice",
	})
	offset := QueryOffset{LargestBatchID: 0}

	got, err := view.GetDocumentsMatchingQuery(q, offset)
	if err != nil {
		t.Fatalf("GetDocumentsMatchingQuery: %v", err)
	}
	doc, ok := got[x]
	if !ok {
		t.Fatalf("expected messages/x in query result, got %v", got)
	}
	if doc.Fields["body"] != "hi" {
		t.Fatalf("unexpected overlaid document: %+v", doc.Fields)
	}
}

// Collection-group queries delegate to the index manager for parent
// collections and union the per-parent results.
func TestGetDocumentsMatchingQueryCollectionGroup(t *testing.T) {
	view, _, _, overlays, indexes := newTestView()
	indexes.AddCollectionParent("messages", document.NewResourcePath("rooms", "r1"))
	indexes.AddCollectionParent("messages", document.NewResourcePath("rooms", "r2"))

	m1 := key("rooms", "r1", "messages", "m1")
	m2 := key("rooms", "r2", "messages", "m2")

	if err := overlays.SaveOverlays(1, map[document.Key]mutation.Mutation{
		m1: mutation.NewSet(m1, map[string]any{"author": "alice"}),
		m2: mutation.NewSet(m2, map[string]any{"author": "bob"}),
	}); err != nil {
		t.Fatalf("SaveOverlays: %v", err)
	}

	q := query.NewCollectionGroupQuery("messages", query.Filter{Field: "author", Op: query.OpEqual, Value: "alice"})
	got, err := view.GetDocumentsMatchingQuery(q, QueryOffset{})
	if err != nil {
		t.Fatalf("GetDocumentsMatchingQuery: %v", err)
	}
	if _, ok := got[m1]; !ok || len(got) != 1 {
		t.Fatalf("expected exactly rooms/r1/messages/m1 in result, got %v", got)
	}
}
