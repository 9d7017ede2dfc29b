package memcache

import (
	"testing"

	"docoverlay/document"
	"docoverlay/mutation"
)

func key(segments ...string) document.Key {
	return document.NewKey(document.NewResourcePath(segments...))
}

// Invariant 1 (spec.md §8): after saveOverlays(b, {k: m}), getOverlay(k)
// returns (b, m).
func TestSaveAndGetOverlay(t *testing.T) {
	c := New()
	k := key("users", "alice")
	m := mutation.NewSet(k, map[string]any{"age": 31})

	if err := c.SaveOverlays(5, map[document.Key]mutation.Mutation{k: m}); err != nil {
		t.Fatalf("SaveOverlays: %v", err)
	}

	o, ok, err := c.GetOverlay(k)
	if err != nil || !ok {
		t.Fatalf("GetOverlay: ok=%v err=%v", ok, err)
	}
	if o.LargestBatchID() != 5 {
		t.Fatalf("LargestBatchID() = %d, want 5", o.LargestBatchID())
	}
}

// Invariant 2/3 (spec.md §8): removeOverlaysForBatchId(b) removes exactly
// the overlays indexed under b.
func TestRemoveOverlaysForBatchID(t *testing.T) {
	c := New()
	a, b := key("users", "alice"), key("users", "bob")

	mustSave(t, c, 1, a, mutation.NewSet(a, map[string]any{"x": 1}))
	mustSave(t, c, 2, b, mutation.NewSet(b, map[string]any{"y": 2}))

	if err := c.RemoveOverlaysForBatchID(1); err != nil {
		t.Fatalf("RemoveOverlaysForBatchID: %v", err)
	}

	if _, ok, _ := c.GetOverlay(a); ok {
		t.Fatalf("overlay for batch 1 must be removed")
	}
	if _, ok, _ := c.GetOverlay(b); !ok {
		t.Fatalf("overlay for batch 2 must remain")
	}
}

// S5 (spec.md §8): re-saving a key under a new batch id removes it from
// the old batch's inverted index bucket.
func TestSaveOverlaysMovesInvertedIndexEntry(t *testing.T) {
	c := New()
	k := key("users", "alice")

	mustSave(t, c, 2, k, mutation.NewSet(k, map[string]any{"x": 1}))
	mustSave(t, c, 9, k, mutation.NewSet(k, map[string]any{"x": 2}))

	if err := c.RemoveOverlaysForBatchID(2); err != nil {
		t.Fatalf("RemoveOverlaysForBatchID: %v", err)
	}
	if _, ok, _ := c.GetOverlay(k); !ok {
		t.Fatalf("overlay reassigned to batch 9 must survive removing batch 2")
	}

	if err := c.RemoveOverlaysForBatchID(9); err != nil {
		t.Fatalf("RemoveOverlaysForBatchID: %v", err)
	}
	if _, ok, _ := c.GetOverlay(k); ok {
		t.Fatalf("overlay must be gone once its current batch (9) is removed")
	}
}

// S3 (spec.md §8): collection filter excludes sub-collections.
func TestGetOverlaysForCollectionExcludesSubCollections(t *testing.T) {
	c := New()
	r1 := key("rooms", "r1")
	m1 := key("rooms", "r1", "messages", "m1")

	mustSave(t, c, 1, r1, mutation.NewSet(r1, map[string]any{"x": 1}))
	mustSave(t, c, 1, m1, mutation.NewSet(m1, map[string]any{"x": 1}))

	got, err := c.GetOverlaysForCollection(document.NewResourcePath("rooms"), -1)
	if err != nil {
		t.Fatalf("GetOverlaysForCollection: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d overlays, want 1", len(got))
	}
	if _, ok := got[r1]; !ok {
		t.Fatalf("expected rooms/r1 in result")
	}
}

// S4 (spec.md §8): collection-group scans return whole batches.
func TestGetOverlaysForCollectionGroupReturnsWholeBatches(t *testing.T) {
	c := New()
	a, b, cc := key("rooms", "r1", "messages", "a"), key("rooms", "r1", "messages", "b"), key("rooms", "r2", "messages", "c")
	d, e, f := key("rooms", "r3", "messages", "d"), key("rooms", "r3", "messages", "e"), key("rooms", "r3", "messages", "f")

	mustSave(t, c, 3, a, mutation.NewSet(a, nil))
	mustSave(t, c, 3, b, mutation.NewSet(b, nil))
	mustSave(t, c, 4, cc, mutation.NewSet(cc, nil))
	mustSave(t, c, 5, d, mutation.NewSet(d, nil))
	mustSave(t, c, 5, e, mutation.NewSet(e, nil))
	mustSave(t, c, 5, f, mutation.NewSet(f, nil))

	cases := []struct {
		count int
		want  int
	}{
		{2, 2}, // batch 3 only: {a, b}
		{3, 3}, // batches 3+4: {a, b, c}
		{4, 6}, // batches 3+4+5: all six
	}
	for _, tc := range cases {
		got, err := c.GetOverlaysForCollectionGroup("messages", 2, tc.count)
		if err != nil {
			t.Fatalf("GetOverlaysForCollectionGroup(count=%d): %v", tc.count, err)
		}
		if len(got) != tc.want {
			t.Fatalf("count=%d: got %d overlays, want %d", tc.count, len(got), tc.want)
		}
	}
}

func TestNewestKeyReturnsLastInSortOrder(t *testing.T) {
	c := New()

	if _, ok := c.NewestKey(); ok {
		t.Fatalf("NewestKey on an empty cache must report ok=false")
	}

	alice := key("users", "alice")
	bob := key("users", "bob")
	carol := key("users", "carol")

	mustSave(t, c, 1, alice, mutation.NewSet(alice, nil))
	mustSave(t, c, 1, carol, mutation.NewSet(carol, nil))
	mustSave(t, c, 1, bob, mutation.NewSet(bob, nil))

	got, ok := c.NewestKey()
	if !ok || !got.Equal(carol) {
		t.Fatalf("NewestKey() = %v, ok=%v, want %v", got, ok, carol)
	}
}

func mustSave(t *testing.T, c *Cache, batchID int64, k document.Key, m mutation.Mutation) {
	t.Helper()
	if err := c.SaveOverlays(batchID, map[document.Key]mutation.Mutation{k: m}); err != nil {
		t.Fatalf("SaveOverlays(%d): %v", batchID, err)
	}
}
