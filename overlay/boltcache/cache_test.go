package boltcache

import (
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"docoverlay/document"
	"docoverlay/mutation"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("bolt.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func key(segments ...string) document.Key {
	return document.NewKey(document.NewResourcePath(segments...))
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(openTestDB(t), "user-1", 1000, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// Invariant 1 (spec.md §8): after saveOverlays(b, {k: m}), getOverlay(k)
// returns (b, m).
func TestSaveAndGetOverlay(t *testing.T) {
	c := newTestCache(t)
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
	got, ok := o.Mutation().(*mutation.SetMutation)
	if !ok {
		t.Fatalf("expected a decoded SetMutation, got %T", o.Mutation())
	}
	if got.Fields["age"] != float64(31) {
		t.Fatalf("unexpected decoded mutation fields: %+v", got.Fields)
	}
}

func TestRemoveOverlaysForBatchID(t *testing.T) {
	c := newTestCache(t)
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

func TestSaveOverlaysMovesInvertedIndexEntry(t *testing.T) {
	c := newTestCache(t)
	k := key("users", "alice")

	mustSave(t, c, 2, k, mutation.NewSet(k, map[string]any{"x": 1}))
	mustSave(t, c, 9, k, mutation.NewSet(k, map[string]any{"x": 2}))

	if err := c.RemoveOverlaysForBatchID(2); err != nil {
		t.Fatalf("RemoveOverlaysForBatchID: %v", err)
	}
	if _, ok, _ := c.GetOverlay(k); !ok {
		t.Fatalf("overlay reassigned to batch 9 must survive removing batch 2")
	}
}

// S3 (spec.md §8): collection filter excludes sub-collections.
func TestGetOverlaysForCollectionExcludesSubCollections(t *testing.T) {
	c := newTestCache(t)
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
	c := newTestCache(t)
	a, b, cc := key("rooms", "r1", "messages", "a"), key("rooms", "r1", "messages", "b"), key("rooms", "r2", "messages", "c")
	d, e, f := key("rooms", "r3", "messages", "d"), key("rooms", "r3", "messages", "e"), key("rooms", "r3", "messages", "f")

	mustSave(t, c, 3, a, mutation.NewSet(a, map[string]any{}))
	mustSave(t, c, 3, b, mutation.NewSet(b, map[string]any{}))
	mustSave(t, c, 4, cc, mutation.NewSet(cc, map[string]any{}))
	mustSave(t, c, 5, d, mutation.NewSet(d, map[string]any{}))
	mustSave(t, c, 5, e, mutation.NewSet(e, map[string]any{}))
	mustSave(t, c, 5, f, mutation.NewSet(f, map[string]any{}))

	cases := []struct {
		count int
		want  int
	}{
		{2, 2},
		{3, 3},
		{4, 6},
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

// Users are isolated per spec.md §4.3.2: the userID prefix partitions
// every indexed lookup.
func TestOverlaysAreIsolatedPerUser(t *testing.T) {
	db := openTestDB(t)
	alice, err := New(db, "alice", 1000, 0.01)
	if err != nil {
		t.Fatalf("New(alice): %v", err)
	}
	bob, err := New(db, "bob", 1000, 0.01)
	if err != nil {
		t.Fatalf("New(bob): %v", err)
	}

	k := key("users", "shared")
	mustSave(t, alice, 1, k, mutation.NewSet(k, map[string]any{"owner": "alice"}))

	if _, ok, _ := bob.GetOverlay(k); ok {
		t.Fatalf("bob must not see alice's overlay for the same document key")
	}
	if _, ok, _ := alice.GetOverlay(k); !ok {
		t.Fatalf("alice must see her own overlay")
	}
}

func mustSave(t *testing.T, c *Cache, batchID int64, k document.Key, m mutation.Mutation) {
	t.Helper()
	if err := c.SaveOverlays(batchID, map[document.Key]mutation.Mutation{k: m}); err != nil {
		t.Fatalf("SaveOverlays(%d): %v", batchID, err)
	}
}
