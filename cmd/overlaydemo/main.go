// Command overlaydemo wires the persistent overlay cache and the local
// documents view together over a throwaway bbolt store, runs scenario
// S1 from spec.md §8 end to end, and prints the resulting local view.
// It is a wiring demonstration, not a server: this repository defines
// no CLI or wire protocol (spec.md §6).
package main

import (
	"log"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"docoverlay/document"
	"docoverlay/indexmanager/memindex"
	"docoverlay/internal/config"
	"docoverlay/mutation"
	"docoverlay/mutationqueue/memqueue"
	"docoverlay/overlay/boltcache"
	"docoverlay/remotecache/memremote"

	"docoverlay/localdocs"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg, err := config.Load(env("DOCOVERLAY_CONFIG", "docoverlay.yaml"))
	if err != nil {
		log.Fatalf("overlaydemo: load config: %v", err)
	}

	db, err := bolt.Open(cfg.Store.Path, 0600, &bolt.Options{
		Timeout: time.Duration(cfg.Store.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("overlaydemo: open store: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("overlaydemo: error closing store: %v", err)
		}
	}()

	overlays, err := boltcache.New(db, "", cfg.Bloom.ExpectedOverlaysPerGroup, cfg.Bloom.FalsePositiveRate)
	if err != nil {
		log.Fatalf("overlaydemo: open overlay cache: %v", err)
	}

	remote := memremote.New()
	queue := memqueue.New()
	indexes := memindex.New()
	view := localdocs.New(remote, queue, overlays, indexes)

	// Scenario S1: remote has users/alice = {age: 30}; batch 5 sets
	// {age: 31, city: "NYC"}.
	aliceKey := document.NewKey(document.NewResourcePath("users", "alice"))
	remote.Put(document.NewFoundDocument(aliceKey, time.Now(), map[string]any{"age": 30}))

	batchID := queue.AddBatch(mutation.NewSet(aliceKey, map[string]any{"age": 31, "city": "NYC"}))
	if err := overlays.SaveOverlays(batchID, map[document.Key]mutation.Mutation{
		aliceKey: mutation.NewSet(aliceKey, map[string]any{"age": 31, "city": "NYC"}),
	}); err != nil {
		log.Fatalf("overlaydemo: save overlays: %v", err)
	}

	doc, err := view.GetDocument(aliceKey)
	if err != nil {
		log.Fatalf("overlaydemo: get document: %v", err)
	}
	log.Printf("local view of %s: kind=%v fields=%v", aliceKey, doc.Kind, doc.Fields)
}
