package boltcache

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
	"rsc.io/ordered"

	"docoverlay/document"
	"docoverlay/docoverlayerr"
	"docoverlay/mutation"
	"docoverlay/mutationcodec"
	"docoverlay/overlay"
)

// Cache is the persistent OverlayCache, scoped to a single user id (the
// empty string for an unauthenticated client, per spec.md §6). It owns no
// durable state beyond the userID and a db handle; every overlay lives
// in the bbolt database passed to New.
type Cache struct {
	db      *bolt.DB
	userID  string
	filters *groupFilters
}

// New opens (creating if needed) the overlay buckets in db and returns a
// Cache scoped to userID. expectedOverlaysPerGroup and falsePositiveRate
// size the per-collection-group bloom filters (internal/config.BloomConfig).
func New(db *bolt.DB, userID string, expectedOverlaysPerGroup uint, falsePositiveRate float64) (*Cache, error) {
	err := db.Update(ensureBuckets)
	if err != nil {
		return nil, docoverlayerr.NewStorageFault("boltcache.New", err)
	}
	c := &Cache{db: db, userID: userID, filters: newGroupFilters(expectedOverlaysPerGroup, falsePositiveRate)}
	// Seed the group filters from overlays already in the store, so a group
	// saved through an earlier Cache is never reported as empty.
	err = db.View(func(tx *bolt.Tx) error {
		prefix := ordered.Encode(userID)
		cur := tx.Bucket(bucketByGroup).Cursor()
		for k, _ := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cur.Next() {
			_, docPath, err := decodeGroupIndexEntry(k)
			if err != nil {
				return &docoverlayerr.CorruptedOverlay{Key: string(k), Err: err}
			}
			if group, ok := document.KeyFromString(docPath).CollectionGroup(); ok {
				c.filters.add(userID, group)
			}
		}
		return nil
	})
	if err != nil {
		return nil, docoverlayerr.NewStorageFault("boltcache.New", err)
	}
	return c, nil
}

// GetOverlay implements overlay.Cache: a point lookup on (userId,
// documentPath).
func (c *Cache) GetOverlay(key document.Key) (overlay.Overlay, bool, error) {
	var (
		found bool
		out   overlay.Overlay
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketOverlays).Get(primaryKey(c.userID, key))
		if v == nil {
			return nil
		}
		rec, err := decodeRecord(v)
		if err != nil {
			return docoverlayerr.NewStorageFault("GetOverlay: decode", &docoverlayerr.CorruptedOverlay{Key: key.String(), Err: err})
		}
		m, err := mutationcodec.Decode(rec.mutationBytes)
		if err != nil {
			return docoverlayerr.NewStorageFault("GetOverlay: decode mutation", &docoverlayerr.CorruptedOverlay{Key: key.String(), Err: err})
		}
		out = overlay.New(rec.largestBatchID, m)
		found = true
		return nil
	})
	if err != nil {
		return overlay.Overlay{}, false, err
	}
	return out, found, nil
}

// SaveOverlays implements overlay.Cache: one upsert per entry under
// (userId, documentPath), maintaining every secondary index in the same
// transaction.
func (c *Cache) SaveOverlays(largestBatchID int64, mutations map[document.Key]mutation.Mutation) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		for key, m := range mutations {
			if m == nil {
				continue
			}
			if err := c.saveOneLocked(tx, largestBatchID, key, m); err != nil {
				return err
			}
		}
		return nil
	})
	return docoverlayerr.NewStorageFault("SaveOverlays", err)
}

func (c *Cache) saveOneLocked(tx *bolt.Tx, largestBatchID int64, key document.Key, m mutation.Mutation) error {
	bOverlays := tx.Bucket(bucketOverlays)
	bByBatch := tx.Bucket(bucketByBatch)
	bByColl := tx.Bucket(bucketByCollection)
	bByGroup := tx.Bucket(bucketByGroup)

	pk := primaryKey(c.userID, key)
	if prev := bOverlays.Get(pk); prev != nil {
		prevRec, err := decodeRecord(prev)
		if err != nil {
			return &docoverlayerr.CorruptedOverlay{Key: key.String(), Err: err}
		}
		if err := bByBatch.Delete(batchIndexKey(c.userID, prevRec.largestBatchID, key)); err != nil {
			return err
		}
		if cp, ok := key.CollectionPath(); ok {
			if err := bByColl.Delete(collectionIndexKey(c.userID, cp, prevRec.largestBatchID, key.Path().LastSegment())); err != nil {
				return err
			}
		}
		if group, ok := key.CollectionGroup(); ok {
			if err := bByGroup.Delete(groupIndexKey(c.userID, group, prevRec.largestBatchID, key)); err != nil {
				return err
			}
		}
	}

	rec, err := newRecord(key, largestBatchID, m)
	if err != nil {
		return err
	}
	if err := bOverlays.Put(pk, encodeRecord(rec)); err != nil {
		return err
	}
	if err := bByBatch.Put(batchIndexKey(c.userID, largestBatchID, key), nil); err != nil {
		return err
	}
	if cp, ok := key.CollectionPath(); ok {
		if err := bByColl.Put(collectionIndexKey(c.userID, cp, largestBatchID, key.Path().LastSegment()), nil); err != nil {
			return err
		}
	}
	if group, ok := key.CollectionGroup(); ok {
		if err := bByGroup.Put(groupIndexKey(c.userID, group, largestBatchID, key), nil); err != nil {
			return err
		}
		c.filters.add(c.userID, group)
	}
	return nil
}

// RemoveOverlaysForBatchID implements overlay.Cache: a range-delete on
// the (userId, batchId) index, cascading to the primary row and the
// other two indexes for each key it touches.
func (c *Cache) RemoveOverlaysForBatchID(batchID int64) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		bByBatch := tx.Bucket(bucketByBatch)
		bOverlays := tx.Bucket(bucketOverlays)
		bByColl := tx.Bucket(bucketByCollection)
		bByGroup := tx.Bucket(bucketByGroup)

		prefix := batchIndexPrefix(c.userID, batchID)
		cur := bByBatch.Cursor()
		var toDelete [][]byte
		for k, _ := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cur.Next() {
			toDelete = append(toDelete, bytes.Clone(k))
		}
		for _, k := range toDelete {
			docPath, err := decodeBatchIndexDocPath(k)
			if err != nil {
				return &docoverlayerr.CorruptedOverlay{Key: string(k), Err: err}
			}
			key := document.KeyFromString(docPath)
			pk := primaryKey(c.userID, key)
			if v := bOverlays.Get(pk); v != nil {
				if err := bOverlays.Delete(pk); err != nil {
					return err
				}
			}
			if err := bByBatch.Delete(k); err != nil {
				return err
			}
			if cp, ok := key.CollectionPath(); ok {
				if err := bByColl.Delete(collectionIndexKey(c.userID, cp, batchID, key.Path().LastSegment())); err != nil {
					return err
				}
			}
			if group, ok := key.CollectionGroup(); ok {
				if err := bByGroup.Delete(groupIndexKey(c.userID, group, batchID, key)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return docoverlayerr.NewStorageFault("RemoveOverlaysForBatchID", err)
}

// GetOverlaysForCollection implements overlay.Cache: a range-scan on the
// (userId, collectionPath, largestBatchId) index with an exclusive lower
// bound.
func (c *Cache) GetOverlaysForCollection(collection document.ResourcePath, sinceBatchID int64) (map[document.Key]overlay.Overlay, error) {
	result := make(map[document.Key]overlay.Overlay)
	err := c.db.View(func(tx *bolt.Tx) error {
		bByColl := tx.Bucket(bucketByCollection)
		bOverlays := tx.Bucket(bucketOverlays)
		prefix := collectionIndexPrefix(c.userID, collection)
		start := collectionIndexLowerBound(c.userID, collection, sinceBatchID)
		cur := bByColl.Cursor()
		for k, _ := cur.Seek(start); k != nil && bytes.HasPrefix(k, prefix); k, _ = cur.Next() {
			docID, err := decodeCollectionIndexDocID(k)
			if err != nil {
				return &docoverlayerr.CorruptedOverlay{Key: string(k), Err: err}
			}
			key := document.NewKey(collection.Child(docID))
			o, err := c.loadOverlay(bOverlays, key)
			if err != nil {
				return err
			}
			if o != nil {
				result[key] = *o
			}
		}
		return nil
	})
	if err != nil {
		return nil, docoverlayerr.NewStorageFault("GetOverlaysForCollection", err)
	}
	return result, nil
}

// GetOverlaysForCollectionGroup implements overlay.Cache: an ordered scan
// on the (userId, collectionGroup, largestBatchId) index, appending whole
// batches until the cumulative count first reaches or exceeds count.
func (c *Cache) GetOverlaysForCollectionGroup(collectionGroup string, sinceBatchID int64, count int) (map[document.Key]overlay.Overlay, error) {
	if !c.filters.maybeHasOverlays(c.userID, collectionGroup) {
		return map[document.Key]overlay.Overlay{}, nil
	}

	result := make(map[document.Key]overlay.Overlay)
	err := c.db.View(func(tx *bolt.Tx) error {
		bByGroup := tx.Bucket(bucketByGroup)
		bOverlays := tx.Bucket(bucketOverlays)
		prefix := groupIndexPrefix(c.userID, collectionGroup)
		start := groupIndexLowerBound(c.userID, collectionGroup, sinceBatchID)

		cur := bByGroup.Cursor()
		currentBatchID := int64(-1)
		haveCurrent := false
		for k, _ := cur.Seek(start); k != nil && bytes.HasPrefix(k, prefix); k, _ = cur.Next() {
			batchID, docPath, err := decodeGroupIndexEntry(k)
			if err != nil {
				return &docoverlayerr.CorruptedOverlay{Key: string(k), Err: err}
			}
			if haveCurrent && len(result) >= count && batchID != currentBatchID {
				break
			}
			key := document.KeyFromString(docPath)
			o, err := c.loadOverlay(bOverlays, key)
			if err != nil {
				return err
			}
			if o != nil {
				result[key] = *o
			}
			currentBatchID = batchID
			haveCurrent = true
		}
		return nil
	})
	if err != nil {
		return nil, docoverlayerr.NewStorageFault("GetOverlaysForCollectionGroup", err)
	}
	return result, nil
}

func (c *Cache) loadOverlay(bOverlays *bolt.Bucket, key document.Key) (*overlay.Overlay, error) {
	v := bOverlays.Get(primaryKey(c.userID, key))
	if v == nil {
		return nil, nil
	}
	rec, err := decodeRecord(v)
	if err != nil {
		return nil, &docoverlayerr.CorruptedOverlay{Key: key.String(), Err: err}
	}
	m, err := mutationcodec.Decode(rec.mutationBytes)
	if err != nil {
		return nil, &docoverlayerr.CorruptedOverlay{Key: key.String(), Err: err}
	}
	o := overlay.New(rec.largestBatchID, m)
	return &o, nil
}
