// Package boltcache implements the persistent OverlayCache (component
// C4): overlays scoped per user, backed by go.etcd.io/bbolt, with
// secondary indexes for batch removal and collection/collection-group
// lookups.
//
// Every index key is built with rsc.io/ordered rather than hand-joined
// "|"-separated byte strings (the teacher's own keybuilder.go approach):
// ordered.Encode gives each tuple component an unambiguous, self-
// delimiting boundary, so a userId or path segment containing the
// separator character can never corrupt another key's sort position —
// the exact class of bug a naive string join is exposed to.
package boltcache

import (
	bolt "go.etcd.io/bbolt"
	"rsc.io/ordered"

	"docoverlay/document"
)

var (
	bucketOverlays     = []byte("overlays")           // (userID, docPath) -> record
	bucketByBatch      = []byte("overlays_by_batch")  // (userID, batchID, docPath) -> nil
	bucketByCollection = []byte("overlays_by_coll")   // (userID, collPath, batchID, docID) -> nil
	bucketByGroup      = []byte("overlays_by_group")  // (userID, group, batchID, docPath) -> nil
)

func ensureBuckets(tx *bolt.Tx) error {
	for _, name := range [][]byte{bucketOverlays, bucketByBatch, bucketByCollection, bucketByGroup} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return nil
}

func primaryKey(userID string, key document.Key) []byte {
	return ordered.Encode(userID, key.String())
}

func batchIndexKey(userID string, batchID int64, key document.Key) []byte {
	return ordered.Encode(userID, batchID, key.String())
}

func batchIndexPrefix(userID string, batchID int64) []byte {
	return ordered.Encode(userID, batchID)
}

func collectionIndexKey(userID string, collection document.ResourcePath, batchID int64, docID string) []byte {
	return ordered.Encode(userID, collection.String(), batchID, docID)
}

func collectionIndexPrefix(userID string, collection document.ResourcePath) []byte {
	return ordered.Encode(userID, collection.String())
}

// collectionIndexLowerBound returns the seek key that lands on the first
// entry with batchID strictly greater than sinceBatchID: ordered.Inf in
// the final (docID) slot sorts after every real docID sharing
// batchID==sinceBatchID, so Seek skips that whole bucket.
func collectionIndexLowerBound(userID string, collection document.ResourcePath, sinceBatchID int64) []byte {
	return ordered.Encode(userID, collection.String(), sinceBatchID, ordered.Inf)
}

func groupIndexKey(userID, group string, batchID int64, key document.Key) []byte {
	return ordered.Encode(userID, group, batchID, key.String())
}

func groupIndexPrefix(userID, group string) []byte {
	return ordered.Encode(userID, group)
}

func groupIndexLowerBound(userID, group string, sinceBatchID int64) []byte {
	return ordered.Encode(userID, group, sinceBatchID, ordered.Inf)
}

// decodeBatchIndexDocPath extracts the document path from a
// bucketByBatch key (userID, batchID, docPath).
func decodeBatchIndexDocPath(key []byte) (string, error) {
	var userID string
	var batchID int64
	var docPath string
	if err := ordered.Decode(key, &userID, &batchID, &docPath); err != nil {
		return "", err
	}
	return docPath, nil
}

// decodeCollectionIndexDocID extracts the trailing document id from a
// bucketByCollection key (userID, collectionPath, batchID, docID).
func decodeCollectionIndexDocID(key []byte) (string, error) {
	var userID, collPath string
	var batchID int64
	var docID string
	if err := ordered.Decode(key, &userID, &collPath, &batchID, &docID); err != nil {
		return "", err
	}
	return docID, nil
}

// decodeGroupIndexEntry extracts the batch id and document path from a
// bucketByGroup key (userID, group, batchID, docPath).
func decodeGroupIndexEntry(key []byte) (int64, string, error) {
	var userID, group string
	var batchID int64
	var docPath string
	if err := ordered.Decode(key, &userID, &group, &batchID, &docPath); err != nil {
		return 0, "", err
	}
	return batchID, docPath, nil
}
