package boltcache

import (
	"encoding/binary"
	"fmt"

	"docoverlay/document"
	"docoverlay/mutation"
	"docoverlay/mutationcodec"
)

// record is the tuple spec.md §6 names as the persisted layout:
// (userId, documentPath, collectionPath, collectionGroup, largestBatchId,
// mutationBytes). userId and documentPath are carried by the bbolt key
// (see keys.go); this type frames the remainder the way the teacher's
// wal.go frames a WALEntry — fixed-width header fields via
// encoding/binary, then the variable-length payload appended.
type record struct {
	largestBatchID int64
	collectionPath string
	collectionGroup string
	mutationBytes  []byte
}

func encodeRecord(r record) []byte {
	buf := make([]byte, 0, 8+4+len(r.collectionPath)+4+len(r.collectionGroup)+len(r.mutationBytes))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.largestBatchID))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(r.collectionPath)))
	buf = append(buf, r.collectionPath...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(r.collectionGroup)))
	buf = append(buf, r.collectionGroup...)
	buf = append(buf, r.mutationBytes...)
	return buf
}

func decodeRecord(data []byte) (record, error) {
	if len(data) < 16 {
		return record{}, fmt.Errorf("boltcache: record too short (%d bytes)", len(data))
	}
	largestBatchID := int64(binary.BigEndian.Uint64(data[0:8]))
	off := 8
	collLen := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if off+collLen > len(data) {
		return record{}, fmt.Errorf("boltcache: truncated collection path")
	}
	collPath := string(data[off : off+collLen])
	off += collLen
	if off+4 > len(data) {
		return record{}, fmt.Errorf("boltcache: truncated record header")
	}
	groupLen := int(binary.BigEndian.Uint32(data[off : off+4]))
	off += 4
	if off+groupLen > len(data) {
		return record{}, fmt.Errorf("boltcache: truncated collection group")
	}
	group := string(data[off : off+groupLen])
	off += groupLen
	return record{
		largestBatchID:  largestBatchID,
		collectionPath:  collPath,
		collectionGroup: group,
		mutationBytes:   data[off:],
	}, nil
}

func newRecord(key document.Key, largestBatchID int64, m mutation.Mutation) (record, error) {
	mutationBytes, err := mutationcodec.Encode(m)
	if err != nil {
		return record{}, err
	}
	collPath := ""
	group := ""
	if cp, ok := key.CollectionPath(); ok {
		collPath = cp.String()
	}
	if g, ok := key.CollectionGroup(); ok {
		group = g
	}
	return record{
		largestBatchID:  largestBatchID,
		collectionPath:  collPath,
		collectionGroup: group,
		mutationBytes:   mutationBytes,
	}, nil
}
