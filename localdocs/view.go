// Package localdocs implements LocalDocumentsView (component C5): the
// read-side coordinator that merges the remote document cache, the
// mutation queue, and the overlay cache into a coherent local view, and
// repairs overlays when remote state changes invalidate them.
package localdocs

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"docoverlay/document"
	"docoverlay/indexmanager"
	"docoverlay/mutation"
	"docoverlay/mutationqueue"
	"docoverlay/overlay"
	"docoverlay/query"
	"docoverlay/remotecache"
)

// QueryOffset bounds a collection query's remote read and overlay scan:
// only remote documents read at or after ReadTime, and only overlays
// whose largest batch id is strictly greater than LargestBatchID, are
// considered.
type QueryOffset struct {
	ReadTime       time.Time
	LargestBatchID int64
}

// View is LocalDocumentsView. It holds no state of its own beyond
// references to its three collaborators; every call is a pure function
// of their current contents.
type View struct {
	remote    remotecache.Cache
	mutations mutationqueue.Queue
	overlays  overlay.Cache
	indexes   indexmanager.Manager
}

// New builds a View over the given collaborators.
func New(remote remotecache.Cache, mutations mutationqueue.Queue, overlays overlay.Cache, indexes indexmanager.Manager) *View {
	return &View{remote: remote, mutations: mutations, overlays: overlays, indexes: indexes}
}

// GetDocument implements spec §4.4.1: fetch the overlay for key, fetch
// the right base document for it, apply the overlay if present, and
// return the result.
func (v *View) GetDocument(key document.Key) (*document.Document, error) {
	o, found, err := v.overlays.GetOverlay(key)
	if err != nil {
		return nil, fmt.Errorf("localdocs: get overlay for %s: %w", key, err)
	}

	base, err := v.getBaseDocument(key, o, found)
	if err != nil {
		return nil, err
	}

	if found {
		base = o.Mutation().ApplyToLocalView(base, time.Now())
	}
	return base, nil
}

// getBaseDocument implements the base-document selection rule: for an
// absent overlay or a patch mutation, the remote entry is required
// because the patch's precondition and semantics depend on it; for any
// other mutation the base is irrelevant since the mutation overwrites it
// completely, so a fresh invalid document is synthesized instead of
// paying for a remote read.
func (v *View) getBaseDocument(key document.Key, o overlay.Overlay, found bool) (*document.Document, error) {
	if !found || o.Mutation().IsPatch() {
		doc, err := v.remote.GetEntry(key)
		if err != nil {
			return nil, fmt.Errorf("localdocs: get remote entry for %s: %w", key, err)
		}
		return doc, nil
	}
	return document.NewInvalidDocument(key), nil
}

// GetDocuments implements spec §4.4.2.
func (v *View) GetDocuments(keys []document.Key) (map[document.Key]*document.Document, error) {
	docs, err := v.remote.GetEntries(keys)
	if err != nil {
		return nil, fmt.Errorf("localdocs: get remote entries: %w", err)
	}
	return v.GetLocalViewOfDocuments(docs, nil)
}

// GetLocalViewOfDocuments implements spec §4.4.3.
func (v *View) GetLocalViewOfDocuments(docs map[document.Key]*document.Document, existenceStateChanged map[document.Key]struct{}) (map[document.Key]*document.Document, error) {
	return v.computeViews(docs, nil, existenceStateChanged)
}

// computeViews implements spec §4.4.4. docs is mutated in place (each
// entry's mutation is applied, or it is marked for recalculation) and
// then returned verbatim as the result map.
func (v *View) computeViews(docs map[document.Key]*document.Document, memoizedOverlays map[document.Key]overlay.Overlay, existenceStateChanged map[document.Key]struct{}) (map[document.Key]*document.Document, error) {
	now := time.Now()
	toRecalc := make(map[document.Key]*document.Document)

	for key, doc := range docs {
		o, found := memoizedOverlays[key]
		if !found {
			var err error
			o, found, err = v.overlays.GetOverlay(key)
			if err != nil {
				return nil, fmt.Errorf("localdocs: get overlay for %s: %w", key, err)
			}
		}

		_, changed := existenceStateChanged[key]
		switch {
		case changed && (!found || o.Mutation().IsPatch()):
			toRecalc[key] = doc
		case found:
			docs[key] = o.Mutation().ApplyToLocalView(doc, now)
		}
	}

	if len(toRecalc) > 0 {
		if err := v.RecalculateAndSaveOverlays(toRecalc); err != nil {
			return nil, err
		}
	}

	return docs, nil
}

// RecalculateAndSaveOverlays implements spec §4.4.5: the overlay repair
// path triggered when a patch mutation's precondition may have flipped.
// Iterating documentsByBatchId in descending order is load-bearing
// (spec.md §9): it assigns each key's final overlay to the highest
// contributing batch id, matching invariant 2 in spec.md §3. Ascending
// iteration would let a lower batch id overwrite a higher one.
func (v *View) RecalculateAndSaveOverlays(docs map[document.Key]*document.Document) error {
	correlationID := uuid.New().String()

	keys := make([]document.Key, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}

	batches, err := v.mutations.GetAllMutationBatchesAffectingDocumentKeys(keys)
	if err != nil {
		return fmt.Errorf("localdocs[%s]: get mutation batches: %w", correlationID, err)
	}
	batches = mutationqueue.SortBatchesByID(batches)

	masks := make(map[document.Key]document.FieldMask, len(docs))
	documentsByBatchID := make(map[int64]map[document.Key]struct{})

	for _, batch := range batches {
		for _, key := range batch.Keys() {
			doc, ok := docs[key]
			if !ok {
				continue
			}
			masks[key] = batch.ApplyToLocalViewWithFieldMask(key, doc, masks[key])
			bucket, ok := documentsByBatchID[batch.ID]
			if !ok {
				bucket = make(map[document.Key]struct{})
				documentsByBatchID[batch.ID] = bucket
			}
			bucket[key] = struct{}{}
		}
	}

	batchIDs := make([]int64, 0, len(documentsByBatchID))
	for id := range documentsByBatchID {
		batchIDs = append(batchIDs, id)
	}
	sort.Slice(batchIDs, func(i, j int) bool { return batchIDs[i] > batchIDs[j] })

	processed := make(map[document.Key]struct{})
	for _, batchID := range batchIDs {
		staged := make(map[document.Key]mutation.Mutation)
		for key := range documentsByBatchID[batchID] {
			if _, done := processed[key]; done {
				continue
			}
			staged[key] = mutation.CalculateOverlay(docs[key], masks[key])
			processed[key] = struct{}{}
		}
		if len(staged) == 0 {
			continue
		}
		if err := v.overlays.SaveOverlays(batchID, staged); err != nil {
			return fmt.Errorf("localdocs[%s]: save overlays for batch %d: %w", correlationID, batchID, err)
		}
		log.Printf("localdocs[%s]: recalculated %d overlay(s) for batch %d", correlationID, len(staged), batchID)
	}
	return nil
}

// RecalculateAndSaveOverlaysForDocumentKeys implements spec §4.4.6.
func (v *View) RecalculateAndSaveOverlaysForDocumentKeys(keys []document.Key) error {
	docs, err := v.remote.GetEntries(keys)
	if err != nil {
		return fmt.Errorf("localdocs: get remote entries: %w", err)
	}
	return v.RecalculateAndSaveOverlays(docs)
}

// GetDocumentsMatchingQuery implements spec §4.4.7, dispatching across
// the three query shapes.
func (v *View) GetDocumentsMatchingQuery(q query.Query, offset QueryOffset) (map[document.Key]*document.Document, error) {
	switch {
	case query.IsDocumentQuery(q):
		return v.getDocumentsMatchingDocumentQuery(q)
	case query.IsCollectionGroupQuery(q):
		return v.getDocumentsMatchingCollectionGroupQuery(q, offset)
	default:
		return v.getDocumentsMatchingCollectionQuery(q, offset)
	}
}

func (v *View) getDocumentsMatchingDocumentQuery(q query.Query) (map[document.Key]*document.Document, error) {
	key := document.NewKey(q.Path)
	doc, err := v.GetDocument(key)
	if err != nil {
		return nil, err
	}
	if !doc.Exists() {
		return map[document.Key]*document.Document{}, nil
	}
	return map[document.Key]*document.Document{key: doc}, nil
}

func (v *View) getDocumentsMatchingCollectionGroupQuery(q query.Query, offset QueryOffset) (map[document.Key]*document.Document, error) {
	parents := v.indexes.GetCollectionParents(q.CollectionGroup)
	result := make(map[document.Key]*document.Document)
	for _, parent := range parents {
		sub := query.AsCollectionQueryAtPath(q, parent)
		matches, err := v.getDocumentsMatchingCollectionQuery(sub, offset)
		if err != nil {
			return nil, err
		}
		for k, doc := range matches {
			result[k] = doc
		}
	}
	return result, nil
}

// getDocumentsMatchingCollectionQuery implements the collection-query
// case: a fresh invalid document is synthesized for any overlay key the
// remote scan didn't already return, because a patch that would cause a
// document to start matching the query may apply to a key the remote
// cache has not yet returned (spec.md §4.4.7's rationale for this step).
func (v *View) getDocumentsMatchingCollectionQuery(q query.Query, offset QueryOffset) (map[document.Key]*document.Document, error) {
	remote, err := v.remote.GetDocumentsMatchingQuery(q, offset.ReadTime)
	if err != nil {
		return nil, fmt.Errorf("localdocs: get remote documents matching query: %w", err)
	}

	overlays, err := v.overlays.GetOverlaysForCollection(q.Path, offset.LargestBatchID)
	if err != nil {
		return nil, fmt.Errorf("localdocs: get overlays for collection %s: %w", q.Path, err)
	}

	for key := range overlays {
		if _, ok := remote[key]; !ok {
			remote[key] = document.NewInvalidDocument(key)
		}
	}

	now := time.Now()
	result := make(map[document.Key]*document.Document)
	for key, doc := range remote {
		if o, ok := overlays[key]; ok {
			doc = o.Mutation().ApplyToLocalView(doc, now)
		}
		if query.Matches(q, doc) {
			result[key] = doc
		}
	}
	return result, nil
}
