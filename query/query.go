// Package query fixes the Query primitives external collaborator
// contract (spec.md §4.5): enough of a query shape to dispatch
// getDocumentsMatchingQuery across its three cases and to filter a
// collection scan. Query planning and the full filter/order-by
// language are out of scope per spec.md §1.
package query

import "docoverlay/document"

// Filter is a single equality or comparison test against a field path.
// Operator is one of the Op constants.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Op is a filter comparison operator.
type Op int

const (
	OpEqual Op = iota
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
)

// Query selects documents rooted at Path. When CollectionGroup is
// non-empty the query instead matches every collection named
// CollectionGroup anywhere in the document tree (spec.md §4.4.7's
// collection-group case); Path is ignored in that case.
type Query struct {
	Path            document.ResourcePath
	CollectionGroup string
	Filters         []Filter
}

// NewDocumentQuery builds a query that matches exactly the single
// document at path.
func NewDocumentQuery(path document.ResourcePath) Query {
	return Query{Path: path}
}

// NewCollectionQuery builds a query over the immediate children of
// collection.
func NewCollectionQuery(collection document.ResourcePath, filters ...Filter) Query {
	return Query{Path: collection, Filters: filters}
}

// NewCollectionGroupQuery builds a query over every collection named
// group, regardless of where it sits in the document tree.
func NewCollectionGroupQuery(group string, filters ...Filter) Query {
	return Query{CollectionGroup: group, Filters: filters}
}

// IsDocumentQuery reports whether q names a single document path (even
// path length, i.e. collection.length+1, and no collection group set).
func IsDocumentQuery(q Query) bool {
	return q.CollectionGroup == "" && q.Path.Len() > 0 && q.Path.Len()%2 == 0
}

// IsCollectionGroupQuery reports whether q is a collection-group query.
func IsCollectionGroupQuery(q Query) bool {
	return q.CollectionGroup != ""
}

// AsCollectionQueryAtPath rewrites a collection-group query into a plain
// collection query rooted at parent.Child(q.CollectionGroup), preserving
// its filters.
func AsCollectionQueryAtPath(q Query, parent document.ResourcePath) Query {
	return Query{Path: parent.Child(q.CollectionGroup), Filters: q.Filters}
}

// Matches reports whether doc satisfies every filter in q. A
// non-existent document never matches.
func Matches(q Query, doc *document.Document) bool {
	if doc == nil || !doc.Exists() {
		return false
	}
	for _, f := range q.Filters {
		v, ok := doc.Fields[f.Field]
		if !ok {
			return false
		}
		if !matchOne(f, v) {
			return false
		}
	}
	return true
}

func matchOne(f Filter, v any) bool {
	switch f.Op {
	case OpEqual:
		return v == f.Value
	default:
		lv, lok := toFloat(v)
		rv, rok := toFloat(f.Value)
		if !lok || !rok {
			return false
		}
		switch f.Op {
		case OpLessThan:
			return lv < rv
		case OpLessThanOrEqual:
			return lv <= rv
		case OpGreaterThan:
			return lv > rv
		case OpGreaterThanOrEqual:
			return lv >= rv
		}
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
