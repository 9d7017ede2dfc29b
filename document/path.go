// Package document defines the document key and path types shared by the
// overlay cache and the local documents view.
package document

import "strings"

// ResourcePath is an ordered sequence of path segments, e.g. the segments
// of "rooms/r1/messages/m1" are ["rooms", "r1", "messages", "m1"].
//
// The segments are kept joined into a single string rather than a slice
// so that ResourcePath (and document.Key, which wraps it) stays a
// comparable value usable directly as a map key — every overlay and
// document-view collaborator in this package keys its maps by Key.
type ResourcePath struct {
	joined string
}

// NewResourcePath builds a ResourcePath from its segments.
func NewResourcePath(segments ...string) ResourcePath {
	return ResourcePath{joined: strings.Join(segments, "/")}
}

// ParsePath splits a slash-separated path string into a ResourcePath.
// An empty string yields the (zero-length) root path.
func ParsePath(s string) ResourcePath {
	return ResourcePath{joined: s}
}

// segments splits the path back into its components. Returns nil for
// the root path.
func (p ResourcePath) segments() []string {
	if p.joined == "" {
		return nil
	}
	return strings.Split(p.joined, "/")
}

// Len returns the number of segments in the path.
func (p ResourcePath) Len() int {
	if p.joined == "" {
		return 0
	}
	return strings.Count(p.joined, "/") + 1
}

// Segments returns the path's segments.
func (p ResourcePath) Segments() []string {
	return p.segments()
}

// LastSegment returns the final segment, or "" if the path is empty.
func (p ResourcePath) LastSegment() string {
	if p.joined == "" {
		return ""
	}
	if i := strings.LastIndexByte(p.joined, '/'); i >= 0 {
		return p.joined[i+1:]
	}
	return p.joined
}

// Child returns a new path with segment appended.
func (p ResourcePath) Child(segment string) ResourcePath {
	if p.joined == "" {
		return ResourcePath{joined: segment}
	}
	return ResourcePath{joined: p.joined + "/" + segment}
}

// Parent returns the path with its last segment dropped, and ok=false if p
// is already empty.
func (p ResourcePath) Parent() (ResourcePath, bool) {
	if p.joined == "" {
		return ResourcePath{}, false
	}
	i := strings.LastIndexByte(p.joined, '/')
	if i < 0 {
		return ResourcePath{}, true
	}
	return ResourcePath{joined: p.joined[:i]}, true
}

// IsPrefixOf reports whether p is a prefix of other (p itself counts as a
// prefix of itself), comparing whole segments rather than raw characters.
func (p ResourcePath) IsPrefixOf(other ResourcePath) bool {
	if p.joined == "" {
		return true
	}
	return other.joined == p.joined || strings.HasPrefix(other.joined, p.joined+"/")
}

// Equal reports whether p and other have identical segments.
func (p ResourcePath) Equal(other ResourcePath) bool {
	return p.joined == other.joined
}

// Compare returns -1, 0, or 1 comparing p and other component-wise,
// segment by segment, with a shorter path that is a prefix of a longer one
// sorting first.
func (p ResourcePath) Compare(other ResourcePath) int {
	ps, os := p.segments(), other.segments()
	n := len(ps)
	if len(os) < n {
		n = len(os)
	}
	for i := 0; i < n; i++ {
		if ps[i] < os[i] {
			return -1
		}
		if ps[i] > os[i] {
			return 1
		}
	}
	switch {
	case len(ps) < len(os):
		return -1
	case len(ps) > len(os):
		return 1
	default:
		return 0
	}
}

// String renders the path as a slash-separated string.
func (p ResourcePath) String() string {
	return p.joined
}
