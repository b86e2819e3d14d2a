package tag

import (
	"strings"
	"sync"
)

// Tag is an interned hierarchical identifier such as "Attribute.Health".
// Two tags with the same path always share the same node, so Tag values are
// comparable with == and usable as map keys. The zero Tag is "none".
type Tag struct {
	n *node
}

type node struct {
	path    string
	segment string
	depth   int
	parent  *node
}

var (
	internMu sync.RWMutex
	interned = make(map[string]*node, 256)
)

// New interns the dot-separated path and returns its Tag.
// Empty segments are dropped ("A..B" == "A.B"); an empty path yields the zero Tag.
func New(path string) Tag {
	segments := splitPath(path)
	if len(segments) == 0 {
		return Tag{}
	}
	return Tag{n: intern(segments)}
}

func splitPath(path string) []string {
	raw := strings.Split(strings.TrimSpace(path), ".")
	out := raw[:0]
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intern(segments []string) *node {
	full := strings.Join(segments, ".")

	internMu.RLock()
	n, ok := interned[full]
	internMu.RUnlock()
	if ok {
		return n
	}

	internMu.Lock()
	defer internMu.Unlock()

	// Build the chain root-first so every ancestor is interned as well.
	var parent *node
	for i := range segments {
		path := strings.Join(segments[:i+1], ".")
		cur, ok := interned[path]
		if !ok {
			cur = &node{path: path, segment: segments[i], depth: i + 1, parent: parent}
			interned[path] = cur
		}
		parent = cur
	}
	return parent
}

// IsValid reports whether t names something.
func (t Tag) IsValid() bool { return t.n != nil }

// String returns the full dotted path ("" for the zero Tag).
func (t Tag) String() string {
	if t.n == nil {
		return ""
	}
	return t.n.path
}

// Depth returns the number of path segments.
func (t Tag) Depth() int {
	if t.n == nil {
		return 0
	}
	return t.n.depth
}

// Parent returns the immediate ancestor, or the zero Tag for roots.
func (t Tag) Parent() Tag {
	if t.n == nil || t.n.parent == nil {
		return Tag{}
	}
	return Tag{n: t.n.parent}
}

// MatchesExact reports whether t and other are the same identifier.
// Zero tags never match anything, including each other.
func (t Tag) MatchesExact(other Tag) bool {
	return t.n != nil && t.n == other.n
}

// MatchesAncestor reports whether ancestor is t itself or one of its parents:
// "Attribute.Health.Max" matches ancestor "Attribute.Health" and "Attribute".
func (t Tag) MatchesAncestor(ancestor Tag) bool {
	if t.n == nil || ancestor.n == nil || ancestor.n.depth > t.n.depth {
		return false
	}
	for cur := t.n; cur != nil; cur = cur.parent {
		if cur == ancestor.n {
			return true
		}
	}
	return false
}

// Child returns the tag one segment below t.
func (t Tag) Child(segment string) Tag {
	if t.n == nil {
		return New(segment)
	}
	return New(t.n.path + "." + segment)
}

// MarshalText implements encoding.TextMarshaler so tags round-trip through yaml/json.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(text []byte) error {
	*t = New(string(text))
	return nil
}
