package tag

import "strings"

// Set is a small ordered collection of unique tags.
// The zero value is an empty set ready to use.
type Set struct {
	items []Tag
}

// NewSet builds a set from tags, skipping zero and duplicate values.
func NewSet(tags ...Tag) Set {
	var s Set
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// ParseSet interns every path and returns them as a set.
func ParseSet(paths ...string) Set {
	var s Set
	for _, p := range paths {
		s.Add(New(p))
	}
	return s
}

// Add inserts t if it is valid and not present. Returns true if inserted.
func (s *Set) Add(t Tag) bool {
	if !t.IsValid() || s.HasExact(t) {
		return false
	}
	s.items = append(s.items, t)
	return true
}

// Remove deletes t from the set.
func (s *Set) Remove(t Tag) bool {
	for i, cur := range s.items {
		if cur == t {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a set that shares no storage with s.
func (s Set) Clone() Set {
	if len(s.items) == 0 {
		return Set{}
	}
	return Set{items: s.Tags()}
}

// Len returns the number of tags.
func (s Set) Len() int { return len(s.items) }

// IsEmpty reports whether the set has no tags.
func (s Set) IsEmpty() bool { return len(s.items) == 0 }

// Tags returns a copy of the members in insertion order.
func (s Set) Tags() []Tag {
	out := make([]Tag, len(s.items))
	copy(out, s.items)
	return out
}

// HasExact reports whether t is a member.
func (s Set) HasExact(t Tag) bool {
	for _, cur := range s.items {
		if cur.MatchesExact(t) {
			return true
		}
	}
	return false
}

// HasAnyExact reports whether the two sets share at least one tag.
func (s Set) HasAnyExact(other Set) bool {
	for _, t := range other.items {
		if s.HasExact(t) {
			return true
		}
	}
	return false
}

// HasAny reports whether any member of s matches, hierarchically, any tag in other
// (a member "A.B.C" matches "A.B" in other).
func (s Set) HasAny(other Set) bool {
	for _, mine := range s.items {
		for _, t := range other.items {
			if mine.MatchesAncestor(t) {
				return true
			}
		}
	}
	return false
}

// Union returns a new set containing members of both sets.
func (s Set) Union(other Set) Set {
	out := NewSet(s.items...)
	for _, t := range other.items {
		out.Add(t)
	}
	return out
}

func (s Set) String() string {
	parts := make([]string, len(s.items))
	for i, t := range s.items {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalYAML encodes the set as a list of paths.
func (s Set) MarshalYAML() (any, error) {
	paths := make([]string, len(s.items))
	for i, t := range s.items {
		paths[i] = t.String()
	}
	return paths, nil
}

// UnmarshalYAML decodes a list of paths.
func (s *Set) UnmarshalYAML(unmarshal func(any) error) error {
	var paths []string
	if err := unmarshal(&paths); err != nil {
		return err
	}
	*s = ParseSet(paths...)
	return nil
}
