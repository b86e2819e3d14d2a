package store

import (
	"log/slog"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/tag"
)

// Delta is everything that changed in an authoritative store between two
// versions. Entries carry the full attribute, so applying a delta twice is
// harmless.
type Delta struct {
	From uint64
	To   uint64

	Floats         []attribute.FloatAttribute
	Structs        []attribute.StructAttribute
	RemovedFloats  []tag.Tag
	RemovedStructs []tag.Tag
}

// IsEmpty reports whether the delta carries no changes.
func (d Delta) IsEmpty() bool {
	return len(d.Floats) == 0 && len(d.Structs) == 0 &&
		len(d.RemovedFloats) == 0 && len(d.RemovedStructs) == 0
}

// ChangesSince collects attributes changed or removed after version v.
// ChangesSince(0) is a full snapshot.
func (s *Store) ChangesSince(v uint64) Delta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := Delta{From: v, To: s.version}
	for _, t := range sortedTags(s.dirtyFloats) {
		if s.dirtyFloats[t] > v {
			d.Floats = append(d.Floats, *s.floats[t])
		}
	}
	for _, t := range sortedTags(s.dirtyStructs) {
		if s.dirtyStructs[t] > v {
			d.Structs = append(d.Structs, s.structs[t].Clone())
		}
	}
	for _, t := range sortedTags(s.removedFloats) {
		if s.removedFloats[t] > v {
			d.RemovedFloats = append(d.RemovedFloats, t)
		}
	}
	for _, t := range sortedTags(s.removedStructs) {
		if s.removedStructs[t] > v {
			d.RemovedStructs = append(d.RemovedStructs, t)
		}
	}
	return d
}

// ApplyDelta delivers d to a mirror, firing the replication callbacks.
// Returns false on an authoritative store.
func (s *Store) ApplyDelta(d Delta) bool {
	if s.role != RoleMirror {
		slog.Warn("delta delivered to authoritative store", "owner", s.owner)
		return false
	}
	if cur := s.Version(); d.From > cur {
		slog.Warn("delta skips versions",
			"owner", s.owner,
			"mirror_version", cur,
			"delta_from", d.From)
	}

	for _, t := range d.RemovedFloats {
		s.OnFloatAttributeRemoved(t)
	}
	for _, t := range d.RemovedStructs {
		s.OnStructAttributeRemoved(t)
	}
	for _, a := range d.Floats {
		if s.HasFloatAttribute(a.Tag) {
			s.OnFloatAttributeChanged(a)
		} else {
			s.OnFloatAttributeAdded(a)
		}
	}
	for _, a := range d.Structs {
		if s.HasStructAttribute(a.Tag) {
			s.OnStructAttributeChanged(a)
		} else {
			s.OnStructAttributeAdded(a)
		}
	}

	s.mu.Lock()
	s.version = max(s.version, d.To)
	s.mu.Unlock()
	return true
}

// OnFloatAttributeAdded stores a replicated attribute as-is.
func (s *Store) OnFloatAttributeAdded(attr attribute.FloatAttribute) {
	s.mu.Lock()
	stored := attr
	s.floats[attr.Tag] = &stored
	s.mu.Unlock()

	s.notifier.Added(attr)
}

// OnFloatAttributeChanged replaces a replicated attribute and publishes a
// changed event for every field that differs from the previous copy.
func (s *Store) OnFloatAttributeChanged(attr attribute.FloatAttribute) {
	s.mu.Lock()
	old, ok := s.floats[attr.Tag]
	var prev attribute.FloatAttribute
	if ok {
		prev = *old
	}
	stored := attr
	s.floats[attr.Tag] = &stored
	s.mu.Unlock()

	if !ok {
		s.notifier.Added(attr)
		return
	}
	s.notifier.DiffAndEmit(&prev, &attr)
}

// OnFloatAttributeRemoved drops a replicated attribute.
func (s *Store) OnFloatAttributeRemoved(attrTag tag.Tag) {
	s.mu.Lock()
	_, ok := s.floats[attrTag]
	delete(s.floats, attrTag)
	s.mu.Unlock()

	if ok {
		s.notifier.Removed(attrTag)
	}
}

// OnStructAttributeAdded stores a replicated struct attribute.
func (s *Store) OnStructAttributeAdded(attr attribute.StructAttribute) {
	attr = attr.Clone()
	s.mu.Lock()
	stored := attr
	s.structs[attr.Tag] = &stored
	s.mu.Unlock()

	s.notifier.StructAdded(attr)
}

// OnStructAttributeChanged replaces a replicated payload and runs the handler.
func (s *Store) OnStructAttributeChanged(attr attribute.StructAttribute) {
	attr = attr.Clone()
	s.mu.Lock()
	old, ok := s.structs[attr.Tag]
	var oldValue any
	if ok {
		oldValue = old.Value
	}
	stored := attr
	s.structs[attr.Tag] = &stored
	s.mu.Unlock()

	if !ok {
		s.notifier.StructAdded(attr)
		return
	}
	s.emitStructChanged(attr.Handler, attr.Tag, oldValue, attribute.CloneValue(attr.Value))
}

// OnStructAttributeRemoved drops a replicated struct attribute.
func (s *Store) OnStructAttributeRemoved(attrTag tag.Tag) {
	s.mu.Lock()
	_, ok := s.structs[attrTag]
	delete(s.structs, attrTag)
	s.mu.Unlock()

	if ok {
		s.notifier.StructRemoved(attrTag)
	}
}
