package store

import (
	"log/slog"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/handler"
	"github.com/udisondev/attrsys/internal/tag"
)

// AddStructAttribute inserts attr, taking its own copy of the payload.
// A nil Value is initialised from the struct type registry.
//
// Same override semantics as AddFloatAttribute; an override publishes
// StructAttributeValueChanged with the handler's modification tags.
func (s *Store) AddStructAttribute(attr attribute.StructAttribute, overrideIfExists bool) bool {
	if !s.writable("AddStructAttribute", attr.Tag) {
		return false
	}
	if !s.validStruct(&attr) {
		return false
	}
	attr = attr.Clone()

	s.mu.Lock()
	old, exists := s.structs[attr.Tag]
	if exists && !overrideIfExists {
		s.mu.Unlock()
		slog.Debug("struct attribute already present", "owner", s.owner, "attribute", attr.Tag.String())
		return false
	}
	var oldValue any
	if exists {
		oldValue = old.Value
	}
	stored := attr
	s.structs[attr.Tag] = &stored
	s.touchStructLocked(attr.Tag)
	s.mu.Unlock()

	if exists {
		s.emitStructChanged(attr.Handler, attr.Tag, oldValue, attribute.CloneValue(attr.Value))
	} else {
		s.notifier.StructAdded(attr)
	}
	return true
}

// validStruct rejects malformed attributes and fills in a nil payload.
func (s *Store) validStruct(attr *attribute.StructAttribute) bool {
	if !attr.Tag.IsValid() {
		slog.Warn("struct attribute without tag", "owner", s.owner)
		return false
	}
	if attr.StructType == "" {
		slog.Warn("struct attribute without type", "owner", s.owner, "attribute", attr.Tag.String())
		return false
	}
	if attr.Handler != "" && !handler.IsRegistered(attr.Handler) {
		slog.Warn("struct attribute with unknown handler",
			"owner", s.owner,
			"attribute", attr.Tag.String(),
			"handler", attr.Handler)
		return false
	}
	if attr.Value == nil {
		v, ok := attribute.NewStructValue(attr.StructType)
		if !ok {
			slog.Warn("unknown struct type",
				"owner", s.owner,
				"attribute", attr.Tag.String(),
				"type", attr.StructType)
			return false
		}
		attr.Value = v
	}
	return true
}

// RemoveStructAttribute deletes attrTag and publishes StructAttributeRemoved,
// also when the tag was absent.
func (s *Store) RemoveStructAttribute(attrTag tag.Tag) {
	if !s.writable("RemoveStructAttribute", attrTag) {
		return
	}
	s.mu.Lock()
	if _, ok := s.structs[attrTag]; ok {
		delete(s.structs, attrTag)
		s.dropStructLocked(attrTag)
	}
	s.mu.Unlock()

	s.notifier.StructRemoved(attrTag)
}

// HasStructAttribute reports whether attrTag is present.
func (s *Store) HasStructAttribute(attrTag tag.Tag) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.structs[attrTag]
	return ok
}

// StructAttribute returns a copy of the attribute.
func (s *Store) StructAttribute(attrTag tag.Tag) (attribute.StructAttribute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.structs[attrTag]
	if !ok {
		return attribute.StructAttribute{}, false
	}
	return a.Clone(), true
}

// StructAttributeValue returns a copy of the payload.
func (s *Store) StructAttributeValue(attrTag tag.Tag) (any, bool) {
	a, ok := s.StructAttribute(attrTag)
	if !ok {
		slog.Debug("struct attribute not found", "owner", s.owner, "attribute", attrTag.String())
		return nil, false
	}
	return a.Value, true
}

// SetStructAttributeValue replaces the payload of attrTag. The attribute's
// handler is asked what changed and the answer rides on the
// StructAttributeValueChanged event.
func (s *Store) SetStructAttributeValue(attrTag tag.Tag, v any) bool {
	if !s.writable("SetStructAttributeValue", attrTag) {
		return false
	}
	v = attribute.CloneValue(v)

	s.mu.Lock()
	a, ok := s.structs[attrTag]
	if !ok {
		s.mu.Unlock()
		slog.Debug("set on unknown struct attribute", "owner", s.owner, "attribute", attrTag.String())
		return false
	}
	oldValue := a.Value
	a.Value = v
	handlerID := a.Handler
	s.touchStructLocked(attrTag)
	s.mu.Unlock()

	s.emitStructChanged(handlerID, attrTag, oldValue, attribute.CloneValue(v))
	return true
}

// StructAttributes returns copies of every struct attribute ordered by tag.
func (s *Store) StructAttributes() []attribute.StructAttribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]attribute.StructAttribute, 0, len(s.structs))
	for _, t := range sortedTags(s.structs) {
		out = append(out, s.structs[t].Clone())
	}
	return out
}

// emitStructChanged runs the handler outside the store lock. The old value
// is no longer referenced by the store, the new one is a private copy.
func (s *Store) emitStructChanged(id handler.TypeID, attrTag tag.Tag, oldValue, newValue any) {
	mods := s.handlers.ModificationEvents(id, attrTag, oldValue, newValue)
	s.notifier.StructChanged(attrTag, oldValue, newValue, mods)
}
