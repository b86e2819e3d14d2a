package store

import (
	"log/slog"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/tag"
)

// AddFloatAttribute inserts attr, clamped, with its regen timestamp set to now.
//
// An existing tag is left untouched unless overrideIfExists is set, in which
// case the attribute is replaced and one changed event is published per
// differing field. Returns false when nothing was stored.
func (s *Store) AddFloatAttribute(attr attribute.FloatAttribute, overrideIfExists bool) bool {
	if !s.writable("AddFloatAttribute", attr.Tag) {
		return false
	}
	if !attr.Tag.IsValid() {
		slog.Warn("float attribute without tag", "owner", s.owner, "name", attr.Name)
		return false
	}

	now := s.clock.Now()
	attribute.ClampInPlace(&attr)
	attr.LastRegenTimestamp = now

	s.mu.Lock()
	old, exists := s.floats[attr.Tag]
	if exists && !overrideIfExists {
		s.mu.Unlock()
		slog.Debug("float attribute already present", "owner", s.owner, "attribute", attr.Tag.String())
		return false
	}
	var prev attribute.FloatAttribute
	if exists {
		prev = s.liveLocked(old, now)
	}
	stored := attr
	s.floats[attr.Tag] = &stored
	s.touchFloatLocked(attr.Tag)
	s.mu.Unlock()

	if exists {
		s.notifier.DiffAndEmit(&prev, &attr)
	} else {
		s.notifier.Added(attr)
	}
	return true
}

// OverrideFloatAttribute replaces an existing attribute. Returns false if
// attrTag is unknown.
func (s *Store) OverrideFloatAttribute(attrTag tag.Tag, attr attribute.FloatAttribute) bool {
	if !s.HasFloatAttribute(attrTag) {
		slog.Debug("override of unknown float attribute", "owner", s.owner, "attribute", attrTag.String())
		return false
	}
	attr.Tag = attrTag
	return s.AddFloatAttribute(attr, true)
}

// RemoveFloatAttribute deletes attrTag and publishes FloatAttributeRemoved.
// The event is published even when the tag was absent; callers that care
// check HasFloatAttribute first.
func (s *Store) RemoveFloatAttribute(attrTag tag.Tag) {
	if !s.writable("RemoveFloatAttribute", attrTag) {
		return
	}
	s.mu.Lock()
	if _, ok := s.floats[attrTag]; ok {
		delete(s.floats, attrTag)
		s.dropFloatLocked(attrTag)
	}
	s.mu.Unlock()

	s.notifier.Removed(attrTag)
}

// HasFloatAttribute reports whether attrTag is present.
func (s *Store) HasFloatAttribute(attrTag tag.Tag) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.floats[attrTag]
	return ok
}

// FloatAttribute returns a copy of the stored attribute, without pending regen.
func (s *Store) FloatAttribute(attrTag tag.Tag) (attribute.FloatAttribute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.floats[attrTag]
	if !ok {
		return attribute.FloatAttribute{}, false
	}
	return *a, true
}

// FloatAttributes returns copies of every stored attribute ordered by tag.
func (s *Store) FloatAttributes() []attribute.FloatAttribute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]attribute.FloatAttribute, 0, len(s.floats))
	for _, t := range sortedTags(s.floats) {
		out = append(out, *s.floats[t])
	}
	return out
}

// SettledFloatAttributes returns copies with regen accrued up to now folded
// into CurrentValue. Stored state is not modified.
func (s *Store) SettledFloatAttributes() []attribute.FloatAttribute {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]attribute.FloatAttribute, 0, len(s.floats))
	for _, t := range sortedTags(s.floats) {
		a := s.liveLocked(s.floats[t], now)
		if s.role == RoleAuthority {
			a.LastRegenTimestamp = max(a.LastRegenTimestamp, now)
		}
		out = append(out, a)
	}
	return out
}

// FloatAttributeValue reads one field of attrTag.
//
// The authority folds in pending regeneration without committing it. A
// mirror returns stored fields, except that CurrentValue is extrapolated
// against the estimated authority time when predict is set and the
// attribute is regenerating.
func (s *Store) FloatAttributeValue(kind attribute.ValueKind, attrTag tag.Tag, predict bool) (float64, bool) {
	now := s.clock.Now()

	s.mu.RLock()
	a, ok := s.floats[attrTag]
	if !ok {
		s.mu.RUnlock()
		slog.Debug("float attribute not found", "owner", s.owner, "attribute", attrTag.String())
		return 0, false
	}
	cp := *a
	s.mu.RUnlock()

	current := cp.CurrentValue
	switch {
	case s.role == RoleAuthority:
		current = s.regen.Predict(&cp, now)
	case predict && kind == attribute.CurrentValue && cp.IsRegenerating:
		current = s.regen.Predict(&cp, now)
	}
	return attribute.Field(&cp, kind, current)
}

// SetFloatAttributeValue writes one field of attrTag.
//
// Base and current values are clamped; overflow is the signed amount cut
// off. A CurrentValueRatio target is mapped onto the ratio range and stored
// as CurrentValue. Writes to CurrentValue, CurrentRegenRate or a current
// bound of a regenerating attribute commit accrued regen first, so the new
// value applies from now on.
func (s *Store) SetFloatAttributeValue(kind attribute.ValueKind, attrTag tag.Tag, v float64) (applied bool, overflow float64) {
	if !s.writable("SetFloatAttributeValue", attrTag) {
		return false, 0
	}
	if !kind.Valid() {
		slog.Warn("unsupported value kind", "owner", s.owner, "attribute", attrTag.String(), "kind", kind)
		return false, 0
	}

	now := s.clock.Now()

	s.mu.Lock()
	a, ok := s.floats[attrTag]
	if !ok {
		s.mu.Unlock()
		slog.Debug("set on unknown float attribute", "owner", s.owner, "attribute", attrTag.String(), "kind", kind)
		return false, 0
	}
	prev := s.liveLocked(a, now)
	overflow = s.applyLocked(a, kind, v, now)
	next := s.liveLocked(a, now)
	s.touchFloatLocked(attrTag)
	s.mu.Unlock()

	s.notifier.DiffWrite(&prev, &next, kind)
	return true, overflow
}

// IncrementFloatAttributeValue adds delta to the live value of kind.
func (s *Store) IncrementFloatAttributeValue(kind attribute.ValueKind, attrTag tag.Tag, delta float64) (applied bool, overflow float64) {
	if !s.writable("IncrementFloatAttributeValue", attrTag) {
		return false, 0
	}
	v, ok := s.FloatAttributeValue(kind, attrTag, false)
	if !ok {
		return false, 0
	}
	return s.SetFloatAttributeValue(kind, attrTag, v+delta)
}

// StartRegeneration begins regenerating attrTag from its current value.
func (s *Store) StartRegeneration(attrTag tag.Tag) bool {
	return s.setRegenerating("StartRegeneration", attrTag, true)
}

// StopRegeneration commits accrued regen and stops regenerating attrTag.
func (s *Store) StopRegeneration(attrTag tag.Tag) bool {
	return s.setRegenerating("StopRegeneration", attrTag, false)
}

func (s *Store) setRegenerating(op string, attrTag tag.Tag, on bool) bool {
	if !s.writable(op, attrTag) {
		return false
	}
	now := s.clock.Now()

	s.mu.Lock()
	a, ok := s.floats[attrTag]
	if !ok {
		s.mu.Unlock()
		slog.Debug("regeneration toggle on unknown attribute", "op", op, "owner", s.owner, "attribute", attrTag.String())
		return false
	}
	if on {
		// a stale timestamp must not count as regen time
		s.regen.TrueUp(a, now)
		s.regen.Start(a)
	} else {
		s.regen.Stop(a, now)
	}
	s.touchFloatLocked(attrTag)
	s.mu.Unlock()
	return true
}

// applyLocked writes v into kind and returns the overflow.
func (s *Store) applyLocked(a *attribute.FloatAttribute, kind attribute.ValueKind, v, now float64) float64 {
	var overflow float64
	l := &a.Limits

	switch kind {
	case attribute.BaseValue:
		a.BaseValue, overflow = attribute.Clamp(a, attribute.BaseValue, v)

	case attribute.CurrentValue, attribute.CurrentValueRatio:
		if kind == attribute.CurrentValueRatio {
			v = attribute.CurrentFromRatio(a, v)
		}
		if a.IsRegenerating {
			s.regen.TrueUp(a, now)
		}
		a.CurrentValue, overflow = attribute.Clamp(a, attribute.CurrentValue, v)
		a.LastRegenTimestamp = max(a.LastRegenTimestamp, now)

	case attribute.MaxCurrentValue, attribute.MinCurrentValue:
		if a.IsRegenerating {
			s.regen.TrueUp(a, now)
		}
		if kind == attribute.MaxCurrentValue {
			l.MaxCurrent = v
		} else {
			l.MinCurrent = v
		}
		a.CurrentValue, _ = attribute.Clamp(a, attribute.CurrentValue, a.CurrentValue)

	case attribute.MaxBaseValue, attribute.MinBaseValue:
		if kind == attribute.MaxBaseValue {
			l.MaxBase = v
		} else {
			l.MinBase = v
		}
		a.BaseValue, _ = attribute.Clamp(a, attribute.BaseValue, a.BaseValue)

	case attribute.BaseRegenRate:
		a.BaseRegenRate = v

	case attribute.CurrentRegenRate:
		if a.IsRegenerating {
			s.regen.TrueUp(a, now)
		}
		a.CurrentRegenRate = v
	}
	return overflow
}

// liveLocked returns a copy of a whose CurrentValue includes regen up to now
// on the authority.
func (s *Store) liveLocked(a *attribute.FloatAttribute, now float64) attribute.FloatAttribute {
	cp := *a
	if s.role == RoleAuthority {
		cp.CurrentValue = s.regen.Predict(&cp, now)
	}
	return cp
}
