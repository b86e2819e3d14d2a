// Package notify turns attribute snapshots into change events.
package notify

import (
	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/event"
	"github.com/udisondev/attrsys/internal/metrics"
	"github.com/udisondev/attrsys/internal/tag"
)

// Notifier publishes the events of one attribute collection.
//
// Value-changed events go out on Domain (AuthorityDomain or LocalDomain).
// Added/Removed events use the attribute tag itself as domain; listeners
// filter on both conventions.
type Notifier struct {
	Owner   uint32
	Domain  tag.Tag
	Bus     event.Bus
	Metrics *metrics.Metrics
}

// New creates a notifier for owner publishing value changes on domain.
func New(owner uint32, domain tag.Tag, bus event.Bus, m *metrics.Metrics) *Notifier {
	if bus == nil {
		bus = event.Discard
	}
	return &Notifier{Owner: owner, Domain: domain, Bus: bus, Metrics: m}
}

// changedEvents maps a value kind to its changed-event tag.
// CurrentValueRatio has no event of its own: it is stored as CurrentValue.
var changedEvents = map[attribute.ValueKind]tag.Tag{
	attribute.BaseValue:         event.FloatAttributeBaseValueChanged,
	attribute.CurrentValue:      event.FloatAttributeCurrentValueChanged,
	attribute.CurrentValueRatio: event.FloatAttributeCurrentValueChanged,
	attribute.MaxCurrentValue:   event.FloatAttributeMaxCurrentValueChanged,
	attribute.MinCurrentValue:   event.FloatAttributeMinCurrentValueChanged,
	attribute.MaxBaseValue:      event.FloatAttributeMaxBaseValueChanged,
	attribute.MinBaseValue:      event.FloatAttributeMinBaseValueChanged,
	attribute.BaseRegenRate:     event.FloatAttributeBaseRegenRateChanged,
	attribute.CurrentRegenRate:  event.FloatAttributeCurrentRegenRateChanged,
}

// ChangedEvent returns the event tag published when kind changes.
func ChangedEvent(kind attribute.ValueKind) (tag.Tag, bool) {
	t, ok := changedEvents[kind]
	return t, ok
}

// Diff compares prev and next field by field and returns one event per field
// that differs. Bounds are only compared when next has them enabled.
// Equality is exact.
func (n *Notifier) Diff(prev, next *attribute.FloatAttribute) []event.Event {
	var out []event.Event
	add := func(kind attribute.ValueKind, before, after float64) {
		if before != after {
			out = append(out, n.valueEvent(next.Tag, kind, after))
		}
	}

	ol, nl := &prev.Limits, &next.Limits
	add(attribute.BaseValue, prev.BaseValue, next.BaseValue)
	if nl.UseMaxBase {
		add(attribute.MaxBaseValue, ol.MaxBase, nl.MaxBase)
	}
	if nl.UseMinBase {
		add(attribute.MinBaseValue, ol.MinBase, nl.MinBase)
	}
	add(attribute.CurrentValue, prev.CurrentValue, next.CurrentValue)
	if nl.UseMaxCurrent {
		add(attribute.MaxCurrentValue, ol.MaxCurrent, nl.MaxCurrent)
	}
	if nl.UseMinCurrent {
		add(attribute.MinCurrentValue, ol.MinCurrent, nl.MinCurrent)
	}
	add(attribute.BaseRegenRate, prev.BaseRegenRate, next.BaseRegenRate)
	add(attribute.CurrentRegenRate, prev.CurrentRegenRate, next.CurrentRegenRate)
	return out
}

// DiffAndEmit publishes Diff(prev, next). Returns the number of events.
func (n *Notifier) DiffAndEmit(prev, next *attribute.FloatAttribute) int {
	events := n.Diff(prev, next)
	n.Emit(events...)
	return len(events)
}

// DiffWrite is DiffAndEmit for a write to kind. A write to a disabled bound
// still publishes that bound's event when the stored field changed.
func (n *Notifier) DiffWrite(prev, next *attribute.FloatAttribute, kind attribute.ValueKind) int {
	events := n.Diff(prev, next)
	if before, after, on, ok := bound(prev, next, kind); ok && !on && before != after {
		events = append(events, n.valueEvent(next.Tag, kind, after))
	}
	n.Emit(events...)
	return len(events)
}

// bound returns the stored field of a bound kind in prev and next and
// whether next has it enabled. ok is false for non-bound kinds.
func bound(prev, next *attribute.FloatAttribute, kind attribute.ValueKind) (before, after float64, on, ok bool) {
	ol, nl := &prev.Limits, &next.Limits
	switch kind {
	case attribute.MaxCurrentValue:
		return ol.MaxCurrent, nl.MaxCurrent, nl.UseMaxCurrent, true
	case attribute.MinCurrentValue:
		return ol.MinCurrent, nl.MinCurrent, nl.UseMinCurrent, true
	case attribute.MaxBaseValue:
		return ol.MaxBase, nl.MaxBase, nl.UseMaxBase, true
	case attribute.MinBaseValue:
		return ol.MinBase, nl.MinBase, nl.UseMinBase, true
	default:
		return 0, 0, false, false
	}
}

// ValueChanged publishes the changed event of one field.
func (n *Notifier) ValueChanged(attrTag tag.Tag, kind attribute.ValueKind, v float64) {
	n.Emit(n.valueEvent(attrTag, kind, v))
}

func (n *Notifier) valueEvent(attrTag tag.Tag, kind attribute.ValueKind, v float64) event.Event {
	if kind == attribute.CurrentValueRatio {
		kind = attribute.CurrentValue
	}
	return event.Event{
		Tag:    changedEvents[kind],
		Domain: n.Domain,
		Payload: attribute.FloatModification{
			Owner:    n.Owner,
			Tag:      attrTag,
			Kind:     kind,
			NewValue: v,
		},
		Sender: n.Owner,
	}
}

// Added publishes FloatAttributeAdded with a copy of attr.
func (n *Notifier) Added(attr attribute.FloatAttribute) {
	n.Emit(event.Event{
		Tag:     event.FloatAttributeAdded,
		Domain:  attr.Tag,
		Payload: attr,
		Sender:  n.Owner,
	})
}

// Removed publishes FloatAttributeRemoved for attrTag.
func (n *Notifier) Removed(attrTag tag.Tag) {
	n.Emit(event.Event{
		Tag:     event.FloatAttributeRemoved,
		Domain:  attrTag,
		Payload: attrTag,
		Sender:  n.Owner,
	})
}

// StructAdded publishes StructAttributeAdded with a copy of attr.
func (n *Notifier) StructAdded(attr attribute.StructAttribute) {
	n.Emit(event.Event{
		Tag:     event.StructAttributeAdded,
		Domain:  attr.Tag,
		Payload: attr.Clone(),
		Sender:  n.Owner,
	})
}

// StructRemoved publishes StructAttributeRemoved for attrTag.
func (n *Notifier) StructRemoved(attrTag tag.Tag) {
	n.Emit(event.Event{
		Tag:     event.StructAttributeRemoved,
		Domain:  attrTag,
		Payload: attrTag,
		Sender:  n.Owner,
	})
}

// StructChanged publishes StructAttributeValueChanged carrying the handler's tags.
func (n *Notifier) StructChanged(attrTag tag.Tag, oldValue, newValue any, modTags tag.Set) {
	n.Emit(event.Event{
		Tag:    event.StructAttributeValueChanged,
		Domain: n.Domain,
		Payload: attribute.StructModification{
			Owner:            n.Owner,
			Tag:              attrTag,
			OldValue:         oldValue,
			NewValue:         newValue,
			ModificationTags: modTags,
		},
		Sender: n.Owner,
	})
}

// Emit publishes events in order.
func (n *Notifier) Emit(events ...event.Event) {
	for _, e := range events {
		n.Bus.Publish(e)
		n.Metrics.EventPublished(e.Tag.String())
	}
}
