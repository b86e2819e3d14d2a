package event

import "github.com/udisondev/attrsys/internal/tag"

// Domains for value-changed events.
var (
	AuthorityDomain = tag.New("Attrsys.Domain.Attribute.Authority")
	LocalDomain     = tag.New("Attrsys.Domain.Attribute.Local")
)

// Float attribute events.
var (
	FloatAttributeAdded                   = tag.New("Attrsys.Event.Attribute.Float.Added")
	FloatAttributeRemoved                 = tag.New("Attrsys.Event.Attribute.Float.Removed")
	FloatAttributeBaseValueChanged        = tag.New("Attrsys.Event.Attribute.Float.Changed.BaseValue")
	FloatAttributeCurrentValueChanged     = tag.New("Attrsys.Event.Attribute.Float.Changed.CurrentValue")
	FloatAttributeMaxBaseValueChanged     = tag.New("Attrsys.Event.Attribute.Float.Changed.MaxBaseValue")
	FloatAttributeMinBaseValueChanged     = tag.New("Attrsys.Event.Attribute.Float.Changed.MinBaseValue")
	FloatAttributeMaxCurrentValueChanged  = tag.New("Attrsys.Event.Attribute.Float.Changed.MaxCurrentValue")
	FloatAttributeMinCurrentValueChanged  = tag.New("Attrsys.Event.Attribute.Float.Changed.MinCurrentValue")
	FloatAttributeBaseRegenRateChanged    = tag.New("Attrsys.Event.Attribute.Float.Changed.BaseRegenRate")
	FloatAttributeCurrentRegenRateChanged = tag.New("Attrsys.Event.Attribute.Float.Changed.CurrentRegenRate")
)

// Struct attribute events.
var (
	StructAttributeAdded        = tag.New("Attrsys.Event.Attribute.Struct.Added")
	StructAttributeRemoved      = tag.New("Attrsys.Event.Attribute.Struct.Removed")
	StructAttributeValueChanged = tag.New("Attrsys.Event.Attribute.Struct.Changed")
)

// Modifier lifecycle events and end reasons.
var (
	ModifierApplied = tag.New("Attrsys.Event.Modifier.Applied")
	ModifierStacked = tag.New("Attrsys.Event.Modifier.Stacked")
	ModifierEnded   = tag.New("Attrsys.Event.Modifier.Ended")

	AbilityEnded     = tag.New("Attrsys.Event.Ability.Ended")
	AbilityCancelled = tag.New("Attrsys.Event.Ability.Cancelled")
)
