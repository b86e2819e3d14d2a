package modifier

import (
	"fmt"
	"log/slog"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/handler"
	"github.com/udisondev/attrsys/internal/tag"
)

func init() {
	RegisterEffect("FloatDelta", NewFloatDelta)
	RegisterEffect("RegenRate", NewRegenRate)
	RegisterEffect("ValuesDelta", NewValuesDelta)
	RegisterEffect("TriggerModifiers", NewTriggerModifiers)
	RegisterEffect("TriggerAbility", NewTriggerAbility)
}

// FloatDelta adds Delta to one field of a float attribute on the target,
// once per application and once per extra stack. With Revert set, the
// total is subtracted again when a Duration instance ends.
//
// Params: attribute (required), kind (default CurrentValue), delta, revert.
type FloatDelta struct {
	Attribute tag.Tag
	Kind      attribute.ValueKind
	Delta     float64
	Revert    bool

	applied float64
}

func NewFloatDelta(p Params) (Effect, error) {
	attr, err := p.Tag("attribute")
	if err != nil {
		return nil, err
	}
	kind, err := p.Kind("kind", attribute.CurrentValue)
	if err != nil {
		return nil, err
	}
	delta, err := p.Float("delta", 0)
	if err != nil {
		return nil, err
	}
	revert, err := p.Bool("revert", false)
	if err != nil {
		return nil, err
	}
	return &FloatDelta{Attribute: attr, Kind: kind, Delta: delta, Revert: revert}, nil
}

func (e *FloatDelta) OnApply(app *Application) error {
	if !e.add(app, e.Delta) {
		return fmt.Errorf("attribute %s not found on %d", e.Attribute, app.Target.Owner())
	}
	return nil
}

func (e *FloatDelta) OnStack(app *Application, _ uint32) {
	e.add(app, e.Delta)
}

func (e *FloatDelta) OnEnd(app *Application, _ tag.Tag) {
	if e.Revert && e.applied != 0 {
		e.add(app, -e.applied)
	}
}

func (e *FloatDelta) add(app *Application, delta float64) bool {
	ok, _ := app.Target.IncrementFloatAttributeValue(e.Kind, e.Attribute, delta)
	if ok {
		e.applied += delta
	}
	return ok
}

// RegenRate raises the current regen rate of an attribute and starts it
// regenerating. The raise is undone when the instance ends; regeneration
// stops once the rate is back to zero.
//
// Params: attribute (required), rate.
type RegenRate struct {
	Attribute tag.Tag
	Rate      float64

	applied float64
}

func NewRegenRate(p Params) (Effect, error) {
	attr, err := p.Tag("attribute")
	if err != nil {
		return nil, err
	}
	rate, err := p.Float("rate", 0)
	if err != nil {
		return nil, err
	}
	return &RegenRate{Attribute: attr, Rate: rate}, nil
}

func (e *RegenRate) OnApply(app *Application) error {
	if !e.raise(app, e.Rate) {
		return fmt.Errorf("attribute %s not found on %d", e.Attribute, app.Target.Owner())
	}
	app.Target.StartRegeneration(e.Attribute)
	return nil
}

func (e *RegenRate) OnStack(app *Application, _ uint32) {
	e.raise(app, e.Rate)
}

func (e *RegenRate) OnEnd(app *Application, _ tag.Tag) {
	if e.applied == 0 {
		return
	}
	e.raise(app, -e.applied)
	if rate, ok := app.Target.FloatAttributeValue(attribute.CurrentRegenRate, e.Attribute, false); ok && rate == 0 {
		app.Target.StopRegeneration(e.Attribute)
	}
}

func (e *RegenRate) raise(app *Application, delta float64) bool {
	ok, _ := app.Target.IncrementFloatAttributeValue(attribute.CurrentRegenRate, e.Attribute, delta)
	if ok {
		e.applied += delta
	}
	return ok
}

// ValuesDelta adds Delta to one key of a handler.Values struct attribute.
//
// Params: attribute (required), key (required), delta, revert.
type ValuesDelta struct {
	Attribute tag.Tag
	Key       string
	Delta     float64
	Revert    bool

	applied float64
}

func NewValuesDelta(p Params) (Effect, error) {
	attr, err := p.Tag("attribute")
	if err != nil {
		return nil, err
	}
	key := p["key"]
	if key == "" {
		return nil, fmt.Errorf("%w: key", ErrMissingParam)
	}
	delta, err := p.Float("delta", 0)
	if err != nil {
		return nil, err
	}
	revert, err := p.Bool("revert", false)
	if err != nil {
		return nil, err
	}
	return &ValuesDelta{Attribute: attr, Key: key, Delta: delta, Revert: revert}, nil
}

func (e *ValuesDelta) OnApply(app *Application) error {
	return e.add(app, e.Delta)
}

func (e *ValuesDelta) OnStack(app *Application, _ uint32) {
	if err := e.add(app, e.Delta); err != nil {
		slog.Warn("values delta stack failed", "attribute", e.Attribute.String(), "error", err)
	}
}

func (e *ValuesDelta) OnEnd(app *Application, _ tag.Tag) {
	if e.Revert && e.applied != 0 {
		if err := e.add(app, -e.applied); err != nil {
			slog.Warn("values delta revert failed", "attribute", e.Attribute.String(), "error", err)
		}
	}
}

func (e *ValuesDelta) add(app *Application, delta float64) error {
	v, ok := app.Target.StructAttributeValue(e.Attribute)
	if !ok {
		return fmt.Errorf("struct attribute %s not found on %d", e.Attribute, app.Target.Owner())
	}
	vals, ok := v.(handler.Values)
	if !ok {
		return fmt.Errorf("struct attribute %s holds %T, not values", e.Attribute, v)
	}
	if vals == nil {
		vals = handler.Values{}
	}
	vals[e.Key] += delta
	if !app.Target.SetStructAttributeValue(e.Attribute, vals) {
		return fmt.Errorf("struct attribute %s not writable", e.Attribute)
	}
	e.applied += delta
	return nil
}

// TriggerModifiers applies further modifier classes when it is applied.
// Target "self" (default) applies them to the host, "instigator" to whoever
// applied this modifier. The applications are recorded as side effects.
//
// Params: classes (comma separated, required), target.
type TriggerModifiers struct {
	Classes      []ClassID
	ToInstigator bool
}

func NewTriggerModifiers(p Params) (Effect, error) {
	names := p.List("classes")
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: classes", ErrMissingParam)
	}
	classes := make([]ClassID, len(names))
	for i, n := range names {
		classes[i] = ClassID(n)
	}
	var toInstigator bool
	switch p["target"] {
	case "", "self":
	case "instigator":
		toInstigator = true
	default:
		return nil, fmt.Errorf("param target: unknown value %q", p["target"])
	}
	return &TriggerModifiers{Classes: classes, ToInstigator: toInstigator}, nil
}

func (e *TriggerModifiers) OnApply(app *Application) error {
	target := app.Host().Owner()
	if e.ToInstigator {
		target = app.Instigator
	}
	for _, class := range e.Classes {
		if _, ok := app.ApplyModifier(target, class, app.Context); !ok {
			slog.Debug("triggered modifier not applied", "class", class, "target", target, "parent", app.Class)
		}
	}
	return nil
}

func (e *TriggerModifiers) OnEnd(*Application, tag.Tag) {}

// TriggerAbility activates an ability of the host entity.
//
// Params: ability (required).
type TriggerAbility struct {
	Ability string
}

func NewTriggerAbility(p Params) (Effect, error) {
	ability := p["ability"]
	if ability == "" {
		return nil, fmt.Errorf("%w: ability", ErrMissingParam)
	}
	return &TriggerAbility{Ability: ability}, nil
}

func (e *TriggerAbility) OnApply(app *Application) error {
	if _, ok := app.TriggerAbility(e.Ability, app.Context); !ok {
		return fmt.Errorf("ability %s not activated", e.Ability)
	}
	return nil
}

func (e *TriggerAbility) OnEnd(*Application, tag.Tag) {}
