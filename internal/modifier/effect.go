package modifier

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/tag"
)

// Effect is the logic of a modifier class. One Effect value is created per
// instance, so implementations may keep per-instance state.
//
// OnApply runs once when the instance is created; for Instant modifiers
// that is all that happens. OnEnd runs when an active Duration instance
// ends or is cancelled, with the reason tag.
type Effect interface {
	OnApply(app *Application) error
	OnEnd(app *Application, reason tag.Tag)
}

// Stacker is implemented by effects that react to an extra stack.
type Stacker interface {
	OnStack(app *Application, stacks uint32)
}

// Params are the string parameters of an effect, as written in the catalog.
type Params map[string]string

// ErrMissingParam is returned when a required parameter is absent.
var ErrMissingParam = errors.New("missing effect parameter")

// Float returns key parsed as float64, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	s, ok := p[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return v, nil
}

// Bool returns key parsed as bool, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	s, ok := p[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("param %s: %w", key, err)
	}
	return v, nil
}

// Tag returns the required tag parameter key.
func (p Params) Tag(key string) (tag.Tag, error) {
	t := tag.New(p[key])
	if !t.IsValid() {
		return tag.Tag{}, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return t, nil
}

// Kind returns key parsed as a value kind, or def when absent.
func (p Params) Kind(key string, def attribute.ValueKind) (attribute.ValueKind, error) {
	s, ok := p[key]
	if !ok || s == "" {
		return def, nil
	}
	k, err := attribute.ParseValueKind(s)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return k, nil
}

// List returns key split on commas, trimmed, empty items dropped.
func (p Params) List(key string) []string {
	var out []string
	for _, item := range strings.Split(p[key], ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// EffectFactory builds an effect from catalog parameters.
type EffectFactory func(params Params) (Effect, error)

// ErrUnknownEffect is returned by CreateEffect for an unregistered name.
var ErrUnknownEffect = errors.New("unknown effect")

// effectRegistry maps effect name -> factory.
// Populated by init() in effects.go.
var effectRegistry = map[string]EffectFactory{}

// RegisterEffect registers an effect factory by name.
// Must be called during init or before any catalog is loaded.
func RegisterEffect(name string, factory EffectFactory) {
	effectRegistry[name] = factory
}

// CreateEffect creates an effect by name using the registered factory.
func CreateEffect(name string, params Params) (Effect, error) {
	factory, ok := effectRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, name)
	}
	e, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("effect %s: %w", name, err)
	}
	return e, nil
}

// EffectNames lists the registered effect names.
func EffectNames() []string {
	names := make([]string, 0, len(effectRegistry))
	for name := range effectRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
