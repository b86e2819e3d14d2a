package attribute

import "github.com/udisondev/attrsys/internal/tag"

// ValueLimits holds four independently optional bounds.
type ValueLimits struct {
	UseMaxCurrent bool    `yaml:"use_max_current"`
	MaxCurrent    float64 `yaml:"max_current"`
	UseMinCurrent bool    `yaml:"use_min_current"`
	MinCurrent    float64 `yaml:"min_current"`
	UseMaxBase    bool    `yaml:"use_max_base"`
	MaxBase       float64 `yaml:"max_base"`
	UseMinBase    bool    `yaml:"use_min_base"`
	MinBase       float64 `yaml:"min_base"`
}

// FloatAttribute is a numeric attribute such as health or stamina.
//
// CurrentValue is only meaningful together with LastRegenTimestamp when
// IsRegenerating is set: the live value is CurrentValue plus
// CurrentRegenRate for every second since the timestamp, clamped.
type FloatAttribute struct {
	Tag  tag.Tag `yaml:"tag"`
	Name string  `yaml:"name"`

	BaseValue    float64     `yaml:"base_value"`
	CurrentValue float64     `yaml:"current_value"`
	Limits       ValueLimits `yaml:"limits"`

	BaseRegenRate      float64 `yaml:"base_regen_rate"`
	CurrentRegenRate   float64 `yaml:"current_regen_rate"`
	IsRegenerating     bool    `yaml:"is_regenerating"`
	LastRegenTimestamp float64 `yaml:"-"`
}

// Clamp bounds v according to kind. BaseValue is checked against the base
// limits, CurrentValue against the current limits; every other kind passes
// through unchanged.
//
// overflow is the signed distance past the violated bound: positive above
// max, negative below min, zero when within bounds. The max bound is checked
// first.
func Clamp(a *FloatAttribute, kind ValueKind, v float64) (clamped, overflow float64) {
	l := &a.Limits
	switch kind {
	case BaseValue:
		return clampPair(v, l.UseMinBase, l.MinBase, l.UseMaxBase, l.MaxBase)
	case CurrentValue:
		return clampPair(v, l.UseMinCurrent, l.MinCurrent, l.UseMaxCurrent, l.MaxCurrent)
	default:
		return v, 0
	}
}

func clampPair(v float64, useMin bool, lo float64, useMax bool, hi float64) (float64, float64) {
	if useMax && v > hi {
		return hi, v - hi
	}
	if useMin && v < lo {
		return lo, v - lo
	}
	return v, 0
}

// ClampInPlace forces base and current into their enabled bounds.
// Returns true if anything changed.
func ClampInPlace(a *FloatAttribute) bool {
	base, _ := Clamp(a, BaseValue, a.BaseValue)
	cur, _ := Clamp(a, CurrentValue, a.CurrentValue)
	changed := base != a.BaseValue || cur != a.CurrentValue
	a.BaseValue = base
	a.CurrentValue = cur
	return changed
}

// ratioRange returns the interval a ratio of 0..1 maps onto:
// min is MinCurrent if enabled else 0, max is MaxCurrent if enabled else BaseValue.
func ratioRange(a *FloatAttribute) (lo, hi float64) {
	if a.Limits.UseMinCurrent {
		lo = a.Limits.MinCurrent
	}
	hi = a.BaseValue
	if a.Limits.UseMaxCurrent {
		hi = a.Limits.MaxCurrent
	}
	return lo, hi
}

// Ratio reads current relative to the enabled bounds: (current-min)/(max-min)
// with both current bounds, current/max with only the upper one, otherwise
// current/base. A zero denominator reads as 0.
func Ratio(a *FloatAttribute, current float64) float64 {
	l := &a.Limits
	var num, den float64
	switch {
	case l.UseMinCurrent && l.UseMaxCurrent:
		num, den = current-l.MinCurrent, l.MaxCurrent-l.MinCurrent
	case l.UseMaxCurrent:
		num, den = current, l.MaxCurrent
	default:
		num, den = current, a.BaseValue
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// CurrentFromRatio maps r (clamped to 0..1) back onto the ratio range.
// An empty range yields its lower end.
func CurrentFromRatio(a *FloatAttribute, r float64) float64 {
	lo, hi := ratioRange(a)
	span := hi - lo
	if span == 0 {
		return lo
	}
	return clamp01(r)*span + lo
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Field returns the stored value of kind using current as the live current
// value. Disabled limits read as 0. ok is false for unsupported kinds.
func Field(a *FloatAttribute, kind ValueKind, current float64) (v float64, ok bool) {
	l := &a.Limits
	switch kind {
	case BaseValue:
		return a.BaseValue, true
	case CurrentValue:
		return current, true
	case MaxCurrentValue:
		return enabled(l.UseMaxCurrent, l.MaxCurrent), true
	case MinCurrentValue:
		return enabled(l.UseMinCurrent, l.MinCurrent), true
	case MaxBaseValue:
		return enabled(l.UseMaxBase, l.MaxBase), true
	case MinBaseValue:
		return enabled(l.UseMinBase, l.MinBase), true
	case CurrentValueRatio:
		return Ratio(a, current), true
	case BaseRegenRate:
		return a.BaseRegenRate, true
	case CurrentRegenRate:
		return a.CurrentRegenRate, true
	default:
		return 0, false
	}
}

func enabled(use bool, v float64) float64 {
	if use {
		return v
	}
	return 0
}
