// Package regen integrates regenerating float attributes lazily.
//
// Nothing runs per tick. The stored CurrentValue is a baseline taken at
// LastRegenTimestamp; the live value is derived on read and only committed
// ("trued up") when a regen-affecting parameter changes.
package regen

import (
	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/metrics"
)

// Engine computes and commits accrued regeneration.
// The zero value is ready to use.
type Engine struct {
	Metrics *metrics.Metrics
}

// Predict returns the value attr would hold at time t without touching it.
// A non-regenerating attribute yields its stored current value, clamped.
func (e *Engine) Predict(attr *attribute.FloatAttribute, t float64) float64 {
	v := attr.CurrentValue
	if attr.IsRegenerating {
		v += attr.CurrentRegenRate * max(0, t-attr.LastRegenTimestamp)
	}
	v, _ = attribute.Clamp(attr, attribute.CurrentValue, v)
	return v
}

// TrueUp commits the predicted value at t and moves the timestamp to t.
// The timestamp never goes backwards.
func (e *Engine) TrueUp(attr *attribute.FloatAttribute, t float64) float64 {
	v := e.Predict(attr, t)
	attr.CurrentValue = v
	if t > attr.LastRegenTimestamp {
		attr.LastRegenTimestamp = t
	}
	e.Metrics.RegenTrueUp()
	return v
}

// Start marks attr as regenerating. Value and timestamp are left alone;
// callers that may hold a stale timestamp true up first.
func (e *Engine) Start(attr *attribute.FloatAttribute) {
	attr.IsRegenerating = true
}

// Stop commits regen accrued up to t, then stops regenerating.
func (e *Engine) Stop(attr *attribute.FloatAttribute, t float64) float64 {
	v := e.TrueUp(attr, t)
	attr.IsRegenerating = false
	return v
}
