package clock

import (
	"sync"
	"time"
)

// Clock is the authoritative time source shared by regeneration math.
// Now returns seconds and must never go backwards.
type Clock interface {
	Now() float64
}

// Wall measures seconds elapsed since it was created.
type Wall struct {
	start time.Time
}

// NewWall starts a wall clock at zero.
func NewWall() *Wall {
	return &Wall{start: time.Now()}
}

// Now returns seconds since NewWall.
func (w *Wall) Now() float64 {
	return time.Since(w.start).Seconds()
}

// Manual is a clock driven by the caller. Used by tests and by hosts that
// step simulation time explicitly.
type Manual struct {
	mu  sync.RWMutex
	now float64
}

// NewManual returns a manual clock starting at t.
func NewManual(t float64) *Manual {
	return &Manual{now: t}
}

// Now returns the current manual time.
func (m *Manual) Now() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the clock forward by dt seconds. Negative steps are ignored.
func (m *Manual) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	m.mu.Lock()
	m.now += dt
	m.mu.Unlock()
}

// Set jumps to t if t is not earlier than the current time.
func (m *Manual) Set(t float64) {
	m.mu.Lock()
	if t > m.now {
		m.now = t
	}
	m.mu.Unlock()
}

// Offset estimates authoritative time on an observer: local time plus the
// last measured skew. Skew estimation itself belongs to the transport layer.
// The returned value is kept non-decreasing even if the skew estimate drops.
type Offset struct {
	mu     sync.Mutex
	local  Clock
	offset float64
	last   float64
}

// NewOffset wraps a local clock with an initial skew.
func NewOffset(local Clock, offset float64) *Offset {
	return &Offset{local: local, offset: offset}
}

// SetOffset updates the skew estimate.
func (o *Offset) SetOffset(offset float64) {
	o.mu.Lock()
	o.offset = offset
	o.mu.Unlock()
}

// Now returns the estimated authoritative time.
func (o *Offset) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := o.local.Now() + o.offset
	if t < o.last {
		return o.last
	}
	o.last = t
	return t
}
