package modifier

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Status of an activation.
type Status int8

const (
	StatusActive Status = iota
	StatusEnded
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AbilitySideEffect is an ability activation triggered by an execution.
type AbilitySideEffect struct {
	AbilityID  uuid.UUID
	OwnerObjID uint32
}

// ModifierSideEffect is a modifier application triggered by an execution.
type ModifierSideEffect struct {
	InstanceID uuid.UUID
	HostObjID  uint32
}

// ModifierResult lists the side effects of one execution.
type ModifierResult struct {
	AbilitySideEffects  []AbilitySideEffect
	ModifierSideEffects []ModifierSideEffect
}

// IsEmpty reports whether nothing was triggered.
func (r ModifierResult) IsEmpty() bool {
	return len(r.AbilitySideEffects) == 0 && len(r.ModifierSideEffects) == 0
}

func (r ModifierResult) clone() ModifierResult {
	return ModifierResult{
		AbilitySideEffects:  slices.Clone(r.AbilitySideEffects),
		ModifierSideEffects: slices.Clone(r.ModifierSideEffects),
	}
}

// Snapshot records what one execution triggered, for cascade cancellation.
type Snapshot struct {
	Timestamp float64
	Result    ModifierResult
}

// AbilityState is the activation history of a modifier instance or an
// ability, keyed by its id.
type AbilityState struct {
	ID          uuid.UUID
	Class       string
	ActivatedAt float64
	Context     any
	Status      Status
	Snapshots   []Snapshot
}

func (s *AbilityState) clone() AbilityState {
	cp := *s
	cp.Snapshots = make([]Snapshot, len(s.Snapshots))
	for i, snap := range s.Snapshots {
		cp.Snapshots[i] = Snapshot{Timestamp: snap.Timestamp, Result: snap.Result.clone()}
	}
	return cp
}

// States is a collection of activation states. A runtime keeps one: the
// authoritative collection on the authority, the local one on a mirror.
//
// Thread-safe.
type States struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*AbilityState
	order []uuid.UUID
}

// NewStates creates an empty collection.
func NewStates() *States {
	return &States{byID: make(map[uuid.UUID]*AbilityState, 16)}
}

// Put records s, replacing any state with the same id.
func (c *States) Put(s AbilityState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[s.ID]; !ok {
		c.order = append(c.order, s.ID)
	}
	cp := s.clone()
	c.byID[s.ID] = &cp
}

// Get returns a copy of the state of id.
func (c *States) Get(id uuid.UUID) (AbilityState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	if !ok {
		return AbilityState{}, false
	}
	return s.clone(), true
}

// AddSnapshot appends snap to the history of id.
func (c *States) AddSnapshot(id uuid.UUID, snap Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	if !ok {
		return false
	}
	s.Snapshots = append(s.Snapshots, Snapshot{Timestamp: snap.Timestamp, Result: snap.Result.clone()})
	return true
}

// SetStatus updates the status of id.
func (c *States) SetStatus(id uuid.UUID, status Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	if !ok {
		return false
	}
	s.Status = status
	return true
}

// All returns copies in insertion order.
func (c *States) All() []AbilityState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AbilityState, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].clone())
	}
	return out
}

// Len returns the number of states.
func (c *States) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Forget drops resolved states activated before t. Active states are kept.
// Returns how many were dropped.
func (c *States) Forget(before float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.order[:0]
	n := 0
	for _, id := range c.order {
		s := c.byID[id]
		if s.Status != StatusActive && s.ActivatedAt < before {
			delete(c.byID, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	clear(c.order[len(kept):])
	c.order = kept
	return n
}
