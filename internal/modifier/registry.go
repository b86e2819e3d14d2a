package modifier

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/udisondev/attrsys/internal/tag"
)

// ClassID identifies a modifier class.
type ClassID string

// Kind is Instant or Duration.
type Kind int8

const (
	// Instant modifiers resolve synchronously while applying.
	Instant Kind = iota
	// Duration modifiers stay active until they end, expire or are cancelled.
	Duration
)

func (k Kind) String() string {
	if k == Duration {
		return "duration"
	}
	return "instant"
}

// ParseKind accepts "instant" or "duration".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "instant", "":
		return Instant, nil
	case "duration":
		return Duration, nil
	default:
		return 0, fmt.Errorf("unknown modifier kind %q", s)
	}
}

// Definition describes a modifier class.
type Definition struct {
	Class    ClassID
	Kind     Kind
	CanStack bool
	Tags     tag.Set
	// Duration in seconds; 0 keeps a Duration modifier active until ended.
	Duration float64
	// New creates the effect of one instance.
	New func() Effect
}

var (
	ErrUnknownClass      = errors.New("unknown modifier class")
	ErrInvalidDefinition = errors.New("invalid modifier definition")
)

// Registry maps class id -> definition. Filled once at startup.
//
// Thread-safe.
type Registry struct {
	mu      sync.RWMutex
	classes map[ClassID]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[ClassID]Definition, 32)}
}

// Register adds or replaces def.
func (r *Registry) Register(def Definition) error {
	if def.Class == "" {
		return fmt.Errorf("%w: empty class", ErrInvalidDefinition)
	}
	if def.New == nil {
		return fmt.Errorf("%w: class %s has no effect", ErrInvalidDefinition, def.Class)
	}
	if def.Duration < 0 {
		return fmt.Errorf("%w: class %s has negative duration", ErrInvalidDefinition, def.Class)
	}

	def.Tags = def.Tags.Clone()
	r.mu.Lock()
	r.classes[def.Class] = def
	r.mu.Unlock()
	return nil
}

// Lookup returns the definition of class.
func (r *Registry) Lookup(class ClassID) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.classes[class]
	def.Tags = def.Tags.Clone()
	return def, ok
}

// Classes returns the registered class ids, sorted.
func (r *Registry) Classes() []ClassID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClassID, 0, len(r.classes))
	for c := range r.classes {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of classes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes)
}
