package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/udisondev/attrsys/internal/tag"
)

// TypeID identifies a handler implementation. The zero value means "no handler".
type TypeID string

// Handler derives "what changed" tags for one struct payload type.
// Implementations may keep per-entity state; one instance lives per type per entity.
type Handler interface {
	ModificationEvents(attrTag tag.Tag, oldValue, newValue any) tag.Set
}

// Factory creates a handler bound to the owning entity.
type Factory func(ownerObjID uint32) Handler

// ErrUnknownHandler is returned for a TypeID with no registered factory.
var ErrUnknownHandler = errors.New("unknown struct attribute handler")

// registry maps handler type -> factory. Populated at startup via Register
// (built-ins in init()), then only read.
var (
	registryMu sync.RWMutex
	registry   = map[TypeID]Factory{}
)

// Register installs a factory for id, replacing any previous one.
func Register(id TypeID, f Factory) {
	registryMu.Lock()
	registry[id] = f
	registryMu.Unlock()
}

// IsRegistered reports whether id has a factory.
func IsRegistered(id TypeID) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[id]
	return ok
}

// Create instantiates a handler of type id for an entity.
func Create(id TypeID, ownerObjID uint32) (Handler, error) {
	registryMu.RLock()
	f, ok := registry[id]
	registryMu.RUnlock()
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHandler, id)
	}
	return f(ownerObjID), nil
}

// Cache holds the handler instances of one entity, created lazily on first
// use and kept for the entity's lifetime.
//
// Thread-safe.
type Cache struct {
	mu        sync.Mutex
	owner     uint32
	instances map[TypeID]Handler
}

// NewCache creates an empty cache for ownerObjID.
func NewCache(ownerObjID uint32) *Cache {
	return &Cache{owner: ownerObjID, instances: make(map[TypeID]Handler, 4)}
}

// Get returns the entity's handler of type id, creating it if needed.
func (c *Cache) Get(id TypeID) (Handler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.instances[id]; ok {
		return h, nil
	}
	h, err := Create(id, c.owner)
	if err != nil {
		return nil, err
	}
	c.instances[id] = h
	return h, nil
}

// Len returns how many handler instances were created.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances)
}

// ModificationEvents resolves the handler for id and asks it what changed.
// A zero id or an unknown handler yields an empty set; the latter is logged.
func (c *Cache) ModificationEvents(id TypeID, attrTag tag.Tag, oldValue, newValue any) tag.Set {
	if id == "" {
		return tag.Set{}
	}
	h, err := c.Get(id)
	if err != nil {
		slog.Warn("struct attribute handler unavailable",
			"handler", id,
			"attribute", attrTag.String(),
			"owner", c.owner,
			"error", err)
		return tag.Set{}
	}
	return h.ModificationEvents(attrTag, oldValue, newValue)
}
