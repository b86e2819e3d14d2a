package world

import (
	"fmt"
	"sync"

	"github.com/udisondev/attrsys/internal/model"
	"github.com/udisondev/attrsys/internal/modifier"
)

// World is the directory of live entities of one process. It resolves
// entity IDs for cross-entity modifier applications and cascades.
type World struct {
	entities sync.Map // map[uint32]*model.Entity
	ids      *ObjectIDGenerator
}

// New creates an empty world.
func New() *World {
	return &World{ids: NewObjectIDGenerator()}
}

// IDs returns the world's ID generator.
func (w *World) IDs() *ObjectIDGenerator { return w.ids }

// AddEntity registers e. Fails if the ID is already taken.
func (w *World) AddEntity(e *model.Entity) error {
	if _, loaded := w.entities.LoadOrStore(e.ObjectID(), e); loaded {
		return fmt.Errorf("entity %d already in world", e.ObjectID())
	}
	return nil
}

// RemoveEntity drops the entity with objectID.
// Its active modifiers are left as they are; callers cancel them first.
func (w *World) RemoveEntity(objectID uint32) {
	w.entities.Delete(objectID)
}

// Entity returns the entity with objectID.
func (w *World) Entity(objectID uint32) (*model.Entity, bool) {
	v, ok := w.entities.Load(objectID)
	if !ok {
		return nil, false
	}
	return v.(*model.Entity), true
}

// Runtime implements modifier.Resolver.
func (w *World) Runtime(objectID uint32) (*modifier.Runtime, bool) {
	e, ok := w.Entity(objectID)
	if !ok {
		return nil, false
	}
	return e.Modifiers(), true
}

// ForEachEntity calls fn for every entity until fn returns false.
func (w *World) ForEachEntity(fn func(*model.Entity) bool) {
	w.entities.Range(func(_, v any) bool {
		return fn(v.(*model.Entity))
	})
}

// EntityCount returns the number of registered entities.
func (w *World) EntityCount() int {
	n := 0
	w.entities.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
