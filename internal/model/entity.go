package model

import (
	"github.com/udisondev/attrsys/internal/clock"
	"github.com/udisondev/attrsys/internal/event"
	"github.com/udisondev/attrsys/internal/handler"
	"github.com/udisondev/attrsys/internal/metrics"
	"github.com/udisondev/attrsys/internal/modifier"
	"github.com/udisondev/attrsys/internal/store"
)

// Entity: объект мира, владеющий атрибутами и модификаторами.
// Одна сущность = один Store (authority или mirror) + один modifier.Runtime,
// оба делят общий кэш обработчиков struct-атрибутов.
type Entity struct {
	objectID uint32
	name     string

	handlers  *handler.Cache
	store     *store.Store
	modifiers *modifier.Runtime
}

// EntityConfig: зависимости для создания сущности.
type EntityConfig struct {
	Role     store.Role
	Clock    clock.Clock
	Bus      event.Bus
	Registry *modifier.Registry
	Metrics  *metrics.Metrics

	// Опциональные внешние коллабораторы модификаторов.
	Abilities modifier.AbilityPipeline
	Resolver  modifier.Resolver
}

// NewEntity создаёт сущность с пустыми атрибутами.
func NewEntity(objectID uint32, name string, cfg EntityConfig) *Entity {
	handlers := handler.NewCache(objectID)
	st := store.New(objectID, cfg.Role, cfg.Clock, cfg.Bus,
		store.WithHandlers(handlers),
		store.WithMetrics(cfg.Metrics),
	)

	opts := []modifier.Option{modifier.WithMetrics(cfg.Metrics)}
	if cfg.Abilities != nil {
		opts = append(opts, modifier.WithAbilityPipeline(cfg.Abilities))
	}
	if cfg.Resolver != nil {
		opts = append(opts, modifier.WithResolver(cfg.Resolver))
	}

	return &Entity{
		objectID:  objectID,
		name:      name,
		handlers:  handlers,
		store:     st,
		modifiers: modifier.NewRuntime(st, cfg.Registry, cfg.Bus, opts...),
	}
}

// ObjectID возвращает уникальный ID сущности (immutable).
func (e *Entity) ObjectID() uint32 { return e.objectID }

// Name возвращает имя сущности.
func (e *Entity) Name() string { return e.name }

// Attributes возвращает хранилище атрибутов.
func (e *Entity) Attributes() *store.Store { return e.store }

// Modifiers возвращает runtime модификаторов, размещённых на сущности.
func (e *Entity) Modifiers() *modifier.Runtime { return e.modifiers }

// Handlers возвращает кэш обработчиков struct-атрибутов.
func (e *Entity) Handlers() *handler.Cache { return e.handlers }

// IsAuthority сообщает, является ли копия авторитетной.
func (e *Entity) IsAuthority() bool { return e.store.IsAuthority() }
