// Package sim runs a set of authority entities against a rotation of
// modifier classes and replicates their attributes to mirror copies.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/clock"
	"github.com/udisondev/attrsys/internal/config"
	"github.com/udisondev/attrsys/internal/event"
	"github.com/udisondev/attrsys/internal/handler"
	"github.com/udisondev/attrsys/internal/metrics"
	"github.com/udisondev/attrsys/internal/model"
	"github.com/udisondev/attrsys/internal/modifier"
	"github.com/udisondev/attrsys/internal/store"
	"github.com/udisondev/attrsys/internal/tag"
	"github.com/udisondev/attrsys/internal/world"
)

// Repository persists settled float attributes between runs.
type Repository interface {
	SaveFloatAttributes(ctx context.Context, entityID int64, attrs []attribute.FloatAttribute) error
	LoadFloatAttributes(ctx context.Context, entityID int64) ([]attribute.FloatAttribute, error)
}

// Deps are the collaborators of a Simulation. Repo may be nil.
type Deps struct {
	Clock    clock.Clock
	Bus      *event.Dispatcher
	Registry *modifier.Registry
	Metrics  *metrics.Metrics
	Repo     Repository
}

// Simulation owns the authority world, its mirror world and the loops
// driving them.
type Simulation struct {
	cfg       config.Sim
	clock     clock.Clock
	bus       *event.Dispatcher
	registry  *modifier.Registry
	metrics   *metrics.Metrics
	repo      Repository
	abilities *AbilityLog

	authority *world.World
	mirrors   *world.World
	order     []uint32

	mu       sync.Mutex
	versions map[uint32]uint64
	step     int
}

// New creates cfg.Entities authority entities, seeds their attributes from
// the repository (when it has rows) or from cfg, and creates one mirror per
// entity on a clock skewed by cfg.ClockSkew.
func New(ctx context.Context, cfg config.Sim, deps Deps) (*Simulation, error) {
	if deps.Clock == nil {
		deps.Clock = clock.NewWall()
	}
	if deps.Bus == nil {
		deps.Bus = event.NewDispatcher()
	}
	if deps.Registry == nil {
		deps.Registry = modifier.NewRegistry()
	}

	s := &Simulation{
		cfg:       cfg,
		clock:     deps.Clock,
		bus:       deps.Bus,
		registry:  deps.Registry,
		metrics:   deps.Metrics,
		repo:      deps.Repo,
		abilities: NewAbilityLog(deps.Bus, deps.Clock),
		authority: world.New(),
		mirrors:   world.New(),
		versions:  make(map[uint32]uint64, cfg.Entities),
	}
	mirrorClock := clock.NewOffset(deps.Clock, cfg.ClockSkew)

	for i := 0; i < cfg.Entities; i++ {
		id := s.authority.IDs().Next()
		name := fmt.Sprintf("entity-%d", i+1)

		e := model.NewEntity(id, name, model.EntityConfig{
			Role:      store.RoleAuthority,
			Clock:     deps.Clock,
			Bus:       deps.Bus,
			Registry:  deps.Registry,
			Metrics:   deps.Metrics,
			Abilities: s.abilities,
			Resolver:  s.authority,
		})
		if err := s.authority.AddEntity(e); err != nil {
			return nil, err
		}
		if err := s.seed(ctx, e); err != nil {
			return nil, err
		}

		m := model.NewEntity(id, name, model.EntityConfig{
			Role:     store.RoleMirror,
			Clock:    mirrorClock,
			Bus:      deps.Bus,
			Registry: deps.Registry,
			Metrics:  deps.Metrics,
			Resolver: s.mirrors,
		})
		if err := s.mirrors.AddEntity(m); err != nil {
			return nil, err
		}
		s.order = append(s.order, id)
	}

	slog.Info("simulation ready",
		"entities", len(s.order),
		"classes", deps.Registry.Len(),
		"rotation", len(cfg.Rotation))
	return s, nil
}

func (s *Simulation) seed(ctx context.Context, e *model.Entity) error {
	attrs := s.cfg.Attributes
	if s.repo != nil {
		stored, err := s.repo.LoadFloatAttributes(ctx, int64(e.ObjectID()))
		if err != nil {
			return fmt.Errorf("loading attributes of %s: %w", e.Name(), err)
		}
		if len(stored) > 0 {
			attrs = stored
			slog.Info("restored attributes", "entity", e.Name(), "count", len(stored))
		}
	}

	st := e.Attributes()
	for _, a := range attrs {
		st.AddFloatAttribute(a, false)
	}
	for _, seed := range s.cfg.Structs {
		ok := st.AddStructAttribute(attribute.StructAttribute{
			Tag:        seed.Tag,
			StructType: attribute.StructType(seed.Type),
			Handler:    handler.TypeID(seed.Handler),
		}, false)
		if !ok {
			return fmt.Errorf("struct attribute %s of type %s rejected", seed.Tag, seed.Type)
		}
	}
	for _, path := range s.cfg.RegenOnStart {
		st.StartRegeneration(tag.New(path))
	}
	return nil
}

// Authority returns the authority world.
func (s *Simulation) Authority() *world.World { return s.authority }

// Mirrors returns the world of mirror copies.
func (s *Simulation) Mirrors() *world.World { return s.mirrors }

// Abilities returns the ability pipeline used by authority entities.
func (s *Simulation) Abilities() *AbilityLog { return s.abilities }

// Step applies the next rotation class to every entity, instigated by its
// neighbour, then expires due modifiers and forgets history older than
// cfg.HistoryRetention. Returns the number of successful applications.
func (s *Simulation) Step() int {
	s.mu.Lock()
	step := s.step
	s.step++
	s.mu.Unlock()

	applied := 0
	if len(s.cfg.Rotation) > 0 {
		class := modifier.ClassID(s.cfg.Rotation[step%len(s.cfg.Rotation)])
		for i, id := range s.order {
			target, ok := s.authority.Runtime(id)
			if !ok {
				continue
			}
			instigator, ok := s.authority.Runtime(s.order[(i+1)%len(s.order)])
			if !ok {
				continue
			}
			if _, ok := instigator.ApplyToTarget(target, class, nil); ok {
				applied++
			}
		}
		slog.Debug("simulation step", "step", step, "class", class, "applied", applied)
	}

	expired := 0
	cutoff := s.clock.Now() - s.cfg.HistoryRetention.Seconds()
	s.authority.ForEachEntity(func(e *model.Entity) bool {
		expired += e.Modifiers().ExpireDue()
		if s.cfg.HistoryRetention > 0 {
			e.Modifiers().Prune(cutoff)
		}
		return true
	})
	if expired > 0 {
		slog.Debug("modifiers expired", "count", expired)
	}
	if s.cfg.HistoryRetention > 0 {
		if n := s.abilities.EndBefore(cutoff); n > 0 {
			slog.Debug("abilities ended", "count", n)
		}
	}
	return applied
}

// Replicate ships the changes of every authority entity since its last
// replicated version to the matching mirror. Returns the number of
// non-empty deltas applied.
func (s *Simulation) Replicate() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range s.order {
		src, ok := s.authority.Entity(id)
		if !ok {
			continue
		}
		dst, ok := s.mirrors.Entity(id)
		if !ok {
			continue
		}

		d := src.Attributes().ChangesSince(s.versions[id])
		if d.IsEmpty() {
			continue
		}
		if !dst.Attributes().ApplyDelta(d) {
			slog.Warn("delta rejected", "entity", src.Name(), "from", d.From, "to", d.To)
			continue
		}
		s.versions[id] = d.To
		s.metrics.DeltaApplied(len(d.Floats) + len(d.Structs) + len(d.RemovedFloats) + len(d.RemovedStructs))
		n++
	}
	return n
}

// Persist saves the settled float attributes of every authority entity.
// A nil repository makes it a no-op.
func (s *Simulation) Persist(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	for _, id := range s.order {
		e, ok := s.authority.Entity(id)
		if !ok {
			continue
		}
		if err := s.repo.SaveFloatAttributes(ctx, int64(id), e.Attributes().SettledFloatAttributes()); err != nil {
			return fmt.Errorf("saving attributes of %s: %w", e.Name(), err)
		}
	}
	slog.Info("attributes persisted", "entities", len(s.order))
	return nil
}

// Run drives Step and Replicate on their intervals until ctx is done, then
// replicates once more and persists.
func (s *Simulation) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting simulation loop", "interval", s.cfg.TickInterval)
		return loop(gctx, s.cfg.TickInterval, func() { s.Step() })
	})
	g.Go(func() error {
		slog.Info("starting replication loop", "interval", s.cfg.ReplicationInterval)
		return loop(gctx, s.cfg.ReplicationInterval, func() { s.Replicate() })
	})

	err := g.Wait()
	s.Replicate()

	// ctx is already cancelled; give the final save its own deadline.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if perr := s.Persist(saveCtx); perr != nil {
		slog.Error("persisting attributes", "error", perr)
		if err == nil {
			err = perr
		}
	}
	return err
}

func loop(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
