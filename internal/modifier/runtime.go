package modifier

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/attrsys/internal/event"
	"github.com/udisondev/attrsys/internal/metrics"
	"github.com/udisondev/attrsys/internal/store"
	"github.com/udisondev/attrsys/internal/tag"
)

// AbilityPipeline is the host's ability activation layer.
type AbilityPipeline interface {
	ActivateAbility(ownerObjID uint32, ability string, ctx any) (uuid.UUID, bool)
	CancelAbility(ownerObjID uint32, abilityID uuid.UUID)
}

// Resolver finds the modifier runtime of another entity.
type Resolver interface {
	Runtime(objID uint32) (*Runtime, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(objID uint32) (*Runtime, bool)

func (f ResolverFunc) Runtime(objID uint32) (*Runtime, bool) { return f(objID) }

// Option configures a Runtime.
type Option func(*Runtime)

func WithAbilityPipeline(p AbilityPipeline) Option {
	return func(r *Runtime) { r.abilities = p }
}

func WithResolver(res Resolver) Option {
	return func(r *Runtime) { r.resolver = res }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// Application is what an effect sees while it runs: who applied it, on
// whom, and helpers that trigger further activations. Triggered side
// effects are recorded so cancelling the instance can cascade to them.
type Application struct {
	ID         uuid.UUID
	Class      ClassID
	Instigator uint32
	Target     *store.Store
	Context    any

	host    *Runtime
	mu      sync.Mutex
	pending ModifierResult
}

// Host returns the runtime hosting the instance.
func (a *Application) Host() *Runtime { return a.host }

// TriggerAbility activates an ability owned by the host entity.
func (a *Application) TriggerAbility(ability string, ctx any) (uuid.UUID, bool) {
	if a.host.abilities == nil {
		slog.Warn("ability trigger without pipeline", "owner", a.host.owner, "ability", ability, "modifier", a.Class)
		return uuid.Nil, false
	}
	id, ok := a.host.abilities.ActivateAbility(a.host.owner, ability, ctx)
	if !ok {
		return uuid.Nil, false
	}
	a.mu.Lock()
	a.pending.AbilitySideEffects = append(a.pending.AbilitySideEffects, AbilitySideEffect{
		AbilityID:  id,
		OwnerObjID: a.host.owner,
	})
	a.mu.Unlock()
	return id, true
}

// ApplyModifier applies class to targetObjID with the host as instigator.
func (a *Application) ApplyModifier(targetObjID uint32, class ClassID, ctx any) (uuid.UUID, bool) {
	target, ok := a.host.resolve(targetObjID)
	if !ok {
		slog.Warn("modifier target not found", "owner", a.host.owner, "target", targetObjID, "class", class)
		return uuid.Nil, false
	}
	id, ok := a.host.ApplyToTarget(target, class, ctx)
	if !ok {
		return id, false
	}
	a.mu.Lock()
	a.pending.ModifierSideEffects = append(a.pending.ModifierSideEffects, ModifierSideEffect{
		InstanceID: id,
		HostObjID:  targetObjID,
	})
	a.mu.Unlock()
	return id, true
}

func (a *Application) takeResult() ModifierResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.pending
	a.pending = ModifierResult{}
	return r
}

type record struct {
	inst   Instance
	effect Effect
	app    *Application
	seq    uint64
}

// Runtime hosts the modifier instances applied to one entity and keeps the
// activation history used for cascade cancellation.
//
// Thread-safe. Effect code and event listeners run without the runtime lock.
type Runtime struct {
	mu sync.RWMutex

	owner     uint32
	store     *store.Store
	registry  *Registry
	bus       event.Bus
	metrics   *metrics.Metrics
	abilities AbilityPipeline
	resolver  Resolver

	instances map[uuid.UUID]*record
	byClass   map[ClassID]uuid.UUID
	states    *States
	seq       uint64
}

// NewRuntime creates the runtime of the entity owning s.
func NewRuntime(s *store.Store, reg *Registry, bus event.Bus, opts ...Option) *Runtime {
	if bus == nil {
		bus = event.Discard
	}
	r := &Runtime{
		owner:     s.Owner(),
		store:     s,
		registry:  reg,
		bus:       bus,
		instances: make(map[uuid.UUID]*record, 16),
		byClass:   make(map[ClassID]uuid.UUID, 16),
		states:    NewStates(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Owner returns the host entity id.
func (r *Runtime) Owner() uint32 { return r.owner }

// Store returns the host's attribute store.
func (r *Runtime) Store() *store.Store { return r.store }

// States returns the activation history collection.
func (r *Runtime) States() *States { return r.states }

func (r *Runtime) resolve(objID uint32) (*Runtime, bool) {
	if objID == r.owner {
		return r, true
	}
	if r.resolver == nil {
		return nil, false
	}
	return r.resolver.Runtime(objID)
}

// ApplyToSelf applies class to the runtime's own entity.
func (r *Runtime) ApplyToSelf(class ClassID, ctx any) (uuid.UUID, bool) {
	return r.ApplyToTarget(r, class, ctx)
}

// ApplyToTarget applies class to target with r's entity as instigator.
//
// A stackable Duration class that is already active on target gains a stack
// instead of a new instance. A non-stackable one is cancelled first. The
// activation state is recorded before the effect runs.
func (r *Runtime) ApplyToTarget(target *Runtime, class ClassID, ctx any) (uuid.UUID, bool) {
	def, ok := target.registry.Lookup(class)
	if !ok {
		slog.Warn("modifier class not registered", "class", class, "instigator", r.owner, "target", target.owner)
		return uuid.Nil, false
	}

	if def.Kind == Duration {
		if id, stacked := target.tryStack(def); stacked {
			return id, true
		}
	}

	now := target.store.Now()
	rec := &record{
		inst: Instance{
			ID:         uuid.New(),
			Class:      def.Class,
			Kind:       def.Kind,
			CanStack:   def.CanStack,
			Stacks:     1,
			State:      Applying,
			Tags:       def.Tags.Clone(),
			HostObjID:  target.owner,
			Instigator: r.owner,
			AppliedAt:  now,
		},
		effect: def.New(),
	}
	rec.app = &Application{
		ID:         rec.inst.ID,
		Class:      def.Class,
		Instigator: r.owner,
		Target:     target.store,
		Context:    ctx,
		host:       target,
	}

	target.states.Put(AbilityState{
		ID:          rec.inst.ID,
		Class:       string(def.Class),
		ActivatedAt: now,
		Context:     ctx,
		Status:      StatusActive,
	})
	target.mu.Lock()
	target.seq++
	rec.seq = target.seq
	target.instances[rec.inst.ID] = rec
	target.mu.Unlock()

	err := rec.effect.OnApply(rec.app)
	target.states.AddSnapshot(rec.inst.ID, Snapshot{Timestamp: now, Result: rec.app.takeResult()})

	if err != nil {
		slog.Warn("modifier apply failed",
			"class", class,
			"instance", rec.inst.ID,
			"target", target.owner,
			"error", err)
		target.mu.Lock()
		rec.inst.State = Cancelled
		target.mu.Unlock()
		target.states.SetStatus(rec.inst.ID, StatusFailed)
		return rec.inst.ID, false
	}

	target.mu.Lock()
	if def.Kind == Instant {
		rec.inst.State = Ended
	} else {
		rec.inst.State = Active
		if def.Duration > 0 {
			rec.inst.ExpiresAt = now + def.Duration
		}
		target.byClass[def.Class] = rec.inst.ID
	}
	inst := rec.inst
	target.mu.Unlock()

	if def.Kind == Instant {
		target.states.SetStatus(inst.ID, StatusEnded)
	}

	slog.Debug("modifier applied",
		"class", class,
		"instance", inst.ID,
		"kind", inst.Kind,
		"target", target.owner,
		"instigator", r.owner)
	target.metrics.ModifierApplied(string(class))
	target.publish(event.ModifierApplied, inst, tag.Tag{})
	return inst.ID, true
}

// tryStack handles re-application of an active Duration class.
// Returns true when the application was absorbed as a stack.
func (r *Runtime) tryStack(def Definition) (uuid.UUID, bool) {
	r.mu.Lock()
	id, ok := r.byClass[def.Class]
	rec := r.instances[id]
	if !ok || rec == nil || rec.inst.State != Active {
		r.mu.Unlock()
		return uuid.Nil, false
	}
	if !def.CanStack {
		r.mu.Unlock()
		slog.Debug("non-stackable modifier replaced", "class", def.Class, "instance", id, "host", r.owner)
		r.finish(id, Cancelled, ReasonCancelled)
		return uuid.Nil, false
	}
	rec.inst.Stacks++
	stacks := rec.inst.Stacks
	inst := rec.inst
	r.mu.Unlock()

	if s, ok := rec.effect.(Stacker); ok {
		s.OnStack(rec.app, stacks)
		if result := rec.app.takeResult(); !result.IsEmpty() {
			r.states.AddSnapshot(id, Snapshot{Timestamp: r.store.Now(), Result: result})
		}
	}
	r.metrics.ModifierStacked(string(def.Class))
	r.publish(event.ModifierStacked, inst, tag.Tag{})
	return id, true
}

// Cancel stops id immediately.
//
// An active Duration instance is ended with the Cancelled reason. Anything
// else, a resolved Instant modifier or an ability, has every recorded
// snapshot walked and each triggered ability and modifier cancelled. The
// cascade is one level deep per snapshot. Unknown ids are ignored.
func (r *Runtime) Cancel(id uuid.UUID) {
	if r.finish(id, Cancelled, ReasonCancelled) {
		return
	}

	st, ok := r.states.Get(id)
	if !ok {
		slog.Debug("cancel of unknown modifier instance", "instance", id, "host", r.owner)
		return
	}
	for _, snap := range st.Snapshots {
		for _, ab := range snap.Result.AbilitySideEffects {
			if r.abilities != nil {
				r.abilities.CancelAbility(ab.OwnerObjID, ab.AbilityID)
			}
		}
		for _, mod := range snap.Result.ModifierSideEffects {
			host, ok := r.resolve(mod.HostObjID)
			if !ok {
				slog.Debug("descendant host gone", "instance", mod.InstanceID, "host", mod.HostObjID)
				continue
			}
			host.finish(mod.InstanceID, Cancelled, ReasonCancelled)
		}
	}
	if st.Status == StatusActive {
		r.states.SetStatus(id, StatusCancelled)
	}
}

// CancelAllWithTags cancels every active instance whose tags intersect tags.
// Returns how many were cancelled.
func (r *Runtime) CancelAllWithTags(tags tag.Set) int {
	r.mu.RLock()
	var matched []*record
	for _, rec := range r.instances {
		if rec.inst.State == Active && rec.inst.Tags.HasAnyExact(tags) {
			matched = append(matched, rec)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *record) int { return cmp.Compare(a.seq, b.seq) })

	n := 0
	for _, rec := range matched {
		if r.finish(rec.inst.ID, Cancelled, ReasonCancelled) {
			n++
		}
	}
	return n
}

// End ends an active Duration instance normally.
func (r *Runtime) End(id uuid.UUID) bool {
	return r.finish(id, Ended, ReasonEnded)
}

// ExpireDue ends every active instance whose duration has elapsed.
// Returns how many expired.
func (r *Runtime) ExpireDue() int {
	now := r.store.Now()

	r.mu.RLock()
	var due []*record
	for _, rec := range r.instances {
		if rec.inst.State == Active && rec.inst.ExpiresAt > 0 && now >= rec.inst.ExpiresAt {
			due = append(due, rec)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, rec := range due {
		if r.finish(rec.inst.ID, Ended, ReasonExpired) {
			n++
		}
	}
	return n
}

// finish moves an active instance to a terminal state and runs its OnEnd.
// Returns false if id is not an active instance.
func (r *Runtime) finish(id uuid.UUID, to State, reason tag.Tag) bool {
	r.mu.Lock()
	rec, ok := r.instances[id]
	if !ok || rec.inst.State != Active {
		r.mu.Unlock()
		return false
	}
	rec.inst.State = to
	if r.byClass[rec.inst.Class] == id {
		delete(r.byClass, rec.inst.Class)
	}
	inst := rec.inst
	r.mu.Unlock()

	status := StatusEnded
	if to == Cancelled {
		status = StatusCancelled
	}
	r.states.SetStatus(id, status)

	rec.effect.OnEnd(rec.app, reason)

	slog.Debug("modifier ended",
		"class", inst.Class,
		"instance", id,
		"host", r.owner,
		"reason", reason.String())
	r.metrics.ModifierEnded(reason.String())
	r.publish(event.ModifierEnded, inst, reason)
	return true
}

// Prune forgets terminal instances and resolved activation states applied
// before t. Their snapshots can no longer be cascaded by Cancel. Returns the
// number of instances dropped.
func (r *Runtime) Prune(before float64) int {
	r.mu.Lock()
	n := 0
	for id, rec := range r.instances {
		if rec.inst.State.IsTerminal() && rec.inst.AppliedAt < before {
			delete(r.instances, id)
			n++
		}
	}
	r.mu.Unlock()

	r.states.Forget(before)
	return n
}

// BeginAbility records the activation state of an ability so later
// snapshots and cancellation can refer to it.
func (r *Runtime) BeginAbility(id uuid.UUID, class string, ctx any) {
	r.states.Put(AbilityState{
		ID:          id,
		Class:       class,
		ActivatedAt: r.store.Now(),
		Context:     ctx,
		Status:      StatusActive,
	})
}

// AddSnapshot appends to the activation history of id.
func (r *Runtime) AddSnapshot(id uuid.UUID, snap Snapshot) bool {
	if !r.states.AddSnapshot(id, snap) {
		slog.Debug("snapshot for unknown activation", "id", id, "host", r.owner)
		return false
	}
	return true
}

// AbilityStates returns copies of all activation states in activation order.
func (r *Runtime) AbilityStates() []AbilityState {
	return r.states.All()
}

// Instance returns a copy of the instance id.
func (r *Runtime) Instance(id uuid.UUID) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.instances[id]
	if !ok {
		return Instance{}, false
	}
	inst := rec.inst
	inst.Tags = inst.Tags.Clone()
	return inst, true
}

// ActiveInstances returns the active instances in application order.
func (r *Runtime) ActiveInstances() []Instance {
	type entry struct {
		seq  uint64
		inst Instance
	}
	r.mu.RLock()
	entries := make([]entry, 0, len(r.byClass))
	for _, rec := range r.instances {
		if rec.inst.State == Active {
			entries = append(entries, entry{seq: rec.seq, inst: rec.inst})
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]Instance, len(entries))
	for i, e := range entries {
		out[i] = e.inst
	}
	return out
}

func (r *Runtime) publish(evt tag.Tag, inst Instance, reason tag.Tag) {
	r.bus.Publish(event.Event{
		Tag:         evt,
		Domain:      r.store.Role().Domain(),
		Payload:     Change{Instance: inst, Reason: reason},
		Sender:      r.owner,
		Instigators: []uint32{inst.Instigator},
	})
	r.metrics.EventPublished(evt.String())
}
