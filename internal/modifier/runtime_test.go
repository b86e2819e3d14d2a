package modifier

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/clock"
	"github.com/udisondev/attrsys/internal/event"
	"github.com/udisondev/attrsys/internal/store"
	"github.com/udisondev/attrsys/internal/tag"
	"github.com/udisondev/attrsys/internal/testutil"
)

var (
	health  = tag.New("Attribute.Health")
	stamina = tag.New("Attribute.Stamina")

	tagPoison = tag.New("Modifier.Debuff.Poison")
	tagBuff   = tag.New("Modifier.Buff")
)

// funcEffect is a test effect built from closures.
type funcEffect struct {
	apply func(app *Application) error
	stack func(app *Application, stacks uint32)
	ended []tag.Tag
}

func (e *funcEffect) OnApply(app *Application) error {
	if e.apply == nil {
		return nil
	}
	return e.apply(app)
}

func (e *funcEffect) OnStack(app *Application, stacks uint32) {
	if e.stack != nil {
		e.stack(app, stacks)
	}
}

func (e *funcEffect) OnEnd(_ *Application, reason tag.Tag) {
	e.ended = append(e.ended, reason)
}

// fakePipeline records ability activations and cancellations.
type fakePipeline struct {
	activated []string
	cancelled []uuid.UUID
}

func (p *fakePipeline) ActivateAbility(_ uint32, ability string, _ any) (uuid.UUID, bool) {
	p.activated = append(p.activated, ability)
	return uuid.New(), true
}

func (p *fakePipeline) CancelAbility(_ uint32, id uuid.UUID) {
	p.cancelled = append(p.cancelled, id)
}

type world struct {
	clk      *clock.Manual
	rec      *testutil.Recorder
	reg      *Registry
	pipeline *fakePipeline
	runtimes map[uint32]*Runtime
}

func newWorld(t *testing.T) *world {
	t.Helper()
	return &world{
		clk:      clock.NewManual(0),
		rec:      testutil.NewRecorder(),
		reg:      NewRegistry(),
		pipeline: &fakePipeline{},
		runtimes: map[uint32]*Runtime{},
	}
}

func (w *world) entity(t *testing.T, id uint32) *Runtime {
	t.Helper()
	s := store.New(id, store.RoleAuthority, w.clk, w.rec)
	s.AddFloatAttribute(attribute.FloatAttribute{Tag: health, BaseValue: 100, CurrentValue: 100,
		Limits: attribute.ValueLimits{UseMaxCurrent: true, MaxCurrent: 100, UseMinCurrent: true}}, false)
	s.AddFloatAttribute(attribute.FloatAttribute{Tag: stamina, BaseValue: 50, CurrentValue: 10}, false)

	r := NewRuntime(s, w.reg, w.rec,
		WithAbilityPipeline(w.pipeline),
		WithResolver(ResolverFunc(func(objID uint32) (*Runtime, bool) {
			rt, ok := w.runtimes[objID]
			return rt, ok
		})))
	w.runtimes[id] = r
	return r
}

func (w *world) register(t *testing.T, def Definition) {
	t.Helper()
	require.NoError(t, w.reg.Register(def))
}

func TestApply_UnknownClass(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)

	id, ok := r.ApplyToSelf("Nope", nil)
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)
	assert.Zero(t, r.States().Len())
}

func TestApply_Instant(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	w.register(t, Definition{
		Class: "Hit",
		Kind:  Instant,
		New: func() Effect {
			return &FloatDelta{Attribute: health, Kind: attribute.CurrentValue, Delta: -30}
		},
	})

	id, ok := r.ApplyToSelf("Hit", nil)
	require.True(t, ok)

	inst, ok := r.Instance(id)
	require.True(t, ok)
	assert.Equal(t, Ended, inst.State)
	assert.Empty(t, r.ActiveInstances())

	v, _ := r.Store().FloatAttributeValue(attribute.CurrentValue, health, false)
	assert.Equal(t, 70.0, v)

	st, ok := r.States().Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusEnded, st.Status)
	assert.Len(t, st.Snapshots, 1)
}

func TestApply_StateRecordedBeforeEffect(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)

	var seen bool
	w.register(t, Definition{
		Class: "Broken",
		Kind:  Duration,
		New: func() Effect {
			return &funcEffect{apply: func(app *Application) error {
				_, seen = app.Host().States().Get(app.ID)
				app.TriggerAbility("Spark", nil)
				return errors.New("boom")
			}}
		},
	})

	id, ok := r.ApplyToSelf("Broken", nil)
	assert.False(t, ok)
	assert.True(t, seen)

	st, ok := r.States().Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, st.Status)
	require.Len(t, st.Snapshots, 1)
	assert.Len(t, st.Snapshots[0].Result.AbilitySideEffects, 1, "side effects are kept for cancellation")

	r.Cancel(id)
	assert.Len(t, w.pipeline.cancelled, 1)
}

func TestApply_Stacking(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	var stacks []uint32
	w.register(t, Definition{
		Class:    "Poison",
		Kind:     Duration,
		CanStack: true,
		Tags:     tag.NewSet(tagPoison),
		New: func() Effect {
			return &funcEffect{stack: func(_ *Application, n uint32) { stacks = append(stacks, n) }}
		},
	})

	first, ok := r.ApplyToSelf("Poison", nil)
	require.True(t, ok)
	second, ok := r.ApplyToSelf("Poison", nil)
	require.True(t, ok)

	assert.Equal(t, first, second)
	active := r.ActiveInstances()
	require.Len(t, active, 1)
	assert.Equal(t, uint32(2), active[0].Stacks)
	assert.Equal(t, []uint32{2}, stacks)
	assert.Len(t, w.rec.WithTag(event.ModifierStacked), 1)
}

func TestApply_NonStackableReplaces(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	var effects []*funcEffect
	w.register(t, Definition{
		Class: "Shield",
		Kind:  Duration,
		New: func() Effect {
			e := &funcEffect{}
			effects = append(effects, e)
			return e
		},
	})

	first, _ := r.ApplyToSelf("Shield", nil)
	second, ok := r.ApplyToSelf("Shield", nil)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	old, _ := r.Instance(first)
	assert.Equal(t, Cancelled, old.State)
	cur, _ := r.Instance(second)
	assert.Equal(t, Active, cur.State)

	require.Len(t, effects, 2)
	assert.Equal(t, []tag.Tag{ReasonCancelled}, effects[0].ended)
	assert.Empty(t, effects[1].ended)
}

func TestCancel_CascadesOneLevel(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)

	w.register(t, Definition{Class: "Burn", Kind: Duration, New: func() Effect { return &funcEffect{} }})
	w.register(t, Definition{
		Class: "Fireball",
		Kind:  Instant,
		New: func() Effect {
			return &funcEffect{apply: func(app *Application) error {
				app.TriggerAbility("Explosion", nil)
				app.ApplyModifier(app.Host().Owner(), "Burn", nil)
				return nil
			}}
		},
	})

	parent, ok := r.ApplyToSelf("Fireball", nil)
	require.True(t, ok)
	require.Len(t, r.ActiveInstances(), 1)
	burn := r.ActiveInstances()[0].ID

	r.Cancel(parent)

	inst, _ := r.Instance(burn)
	assert.Equal(t, Cancelled, inst.State)
	require.Len(t, w.pipeline.cancelled, 1)

	st, _ := r.States().Get(parent)
	require.Len(t, st.Snapshots, 1)
	assert.Equal(t, st.Snapshots[0].Result.AbilitySideEffects[0].AbilityID, w.pipeline.cancelled[0])
}

func TestCancel_ActiveDurationEndsDirectly(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	e := &funcEffect{}
	w.register(t, Definition{Class: "Haste", Kind: Duration, New: func() Effect { return e }})

	id, _ := r.ApplyToSelf("Haste", nil)
	r.Cancel(id)

	inst, _ := r.Instance(id)
	assert.Equal(t, Cancelled, inst.State)
	assert.Equal(t, []tag.Tag{ReasonCancelled}, e.ended)

	ended := w.rec.WithTag(event.ModifierEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, ReasonCancelled, ended[0].Payload.(Change).Reason)

	// second cancel is a no-op
	r.Cancel(id)
	assert.Len(t, e.ended, 1)
}

func TestCancel_Unknown(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	assert.NotPanics(t, func() { r.Cancel(uuid.New()) })
}

func TestCancelAllWithTags(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	w.register(t, Definition{Class: "Poison", Kind: Duration, Tags: tag.NewSet(tagPoison), New: func() Effect { return &funcEffect{} }})
	w.register(t, Definition{Class: "Might", Kind: Duration, Tags: tag.NewSet(tagBuff), New: func() Effect { return &funcEffect{} }})

	r.ApplyToSelf("Poison", nil)
	might, _ := r.ApplyToSelf("Might", nil)

	// exact matching: the parent tag does not match the poison tag
	assert.Zero(t, r.CancelAllWithTags(tag.ParseSet("Modifier.Debuff")))
	assert.Equal(t, 1, r.CancelAllWithTags(tag.NewSet(tagPoison)))

	active := r.ActiveInstances()
	require.Len(t, active, 1)
	assert.Equal(t, might, active[0].ID)
}

func TestInstanceTags_DoNotAliasDefinition(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	tags := tag.NewSet(tagPoison, tagBuff)
	w.register(t, Definition{Class: "Poison", Kind: Duration, Tags: tags, New: func() Effect { return &funcEffect{} }})
	tags.Remove(tagPoison)

	id, ok := r.ApplyToSelf("Poison", nil)
	require.True(t, ok)
	inst, _ := r.Instance(id)
	inst.Tags.Remove(tagPoison)

	def, ok := w.reg.Lookup("Poison")
	require.True(t, ok)
	assert.Equal(t, []tag.Tag{tagPoison, tagBuff}, def.Tags.Tags())

	again, _ := r.Instance(id)
	assert.True(t, again.Tags.HasExact(tagPoison))
	assert.Equal(t, 1, r.CancelAllWithTags(tag.NewSet(tagPoison)))
}

func TestExpireDue(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	e := &funcEffect{}
	w.register(t, Definition{Class: "Regen", Kind: Duration, Duration: 5, New: func() Effect { return e }})

	id, _ := r.ApplyToSelf("Regen", nil)
	w.clk.Advance(4)
	assert.Zero(t, r.ExpireDue())

	w.clk.Advance(1)
	assert.Equal(t, 1, r.ExpireDue())

	inst, _ := r.Instance(id)
	assert.Equal(t, Ended, inst.State)
	assert.Equal(t, []tag.Tag{ReasonExpired}, e.ended)
}

func TestEnd(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	w.register(t, Definition{Class: "Aura", Kind: Duration, New: func() Effect { return &funcEffect{} }})

	id, _ := r.ApplyToSelf("Aura", nil)
	assert.True(t, r.End(id))
	assert.False(t, r.End(id))

	st, _ := r.States().Get(id)
	assert.Equal(t, StatusEnded, st.Status)
}

func TestPrune(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	w.register(t, Definition{Class: "Hit", Kind: Instant, New: func() Effect { return &funcEffect{} }})
	w.register(t, Definition{Class: "Aura", Kind: Duration, New: func() Effect { return &funcEffect{} }})

	hit, _ := r.ApplyToSelf("Hit", nil)
	aura, _ := r.ApplyToSelf("Aura", nil)
	w.clk.Advance(10)
	late, _ := r.ApplyToSelf("Hit", nil)

	assert.Equal(t, 1, r.Prune(5))

	_, ok := r.Instance(hit)
	assert.False(t, ok, "resolved and old")
	_, ok = r.Instance(aura)
	assert.True(t, ok, "still active")
	_, ok = r.Instance(late)
	assert.True(t, ok, "too recent")

	_, ok = r.States().Get(hit)
	assert.False(t, ok)
	assert.Equal(t, 2, r.States().Len())
}

func TestApplyToTarget_CrossEntity(t *testing.T) {
	w := newWorld(t)
	caster := w.entity(t, 1)
	victim := w.entity(t, 2)
	w.register(t, Definition{
		Class: "Drain",
		Kind:  Instant,
		New: func() Effect {
			return &FloatDelta{Attribute: health, Kind: attribute.CurrentValue, Delta: -10}
		},
	})
	w.register(t, Definition{
		Class: "Curse",
		Kind:  Duration,
		New: func() Effect {
			e, err := NewTriggerModifiers(Params{"classes": "Drain", "target": "instigator"})
			require.NoError(t, err)
			return e
		},
	})

	id, ok := caster.ApplyToTarget(victim, "Curse", nil)
	require.True(t, ok)

	inst, ok := victim.Instance(id)
	require.True(t, ok)
	assert.Equal(t, uint32(2), inst.HostObjID)
	assert.Equal(t, uint32(1), inst.Instigator)
	_, onCaster := caster.Instance(id)
	assert.False(t, onCaster, "instances live on the target")

	v, _ := caster.Store().FloatAttributeValue(attribute.CurrentValue, health, false)
	assert.Equal(t, 90.0, v, "drain bounced back to the instigator")

	st, _ := victim.States().Get(id)
	require.Len(t, st.Snapshots, 1)
	require.Len(t, st.Snapshots[0].Result.ModifierSideEffects, 1)
	assert.Equal(t, uint32(1), st.Snapshots[0].Result.ModifierSideEffects[0].HostObjID)
}

func TestAddSnapshot(t *testing.T) {
	w := newWorld(t)
	r := w.entity(t, 1)
	w.register(t, Definition{Class: "Burn", Kind: Duration, New: func() Effect { return &funcEffect{} }})

	ability := uuid.New()
	r.BeginAbility(ability, "Meteor", nil)
	burn, _ := r.ApplyToSelf("Burn", nil)

	require.True(t, r.AddSnapshot(ability, Snapshot{
		Timestamp: 1,
		Result: ModifierResult{ModifierSideEffects: []ModifierSideEffect{
			{InstanceID: burn, HostObjID: 1},
		}},
	}))
	assert.False(t, r.AddSnapshot(uuid.New(), Snapshot{}))

	r.Cancel(ability)

	inst, _ := r.Instance(burn)
	assert.Equal(t, Cancelled, inst.State)
	st, _ := r.States().Get(ability)
	assert.Equal(t, StatusCancelled, st.Status)
	assert.Len(t, r.AbilityStates(), 2)
}
