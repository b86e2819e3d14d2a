package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/clock"
	"github.com/udisondev/attrsys/internal/event"
	"github.com/udisondev/attrsys/internal/handler"
	"github.com/udisondev/attrsys/internal/tag"
	"github.com/udisondev/attrsys/internal/testutil"
)

type mirrorFixture struct {
	local *clock.Manual
	rec   *testutil.Recorder
	store *Store
}

// newMirror builds a mirror whose estimated authority time runs offset
// seconds ahead of its local clock.
func newMirror(t *testing.T, offset float64) *mirrorFixture {
	t.Helper()
	local := clock.NewManual(0)
	rec := testutil.NewRecorder()
	return &mirrorFixture{
		local: local,
		rec:   rec,
		store: New(1, RoleMirror, clock.NewOffset(local, offset), rec),
	}
}

func TestMirror_RejectsMutations(t *testing.T) {
	m := newMirror(t, 0)

	assert.False(t, m.store.AddFloatAttribute(attribute.FloatAttribute{Tag: health}, false))
	applied, _ := m.store.SetFloatAttributeValue(attribute.CurrentValue, health, 1)
	assert.False(t, applied)
	applied, _ = m.store.IncrementFloatAttributeValue(attribute.CurrentValue, health, 1)
	assert.False(t, applied)
	assert.False(t, m.store.StartRegeneration(health))
	assert.False(t, m.store.AddStructAttribute(attribute.StructAttribute{Tag: health, StructType: handler.ValuesType}, false))
	m.store.RemoveFloatAttribute(health)

	assert.Zero(t, m.rec.Len())
}

func TestChangesSince(t *testing.T) {
	f := newAuthority(t)
	f.store.AddFloatAttribute(attribute.FloatAttribute{Tag: health, BaseValue: 100}, false)
	f.store.AddFloatAttribute(attribute.FloatAttribute{Tag: stamina, BaseValue: 50}, false)

	full := f.store.ChangesSince(0)
	assert.Equal(t, uint64(2), full.To)
	require.Len(t, full.Floats, 2)

	v := f.store.Version()
	f.store.SetFloatAttributeValue(attribute.BaseValue, stamina, 60)
	f.store.RemoveFloatAttribute(health)

	d := f.store.ChangesSince(v)
	assert.Equal(t, v, d.From)
	require.Len(t, d.Floats, 1)
	assert.Equal(t, stamina, d.Floats[0].Tag)
	assert.Equal(t, 60.0, d.Floats[0].BaseValue)
	assert.Equal(t, []tag.Tag{health}, d.RemovedFloats)

	assert.True(t, f.store.ChangesSince(f.store.Version()).IsEmpty())
}

func TestChangesSince_ReAddClearsTombstone(t *testing.T) {
	f := newAuthority(t)
	f.store.AddFloatAttribute(attribute.FloatAttribute{Tag: health}, false)
	f.store.RemoveFloatAttribute(health)
	f.store.AddFloatAttribute(attribute.FloatAttribute{Tag: health, BaseValue: 3}, false)

	d := f.store.ChangesSince(0)
	assert.Empty(t, d.RemovedFloats)
	require.Len(t, d.Floats, 1)
	assert.Equal(t, 3.0, d.Floats[0].BaseValue)
}

func TestApplyDelta_AddChangeRemove(t *testing.T) {
	f := newAuthority(t)
	m := newMirror(t, 0)

	f.store.AddFloatAttribute(attribute.FloatAttribute{Tag: health, BaseValue: 100, CurrentValue: 100}, false)
	require.True(t, m.store.ApplyDelta(f.store.ChangesSince(m.store.Version())))

	assert.True(t, m.store.HasFloatAttribute(health))
	assert.Equal(t, f.store.Version(), m.store.Version())
	added := m.rec.WithTag(event.FloatAttributeAdded)
	require.Len(t, added, 1)
	assert.Equal(t, health, added[0].Domain)

	m.rec.Reset()
	f.store.SetFloatAttributeValue(attribute.CurrentValue, health, 40)
	m.store.ApplyDelta(f.store.ChangesSince(m.store.Version()))

	changed := m.rec.WithTag(event.FloatAttributeCurrentValueChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, event.LocalDomain, changed[0].Domain)
	assert.Equal(t, 40.0, changed[0].Payload.(attribute.FloatModification).NewValue)

	m.rec.Reset()
	f.store.RemoveFloatAttribute(health)
	m.store.ApplyDelta(f.store.ChangesSince(m.store.Version()))
	assert.False(t, m.store.HasFloatAttribute(health))
	assert.Len(t, m.rec.WithTag(event.FloatAttributeRemoved), 1)
}

func TestApplyDelta_Idempotent(t *testing.T) {
	f := newAuthority(t)
	m := newMirror(t, 0)
	f.store.AddFloatAttribute(attribute.FloatAttribute{Tag: health, BaseValue: 100}, false)

	d := f.store.ChangesSince(0)
	m.store.ApplyDelta(d)
	m.rec.Reset()
	m.store.ApplyDelta(d)

	assert.Zero(t, m.rec.Len(), "identical copy yields no diff events")
}

func TestApplyDelta_AuthorityRefuses(t *testing.T) {
	f := newAuthority(t)
	assert.False(t, f.store.ApplyDelta(Delta{Floats: []attribute.FloatAttribute{{Tag: health}}}))
	assert.False(t, f.store.HasFloatAttribute(health))
}

func TestMirror_PredictsRegen(t *testing.T) {
	f := newAuthority(t)
	f.clk.Set(10)
	f.store.AddFloatAttribute(attribute.FloatAttribute{
		Tag:              stamina,
		CurrentValue:     50,
		CurrentRegenRate: 10,
		Limits:           attribute.ValueLimits{UseMaxCurrent: true, MaxCurrent: 100},
	}, false)
	f.store.StartRegeneration(stamina)

	// mirror's local clock lags authority time by 10s
	m := newMirror(t, 10)
	m.store.ApplyDelta(f.store.ChangesSince(0))

	m.local.Set(2)
	v, ok := m.store.FloatAttributeValue(attribute.CurrentValue, stamina, true)
	require.True(t, ok)
	assert.Equal(t, 70.0, v)

	raw, ok := m.store.FloatAttributeValue(attribute.CurrentValue, stamina, false)
	require.True(t, ok)
	assert.Equal(t, 50.0, raw)

	m.local.Set(30)
	v, _ = m.store.FloatAttributeValue(attribute.CurrentValue, stamina, true)
	assert.Equal(t, 100.0, v, "prediction is clamped")

	// matches the authority once reconciled
	f.clk.Set(40)
	auth, _ := f.store.FloatAttributeValue(attribute.CurrentValue, stamina, false)
	assert.Equal(t, auth, v)
}

func TestApplyDelta_Structs(t *testing.T) {
	f := newAuthority(t)
	m := newMirror(t, 0)
	resist := tag.New("Attribute.Resist")

	f.store.AddStructAttribute(attribute.StructAttribute{
		Tag:        resist,
		StructType: handler.ValuesType,
		Handler:    handler.ValuesDiffID,
		Value:      handler.Values{"fire": 1},
	}, false)
	m.store.ApplyDelta(f.store.ChangesSince(m.store.Version()))
	require.True(t, m.store.HasStructAttribute(resist))

	f.store.SetStructAttributeValue(resist, handler.Values{"fire": 2})
	m.rec.Reset()
	m.store.ApplyDelta(f.store.ChangesSince(m.store.Version()))

	changed := m.rec.WithTag(event.StructAttributeValueChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(attribute.StructModification)
	assert.Equal(t, event.LocalDomain, changed[0].Domain)
	assert.True(t, payload.ModificationTags.HasExact(resist.Child("fire")))

	f.store.RemoveStructAttribute(resist)
	m.store.ApplyDelta(f.store.ChangesSince(m.store.Version()))
	assert.False(t, m.store.HasStructAttribute(resist))
}
