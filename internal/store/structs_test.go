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
)

var resist = tag.New("Attribute.Resist")

func TestStruct_AddInitialisesNilValue(t *testing.T) {
	f := newAuthority(t)
	require.True(t, f.store.AddStructAttribute(attribute.StructAttribute{
		Tag:        resist,
		StructType: handler.ValuesType,
	}, false))

	v, ok := f.store.StructAttributeValue(resist)
	require.True(t, ok)
	assert.Equal(t, handler.Values{}, v)

	added := f.rec.WithTag(event.StructAttributeAdded)
	require.Len(t, added, 1)
	assert.Equal(t, resist, added[0].Domain)
}

func TestStruct_InvalidArguments(t *testing.T) {
	f := newAuthority(t)

	assert.False(t, f.store.AddStructAttribute(attribute.StructAttribute{Tag: resist}, false), "missing type")
	assert.False(t, f.store.AddStructAttribute(attribute.StructAttribute{Tag: resist, StructType: "Nope"}, false), "unregistered type")
	assert.False(t, f.store.AddStructAttribute(attribute.StructAttribute{
		Tag:        resist,
		StructType: handler.ValuesType,
		Handler:    "NoSuchHandler",
	}, false), "unknown handler")

	assert.False(t, f.store.HasStructAttribute(resist))
	assert.Zero(t, f.rec.Len())
}

func TestStruct_SetRunsHandler(t *testing.T) {
	f := newAuthority(t)
	f.store.AddStructAttribute(attribute.StructAttribute{
		Tag:        resist,
		StructType: handler.ValuesType,
		Handler:    handler.ValuesDiffID,
		Value:      handler.Values{"fire": 10, "ice": 5},
	}, false)
	f.rec.Reset()

	require.True(t, f.store.SetStructAttributeValue(resist, handler.Values{"fire": 10, "ice": 8}))

	e, ok := f.rec.Last()
	require.True(t, ok)
	assert.Equal(t, event.StructAttributeValueChanged, e.Tag)
	assert.Equal(t, event.AuthorityDomain, e.Domain)

	payload := e.Payload.(attribute.StructModification)
	assert.Equal(t, handler.Values{"fire": 10, "ice": 5}, payload.OldValue)
	assert.Equal(t, handler.Values{"fire": 10, "ice": 8}, payload.NewValue)
	assert.Equal(t, []tag.Tag{resist.Child("ice")}, payload.ModificationTags.Tags())
}

func TestStruct_ValueIsOwned(t *testing.T) {
	f := newAuthority(t)
	vals := handler.Values{"fire": 1}
	f.store.AddStructAttribute(attribute.StructAttribute{
		Tag:        resist,
		StructType: handler.ValuesType,
		Value:      vals,
	}, false)

	vals["fire"] = 99
	got, _ := f.store.StructAttributeValue(resist)
	assert.Equal(t, 1.0, got.(handler.Values)["fire"])

	got.(handler.Values)["fire"] = 42
	again, _ := f.store.StructAttributeValue(resist)
	assert.Equal(t, 1.0, again.(handler.Values)["fire"])
}

func TestStruct_NoOpAddAndOverride(t *testing.T) {
	f := newAuthority(t)
	attr := attribute.StructAttribute{
		Tag:        resist,
		StructType: handler.ValuesType,
		Handler:    handler.ValuesDiffID,
		Value:      handler.Values{"fire": 1},
	}
	f.store.AddStructAttribute(attr, false)
	f.rec.Reset()

	attr.Value = handler.Values{"fire": 2}
	assert.False(t, f.store.AddStructAttribute(attr, false))
	assert.Zero(t, f.rec.Len())

	assert.True(t, f.store.AddStructAttribute(attr, true))
	assert.Len(t, f.rec.WithTag(event.StructAttributeValueChanged), 1)
}

func TestStruct_SetUnknown(t *testing.T) {
	f := newAuthority(t)
	assert.False(t, f.store.SetStructAttributeValue(resist, handler.Values{}))
	_, ok := f.store.StructAttributeValue(resist)
	assert.False(t, ok)
}

func TestStruct_RemoveAbsentStillEmits(t *testing.T) {
	f := newAuthority(t)
	f.store.RemoveStructAttribute(resist)
	assert.Len(t, f.rec.WithTag(event.StructAttributeRemoved), 1)
}

func TestStore_ListenerMayReenter(t *testing.T) {
	clk := clock.NewManual(0)
	var s *Store
	d := event.NewDispatcher()
	d.Subscribe(event.Subscription{
		Events: tag.NewSet(event.FloatAttributeAdded),
		Handler: func(e event.Event) {
			// would deadlock if the store published under its lock
			s.SetFloatAttributeValue(attribute.BaseValue, e.Domain, 5)
		},
	})
	s = New(1, RoleAuthority, clk, d)

	s.AddFloatAttribute(attribute.FloatAttribute{Tag: health}, false)
	v, _ := s.FloatAttributeValue(attribute.BaseValue, health, false)
	assert.Equal(t, 5.0, v)
}
