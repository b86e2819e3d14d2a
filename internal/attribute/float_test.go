package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/attrsys/internal/handler"
)

func TestClamp(t *testing.T) {
	a := &FloatAttribute{
		BaseValue: 100,
		Limits: ValueLimits{
			UseMaxCurrent: true, MaxCurrent: 100,
			UseMinCurrent: true, MinCurrent: 10,
			UseMaxBase: true, MaxBase: 200,
		},
	}

	tests := []struct {
		name         string
		kind         ValueKind
		in           float64
		wantValue    float64
		wantOverflow float64
	}{
		{"current above max", CurrentValue, 120, 100, 20},
		{"current below min", CurrentValue, 5, 10, -5},
		{"current in range", CurrentValue, 50, 50, 0},
		{"base above max", BaseValue, 250, 200, 50},
		{"base without min", BaseValue, -30, -30, 0},
		{"regen rate passes through", CurrentRegenRate, 1e6, 1e6, 0},
		{"bound passes through", MaxCurrentValue, -1, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, overflow := Clamp(a, tt.kind, tt.in)
			assert.Equal(t, tt.wantValue, v)
			assert.Equal(t, tt.wantOverflow, overflow)
		})
	}
}

func TestClamp_MaxCheckedFirst(t *testing.T) {
	// inverted bounds: both are violated, max wins
	a := &FloatAttribute{Limits: ValueLimits{
		UseMaxCurrent: true, MaxCurrent: 10,
		UseMinCurrent: true, MinCurrent: 20,
	}}
	v, overflow := Clamp(a, CurrentValue, 15)
	assert.Equal(t, 10.0, v)
	assert.Equal(t, 5.0, overflow)
}

func TestClampInPlace(t *testing.T) {
	a := &FloatAttribute{
		BaseValue:    300,
		CurrentValue: 150,
		Limits:       ValueLimits{UseMaxBase: true, MaxBase: 200, UseMaxCurrent: true, MaxCurrent: 100},
	}
	assert.True(t, ClampInPlace(a))
	assert.Equal(t, 200.0, a.BaseValue)
	assert.Equal(t, 100.0, a.CurrentValue)
	assert.False(t, ClampInPlace(a))
}

func TestRatio(t *testing.T) {
	a := &FloatAttribute{
		BaseValue: 80,
		Limits:    ValueLimits{UseMaxCurrent: true, MaxCurrent: 100, UseMinCurrent: true, MinCurrent: 10},
	}

	assert.Equal(t, 55.0, CurrentFromRatio(a, 0.5))
	assert.Equal(t, 0.5, Ratio(a, 55))
	assert.Equal(t, 100.0, CurrentFromRatio(a, 1.5))
	assert.Equal(t, 10.0, CurrentFromRatio(a, -1))

	// no bounds: 0..base
	plain := &FloatAttribute{BaseValue: 80}
	assert.Equal(t, 20.0, CurrentFromRatio(plain, 0.25))
	assert.Equal(t, 0.25, Ratio(plain, 20))

	// only the lower bound: read falls back to current/base
	minOnly := &FloatAttribute{BaseValue: 100, Limits: ValueLimits{UseMinCurrent: true, MinCurrent: 10}}
	assert.Equal(t, 0.55, Ratio(minOnly, 55))
	assert.Equal(t, 55.0, CurrentFromRatio(minOnly, 0.5))

	// only the upper bound: current/max
	maxOnly := &FloatAttribute{BaseValue: 80, Limits: ValueLimits{UseMaxCurrent: true, MaxCurrent: 40}}
	assert.Equal(t, 0.5, Ratio(maxOnly, 20))
	zeroMax := &FloatAttribute{BaseValue: 80, Limits: ValueLimits{UseMaxCurrent: true}}
	assert.Equal(t, 0.0, Ratio(zeroMax, 20))

	// empty range
	empty := &FloatAttribute{}
	assert.Equal(t, 0.0, Ratio(empty, 5))
	assert.Equal(t, 0.0, CurrentFromRatio(empty, 0.7))
}

func TestField(t *testing.T) {
	a := &FloatAttribute{
		BaseValue:        100,
		CurrentValue:     40,
		BaseRegenRate:    2,
		CurrentRegenRate: 3,
		Limits:           ValueLimits{UseMaxCurrent: true, MaxCurrent: 100, MinCurrent: 7},
	}

	v, ok := Field(a, CurrentValue, 60)
	require.True(t, ok)
	assert.Equal(t, 60.0, v, "live value wins over the stored one")

	v, ok = Field(a, MinCurrentValue, 60)
	require.True(t, ok)
	assert.Equal(t, 0.0, v, "disabled bound reads as zero")

	v, ok = Field(a, CurrentValueRatio, 60)
	require.True(t, ok)
	assert.Equal(t, 0.6, v)

	v, ok = Field(a, CurrentRegenRate, 60)
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = Field(a, ValueKind(42), 60)
	assert.False(t, ok)
}

func TestParseValueKind(t *testing.T) {
	k, err := ParseValueKind("currentvalueratio")
	require.NoError(t, err)
	assert.Equal(t, CurrentValueRatio, k)

	_, err = ParseValueKind("Mana")
	assert.Error(t, err)

	assert.False(t, ValueKind(-1).Valid())
	assert.Equal(t, "ValueKind(99)", ValueKind(99).String())
}

func TestFloatAttribute_YAML(t *testing.T) {
	src := `
tag: Attribute.Health
name: Health
base_value: 100
current_value: 100
current_regen_rate: 5
limits:
  use_max_current: true
  max_current: 100
`
	var a FloatAttribute
	require.NoError(t, yaml.Unmarshal([]byte(src), &a))
	assert.Equal(t, "Attribute.Health", a.Tag.String())
	assert.Equal(t, 5.0, a.CurrentRegenRate)
	assert.True(t, a.Limits.UseMaxCurrent)
}

func TestStructAttribute_Clone(t *testing.T) {
	v, ok := NewStructValue(handler.ValuesType)
	require.True(t, ok)
	vals := v.(handler.Values)
	vals["fire"] = 5

	s := StructAttribute{StructType: handler.ValuesType, Value: vals}
	c := s.Clone()
	c.Value.(handler.Values)["fire"] = 9

	assert.Equal(t, 5.0, vals["fire"])

	_, ok = NewStructValue("Unknown")
	assert.False(t, ok)
}
