package attribute

import (
	"fmt"
	"strings"
)

// ValueKind selects which field of a FloatAttribute an operation reads or writes.
type ValueKind int8

const (
	BaseValue ValueKind = iota
	CurrentValue
	MaxCurrentValue
	MinCurrentValue
	MaxBaseValue
	MinBaseValue
	CurrentValueRatio
	BaseRegenRate
	CurrentRegenRate
)

var kindNames = [...]string{
	BaseValue:         "BaseValue",
	CurrentValue:      "CurrentValue",
	MaxCurrentValue:   "MaxCurrentValue",
	MinCurrentValue:   "MinCurrentValue",
	MaxBaseValue:      "MaxBaseValue",
	MinBaseValue:      "MinBaseValue",
	CurrentValueRatio: "CurrentValueRatio",
	BaseRegenRate:     "BaseRegenRate",
	CurrentRegenRate:  "CurrentRegenRate",
}

func (k ValueKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", int8(k))
}

// Valid reports whether k is one of the supported kinds.
func (k ValueKind) Valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// ParseValueKind converts a name ("CurrentValue", case-insensitive) to a kind.
func ParseValueKind(s string) (ValueKind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(name, s) {
			return ValueKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown value kind %q", s)
}

// UnmarshalText lets catalogs spell kinds by name.
func (k *ValueKind) UnmarshalText(text []byte) error {
	parsed, err := ParseValueKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k ValueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
