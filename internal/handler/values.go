package handler

import (
	"maps"
	"slices"

	"github.com/udisondev/attrsys/internal/tag"
)

// ValuesType is the struct type id of Values payloads.
const ValuesType = "Values"

// ValuesDiffID is the handler type for Values payloads.
const ValuesDiffID TypeID = "ValuesDiff"

// Values is a named set of numbers, e.g. elemental resistances.
type Values map[string]float64

// Clone returns an independent copy.
func (v Values) Clone() any {
	return maps.Clone(v)
}

// ValuesDiff reports one tag per key that was added, removed or changed,
// formed as <attribute tag>.<key>.
type ValuesDiff struct {
	owner uint32
}

// NewValuesDiff creates the handler for an entity.
func NewValuesDiff(ownerObjID uint32) Handler {
	return &ValuesDiff{owner: ownerObjID}
}

func (h *ValuesDiff) ModificationEvents(attrTag tag.Tag, oldValue, newValue any) tag.Set {
	oldVals, _ := oldValue.(Values)
	newVals, _ := newValue.(Values)

	keys := make([]string, 0, len(oldVals)+len(newVals))
	for k, v := range newVals {
		if prev, ok := oldVals[k]; !ok || prev != v {
			keys = append(keys, k)
		}
	}
	for k := range oldVals {
		if _, ok := newVals[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var out tag.Set
	for _, k := range keys {
		out.Add(attrTag.Child(k))
	}
	return out
}

func init() {
	Register(ValuesDiffID, NewValuesDiff)
}
