package attribute

import (
	"sync"

	"github.com/udisondev/attrsys/internal/handler"
	"github.com/udisondev/attrsys/internal/tag"
)

// StructType names the payload type carried by a StructAttribute.
type StructType string

// StructAttribute carries an opaque payload. Identity is by Tag.
// Handler is only a type id; the instance is owned by the entity's handler cache.
type StructAttribute struct {
	Tag        tag.Tag
	StructType StructType
	Value      any
	Handler    handler.TypeID
}

// Cloner is implemented by payloads that hold references (maps, slices) so
// the attribute can keep exclusive ownership of its value.
type Cloner interface {
	Clone() any
}

// CloneValue deep-copies v when it implements Cloner.
func CloneValue(v any) any {
	if c, ok := v.(Cloner); ok {
		return c.Clone()
	}
	return v
}

// Clone returns a copy that shares no mutable payload with s.
func (s StructAttribute) Clone() StructAttribute {
	s.Value = CloneValue(s.Value)
	return s
}

// structTypes maps StructType -> zero-value constructor.
// Populated at startup; read-mostly afterwards.
var (
	structTypesMu sync.RWMutex
	structTypes   = map[StructType]func() any{}
)

// RegisterStructType registers the constructor used to initialise new
// attributes of type id.
func RegisterStructType(id StructType, zero func() any) {
	structTypesMu.Lock()
	structTypes[id] = zero
	structTypesMu.Unlock()
}

// NewStructValue returns a fresh zero payload for id.
func NewStructValue(id StructType) (any, bool) {
	structTypesMu.RLock()
	zero, ok := structTypes[id]
	structTypesMu.RUnlock()
	if !ok {
		return nil, false
	}
	return zero(), true
}

func init() {
	RegisterStructType(handler.ValuesType, func() any { return handler.Values{} })
}
