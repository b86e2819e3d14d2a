package attribute

import "github.com/udisondev/attrsys/internal/tag"

// FloatModification is the payload of every float value-changed event.
type FloatModification struct {
	Owner    uint32
	Tag      tag.Tag
	Kind     ValueKind
	NewValue float64
}

// StructModification is the payload of StructAttributeValueChanged.
// ModificationTags comes from the attribute's handler and is not
// interpreted further.
type StructModification struct {
	Owner            uint32
	Tag              tag.Tag
	OldValue         any
	NewValue         any
	ModificationTags tag.Set
}
