package world

import "sync/atomic"

// ObjectIDGenerator generates unique entity IDs.
//
// ID ranges (convention):
//
//	0x00000000 - 0x0FFFFFFF: Reserved (0 = invalid)
//	0x10000000 - 0x1FFFFFFF: Authoritative entities
//	0x20000000 - 0xFFFFFFFF: Reserved
//
// Mirrors reuse the ID of the entity they replicate.
type ObjectIDGenerator struct {
	next atomic.Uint32
}

// NewObjectIDGenerator creates a new ID generator.
func NewObjectIDGenerator() *ObjectIDGenerator {
	gen := &ObjectIDGenerator{}
	gen.next.Store(0x10000000)
	return gen
}

// Next returns the next unique entity ID.
// Thread-safe via atomic increment.
func (g *ObjectIDGenerator) Next() uint32 {
	return g.next.Add(1)
}
