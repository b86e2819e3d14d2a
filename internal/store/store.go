// Package store holds an entity's float and struct attributes.
//
// A Store is either the authoritative copy of an entity's attributes or a
// mirror of it. Only the authority accepts mutations; a mirror changes
// solely through replication delivery (ApplyDelta and the On* callbacks)
// and may predict regeneration on reads.
package store

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/udisondev/attrsys/internal/attribute"
	"github.com/udisondev/attrsys/internal/clock"
	"github.com/udisondev/attrsys/internal/event"
	"github.com/udisondev/attrsys/internal/handler"
	"github.com/udisondev/attrsys/internal/metrics"
	"github.com/udisondev/attrsys/internal/notify"
	"github.com/udisondev/attrsys/internal/regen"
	"github.com/udisondev/attrsys/internal/tag"
)

// Role is fixed at construction.
type Role int8

const (
	RoleAuthority Role = iota
	RoleMirror
)

func (r Role) String() string {
	if r == RoleAuthority {
		return "authority"
	}
	return "mirror"
}

// Domain returns the event domain used for value-changed events.
func (r Role) Domain() tag.Tag {
	if r == RoleAuthority {
		return event.AuthorityDomain
	}
	return event.LocalDomain
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records published events, true-ups and rejected writes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithHandlers shares an existing handler cache, e.g. the entity's.
func WithHandlers(c *handler.Cache) Option {
	return func(s *Store) { s.handlers = c }
}

// Store is one collection of attributes for one entity.
//
// Thread-safe. Events are published after the lock is released, so
// listeners may call back into the store.
type Store struct {
	mu sync.RWMutex

	owner    uint32
	role     Role
	clock    clock.Clock
	regen    regen.Engine
	notifier *notify.Notifier
	handlers *handler.Cache
	metrics  *metrics.Metrics

	floats  map[tag.Tag]*attribute.FloatAttribute
	structs map[tag.Tag]*attribute.StructAttribute

	// Authority: version bumps on every mutation; dirty and tombstone maps
	// record the version at which a tag last changed or was removed.
	// Mirror: version is the last applied delta.
	version        uint64
	dirtyFloats    map[tag.Tag]uint64
	dirtyStructs   map[tag.Tag]uint64
	removedFloats  map[tag.Tag]uint64
	removedStructs map[tag.Tag]uint64
}

// New creates an empty store. A mirror's clock should report the estimated
// authority time (see clock.Offset).
func New(owner uint32, role Role, clk clock.Clock, bus event.Bus, opts ...Option) *Store {
	s := &Store{
		owner:          owner,
		role:           role,
		clock:          clk,
		floats:         make(map[tag.Tag]*attribute.FloatAttribute, 8),
		structs:        make(map[tag.Tag]*attribute.StructAttribute, 4),
		dirtyFloats:    make(map[tag.Tag]uint64, 8),
		dirtyStructs:   make(map[tag.Tag]uint64, 4),
		removedFloats:  make(map[tag.Tag]uint64),
		removedStructs: make(map[tag.Tag]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handlers == nil {
		s.handlers = handler.NewCache(owner)
	}
	s.regen.Metrics = s.metrics
	s.notifier = notify.New(owner, role.Domain(), bus, s.metrics)
	return s
}

// Owner returns the entity id.
func (s *Store) Owner() uint32 { return s.owner }

// Role returns the store's role.
func (s *Store) Role() Role { return s.role }

// IsAuthority reports whether the store accepts mutations.
func (s *Store) IsAuthority() bool { return s.role == RoleAuthority }

// Now returns the store's notion of authority time.
func (s *Store) Now() float64 { return s.clock.Now() }

// Version returns the current collection version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// writable logs and rejects mutations on a mirror.
func (s *Store) writable(op string, attrTag tag.Tag) bool {
	if s.role == RoleAuthority {
		return true
	}
	slog.Warn("attribute write rejected on mirror",
		"op", op,
		"owner", s.owner,
		"attribute", attrTag.String())
	s.metrics.WriteRejected("mirror")
	return false
}

func (s *Store) touchFloatLocked(t tag.Tag) {
	s.version++
	s.dirtyFloats[t] = s.version
	delete(s.removedFloats, t)
}

func (s *Store) dropFloatLocked(t tag.Tag) {
	s.version++
	s.removedFloats[t] = s.version
	delete(s.dirtyFloats, t)
}

func (s *Store) touchStructLocked(t tag.Tag) {
	s.version++
	s.dirtyStructs[t] = s.version
	delete(s.removedStructs, t)
}

func (s *Store) dropStructLocked(t tag.Tag) {
	s.version++
	s.removedStructs[t] = s.version
	delete(s.dirtyStructs, t)
}

func byTag(a, b tag.Tag) int {
	return strings.Compare(a.String(), b.String())
}

func sortedTags[V any](m map[tag.Tag]V) []tag.Tag {
	out := make([]tag.Tag, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	slices.SortFunc(out, byTag)
	return out
}
