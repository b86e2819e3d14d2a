package event

import (
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/attrsys/internal/tag"
)

// Event is one notification published on the bus.
//
// Domain narrows who should care: attribute add/remove events use the
// attribute tag as domain, value-changed events use AuthorityDomain or
// LocalDomain. Listeners filter on both.
type Event struct {
	Tag         tag.Tag
	Domain      tag.Tag
	Payload     any
	Sender      uint32
	Instigators []uint32
}

// Bus is the publish side of the host's event system.
type Bus interface {
	Publish(e Event)
}

// BusFunc adapts a function to Bus.
type BusFunc func(e Event)

// Publish calls f(e).
func (f BusFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Bus = BusFunc(func(Event) {})

// Subscription describes what a listener wants to receive.
// Empty filters match everything.
type Subscription struct {
	Events  tag.Set
	Domains tag.Set
	Senders []uint32
	Once    bool
	Handler func(e Event)
}

func (s *Subscription) matches(e Event) bool {
	if !s.Events.IsEmpty() && !s.Events.HasExact(e.Tag) {
		return false
	}
	if !s.Domains.IsEmpty() && !s.Domains.HasExact(e.Domain) {
		return false
	}
	if len(s.Senders) > 0 {
		found := false
		for _, id := range s.Senders {
			if id == e.Sender {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type subscriber struct {
	id  uuid.UUID
	sub Subscription
}

// Dispatcher is an in-memory Bus with filtered subscriptions.
//
// Thread-safe. Handlers run synchronously on the publishing goroutine,
// outside the dispatcher lock, so they may publish or subscribe again.
type Dispatcher struct {
	mu   sync.RWMutex
	subs []*subscriber
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make([]*subscriber, 0, 16)}
}

// Subscribe registers a listener and returns its id.
func (d *Dispatcher) Subscribe(s Subscription) uuid.UUID {
	id := uuid.New()
	d.mu.Lock()
	d.subs = append(d.subs, &subscriber{id: id, sub: s})
	d.mu.Unlock()
	return id
}

// Unsubscribe removes a listener. Unknown ids are ignored.
func (d *Dispatcher) Unsubscribe(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(id)
}

func (d *Dispatcher) removeLocked(id uuid.UUID) {
	for i, s := range d.subs {
		if s.id == id {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of active subscriptions.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Publish delivers e to every matching subscription.
func (d *Dispatcher) Publish(e Event) {
	d.mu.Lock()
	matched := make([]*subscriber, 0, 4)
	for _, s := range d.subs {
		if s.sub.matches(e) {
			matched = append(matched, s)
		}
	}
	for _, s := range matched {
		if s.sub.Once {
			d.removeLocked(s.id)
		}
	}
	d.mu.Unlock()

	for _, s := range matched {
		if s.sub.Handler != nil {
			s.sub.Handler(e)
		}
	}
}
