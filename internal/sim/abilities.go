package sim

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/attrsys/internal/clock"
	"github.com/udisondev/attrsys/internal/event"
)

// AbilityLog is a minimal ability pipeline: every activation succeeds and
// stays active until cancelled or ended by EndBefore. It lets
// TriggerAbility effects run in the simulator without a real ability layer.
type AbilityLog struct {
	bus   event.Bus
	clock clock.Clock

	mu     sync.Mutex
	active map[uuid.UUID]activation
}

type activation struct {
	owner   uint32
	ability string
	at      float64
}

func NewAbilityLog(bus event.Bus, clk clock.Clock) *AbilityLog {
	if bus == nil {
		bus = event.Discard
	}
	return &AbilityLog{bus: bus, clock: clk, active: make(map[uuid.UUID]activation, 8)}
}

// ActivateAbility implements modifier.AbilityPipeline.
func (l *AbilityLog) ActivateAbility(owner uint32, ability string, _ any) (uuid.UUID, bool) {
	id := uuid.New()
	l.mu.Lock()
	l.active[id] = activation{owner: owner, ability: ability, at: l.clock.Now()}
	l.mu.Unlock()

	slog.Info("ability activated", "owner", owner, "ability", ability, "id", id)
	return id, true
}

// CancelAbility implements modifier.AbilityPipeline.
func (l *AbilityLog) CancelAbility(owner uint32, id uuid.UUID) {
	l.mu.Lock()
	a, ok := l.active[id]
	delete(l.active, id)
	l.mu.Unlock()
	if !ok {
		return
	}

	slog.Info("ability cancelled", "owner", owner, "ability", a.ability, "id", id)
	l.bus.Publish(event.Event{
		Tag:     event.AbilityCancelled,
		Domain:  event.AuthorityDomain,
		Payload: id,
		Sender:  owner,
	})
}

// EndBefore ends every activation started before t and publishes
// AbilityEnded for each. Returns how many ended.
func (l *AbilityLog) EndBefore(t float64) int {
	type ended struct {
		id uuid.UUID
		activation
	}
	var out []ended
	l.mu.Lock()
	for id, a := range l.active {
		if a.at < t {
			out = append(out, ended{id: id, activation: a})
			delete(l.active, id)
		}
	}
	l.mu.Unlock()

	for _, e := range out {
		slog.Debug("ability ended", "owner", e.owner, "ability", e.ability, "id", e.id)
		l.bus.Publish(event.Event{
			Tag:     event.AbilityEnded,
			Domain:  event.AuthorityDomain,
			Payload: e.id,
			Sender:  e.owner,
		})
	}
	return len(out)
}

// Active returns the number of abilities not yet cancelled.
func (l *AbilityLog) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}
