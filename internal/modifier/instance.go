package modifier

import (
	"github.com/google/uuid"

	"github.com/udisondev/attrsys/internal/tag"
)

// State of a modifier instance.
//
//	Uninitialized -> Applying -> Active -> Ended | Cancelled
//
// Instant modifiers go from Applying straight to Ended.
type State int8

const (
	Uninitialized State = iota
	Applying
	Active
	Ended
	Cancelled
)

var stateNames = [...]string{
	Uninitialized: "uninitialized",
	Applying:      "applying",
	Active:        "active",
	Ended:         "ended",
	Cancelled:     "cancelled",
}

func (s State) String() string {
	if int(s) < len(stateNames) && s >= 0 {
		return stateNames[s]
	}
	return "unknown"
}

// IsTerminal reports whether s is Ended or Cancelled.
func (s State) IsTerminal() bool {
	return s == Ended || s == Cancelled
}

// End reasons passed to Effect.OnEnd and carried by ModifierEnded events.
var (
	ReasonEnded     = tag.New("Attrsys.Modifier.EndReason.Ended")
	ReasonExpired   = tag.New("Attrsys.Modifier.EndReason.Expired")
	ReasonCancelled = tag.New("Attrsys.Modifier.EndReason.Cancelled")
)

// Instance is a modifier applied to a host entity.
type Instance struct {
	ID         uuid.UUID
	Class      ClassID
	Kind       Kind
	CanStack   bool
	Stacks     uint32
	State      State
	Tags       tag.Set
	HostObjID  uint32
	Instigator uint32
	AppliedAt  float64
	// ExpiresAt is 0 for instances without a duration.
	ExpiresAt float64
}

// IsActive reports whether the instance is an active Duration modifier.
func (i Instance) IsActive() bool {
	return i.State == Active
}

// Change is the payload of modifier lifecycle events.
type Change struct {
	Instance Instance
	Reason   tag.Tag
}
