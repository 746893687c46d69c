package command

import "time"

// State is a step of the per-mission state machine:
//
//	Idle -> Connecting -> Takeoff -> Flying -> Landing -> Done
//	                 \         \         \         \
//	                  +---------+---------+---------+-> EmergencyLanding -> Failed
//
// A connection failure goes straight to Failed since nothing is airborne.
type State string

const (
	StateIdle             State = "idle"
	StateConnecting       State = "connecting"
	StateTakeoff          State = "takeoff"
	StateFlying           State = "flying"
	StateLanding          State = "landing"
	StateDone             State = "done"
	StateEmergencyLanding State = "emergency_landing"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transition can follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event is emitted on every state transition and after every waypoint.
type Event struct {
	Time    time.Time `json:"time"`
	State   State     `json:"state"`
	Index   int       `json:"index"`
	Label   string    `json:"label,omitempty"`
	Kind    Kind      `json:"kind,omitempty"`
	Message string    `json:"message"`
	// Reached and Total track progress through the plan.
	Reached int `json:"reached"`
	Total   int `json:"total"`
}

// Observer receives executor events. OnEvent is called synchronously from
// the executor, so implementations must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
