package command

import (
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"

	"tello-mission/internal/app/drone/mission"
	"tello-mission/internal/app/drone/photo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WaypointOutcome is what happened at one waypoint.
type WaypointOutcome struct {
	Index   int           `json:"index"`
	Label   string        `json:"label"`
	Reached bool          `json:"reached"`
	Photo   *photo.Handle `json:"photo,omitempty"`
	// PhotoErr and ActionErr are non-fatal: the waypoint still counts as reached.
	PhotoErr  error         `json:"-"`
	ActionErr error         `json:"-"`
	Elapsed   time.Duration `json:"elapsed"`
}

// MarshalJSON keeps the photo and action error text in reports.
func (o WaypointOutcome) MarshalJSON() ([]byte, error) {
	type alias WaypointOutcome
	out := struct {
		alias
		PhotoError  string `json:"photo_error,omitempty"`
		ActionError string `json:"action_error,omitempty"`
	}{alias: alias(o)}
	if o.PhotoErr != nil {
		out.PhotoError = o.PhotoErr.Error()
	}
	if o.ActionErr != nil {
		out.ActionError = o.ActionErr.Error()
	}
	return json.Marshal(out)
}

// Result is the read-only summary handed back by Execute.
type Result struct {
	Pattern          mission.Pattern   `json:"pattern"`
	Completed        bool              `json:"completed"`
	WaypointsReached int               `json:"waypoints_reached"`
	Photos           []photo.Handle    `json:"photos_captured"`
	Outcomes         []WaypointOutcome `json:"outcomes"`
	Failure          *Failure          `json:"failure,omitempty"`
	FinalState       State             `json:"final_state"`
	StartedAt        time.Time         `json:"started_at"`
	Duration         time.Duration     `json:"duration"`
}

// Err returns the failure as an error, or nil for a completed mission.
func (r *Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// PhotoFailures counts reached waypoints whose photo capture failed.
func (r *Result) PhotoFailures() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.PhotoErr != nil {
			n++
		}
	}
	return n
}

// recorder accumulates outcomes while the executor owns the run. It does
// no control logic of its own.
type recorder struct {
	pattern   mission.Pattern
	startedAt time.Time
	reached   int
	photos    []photo.Handle
	outcomes  []WaypointOutcome
}

func newRecorder(pattern mission.Pattern, startedAt time.Time) *recorder {
	return &recorder{pattern: pattern, startedAt: startedAt}
}

func (r *recorder) record(o WaypointOutcome) {
	if o.Reached {
		r.reached++
	}
	if o.Photo != nil {
		r.photos = append(r.photos, *o.Photo)
	}
	r.outcomes = append(r.outcomes, o)
}

// snapshot freezes the accumulated state into a Result the caller owns.
func (r *recorder) snapshot(state State, failure *Failure, now time.Time) *Result {
	outcomes := slices.Clone(r.outcomes)
	for i := range outcomes {
		if p := outcomes[i].Photo; p != nil {
			h := *p
			outcomes[i].Photo = &h
		}
	}
	var f *Failure
	if failure != nil {
		cp := *failure
		f = &cp
	}
	return &Result{
		Pattern:          r.pattern,
		Completed:        state == StateDone,
		WaypointsReached: r.reached,
		Photos:           slices.Clone(r.photos),
		Outcomes:         outcomes,
		Failure:          f,
		FinalState:       state,
		StartedAt:        r.startedAt,
		Duration:         now.Sub(r.startedAt),
	}
}
