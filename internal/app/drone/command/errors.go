package command

import (
	"errors"
	"fmt"
)

// Kind classifies why a mission (or part of it) failed.
type Kind string

const (
	KindConnection       Kind = "connection"
	KindLowBattery       Kind = "low_battery"
	KindTakeoff          Kind = "takeoff"
	KindMovement         Kind = "movement"
	KindPhotoCapture     Kind = "photo_capture"
	KindAction           Kind = "action"
	KindLanding          Kind = "landing"
	KindEmergencyLanding Kind = "emergency_landing"
	KindAborted          Kind = "aborted"
)

var (
	// ErrBatteryLow is the cause recorded when the battery gate or the
	// in-flight battery watch stops a mission.
	ErrBatteryLow = errors.New("battery below threshold")

	// ErrTooManyPhotoFailures is the cause recorded when photo failures
	// exceed the configured limit.
	ErrTooManyPhotoFailures = errors.New("too many photo capture failures")
)

// Failure explains why a mission did not complete. Index is the waypoint
// that triggered it, -1 before the first waypoint and plan length after
// the last one.
type Failure struct {
	Index int   `json:"index"`
	Kind  Kind  `json:"kind"`
	State State `json:"state"`
	Err   error `json:"-"`
	// EmergencyErr is set when the emergency landing itself failed.
	EmergencyErr error `json:"-"`
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s failure at waypoint %d during %s", f.Kind, f.Index, f.State)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	if f.EmergencyErr != nil {
		msg += " (emergency landing failed: " + f.EmergencyErr.Error() + ")"
	}
	return msg
}

func (f *Failure) Unwrap() []error {
	var errs []error
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	if f.EmergencyErr != nil {
		errs = append(errs, f.EmergencyErr)
	}
	return errs
}

// Worst returns KindEmergencyLanding when the drone could not be brought
// down, otherwise the triggering kind.
func (f *Failure) Worst() Kind {
	if f.EmergencyErr != nil {
		return KindEmergencyLanding
	}
	return f.Kind
}

// MarshalJSON keeps the error text in reports.
func (f *Failure) MarshalJSON() ([]byte, error) {
	type alias Failure
	out := struct {
		*alias
		Error          string `json:"error,omitempty"`
		EmergencyError string `json:"emergency_error,omitempty"`
	}{alias: (*alias)(f)}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	if f.EmergencyErr != nil {
		out.EmergencyError = f.EmergencyErr.Error()
	}
	return json.Marshal(out)
}
