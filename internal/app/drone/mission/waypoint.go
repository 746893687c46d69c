// Package mission turns mission parameters into ordered, immutable waypoint
// plans. Nothing in here talks to a drone.
package mission

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Action is what the drone does once it arrives at a waypoint.
type Action string

const (
	ActionNone         Action = "none"
	ActionCapturePhoto Action = "capture_photo"
)

// IsCustom reports whether the action has to be dispatched to a handler
// registered with the executor.
func (a Action) IsCustom() bool {
	return a != ActionNone && a != ActionCapturePhoto
}

// Waypoint is a target pose relative to the takeoff point plus an optional
// action. Positions are in centimetres: x forward, y right, z up.
type Waypoint struct {
	Position r3.Vector `json:"position"`
	Heading  float64   `json:"heading"`
	Action   Action    `json:"action"`
	Label    string    `json:"label"`
}

func (w Waypoint) String() string {
	return fmt.Sprintf("%s (%.1f, %.1f, %.1f) hdg %.1f %s",
		w.Label, w.Position.X, w.Position.Y, w.Position.Z, w.Heading, w.Action)
}

// NormalizeHeading maps any angle in degrees into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	// math.Mod of a tiny negative value can round back up to 360.
	if h >= 360 {
		h = 0
	}
	return h
}

// HeadingDelta returns the shortest signed rotation from one heading to
// another, in (-180, 180]. Positive is clockwise.
func HeadingDelta(from, to float64) float64 {
	d := NormalizeHeading(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}

func finite(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
