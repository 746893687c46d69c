package mission

import (
	"fmt"
	"maps"
	"slices"
)

// Pattern names the planner that produced a Plan.
type Pattern string

const (
	PatternSquare    Pattern = "square"
	PatternGrid      Pattern = "grid"
	PatternOrbital   Pattern = "orbital"
	PatternSpiral    Pattern = "spiral"
	PatternWaypoints Pattern = "waypoints"
)

// Plan is the ordered list of waypoints for one flight plus the parameters
// that generated it. It is built once by a planner and never mutated; all
// accessors hand out copies.
type Plan struct {
	pattern   Pattern
	params    map[string]float64
	waypoints []Waypoint
	photos    int
}

func newPlan(p Pattern, params map[string]float64, wps []Waypoint) *Plan {
	photos := 0
	for _, wp := range wps {
		if wp.Action == ActionCapturePhoto {
			photos++
		}
	}
	return &Plan{pattern: p, params: params, waypoints: wps, photos: photos}
}

func (p *Plan) Pattern() Pattern { return p.pattern }

// Params returns a copy of the parameters the planner was called with.
func (p *Plan) Params() map[string]float64 { return maps.Clone(p.params) }

// Waypoints returns a copy of the waypoint sequence in traversal order.
func (p *Plan) Waypoints() []Waypoint { return slices.Clone(p.waypoints) }

func (p *Plan) Len() int { return len(p.waypoints) }

func (p *Plan) At(i int) Waypoint { return p.waypoints[i] }

// ExpectedPhotos is the number of waypoints tagged ActionCapturePhoto.
func (p *Plan) ExpectedPhotos() int { return p.photos }

// Validate checks the invariants every planner guarantees. The executor
// calls it before touching the drone, so a hand-built or zero Plan is
// rejected here rather than mid-flight.
func (p *Plan) Validate() error {
	if p == nil {
		return invalid("", "plan", "nil plan")
	}
	if len(p.waypoints) == 0 {
		return invalid(p.pattern, "waypoints", "plan has no waypoints")
	}
	for i, wp := range p.waypoints {
		if !finite(wp.Position) {
			return invalid(p.pattern, fmt.Sprintf("waypoints[%d].position", i), "non-finite coordinate")
		}
		if !(wp.Heading >= 0 && wp.Heading < 360) {
			return invalid(p.pattern, fmt.Sprintf("waypoints[%d].heading", i), "%v not in [0, 360)", wp.Heading)
		}
		if wp.Action == "" {
			return invalid(p.pattern, fmt.Sprintf("waypoints[%d].action", i), "empty action")
		}
	}
	return nil
}

// MarshalJSON exposes the plan for audit output and the plan command.
func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(planJSON{
		Pattern:        p.pattern,
		Params:         p.params,
		ExpectedPhotos: p.photos,
		Waypoints:      p.waypoints,
	})
}

type planJSON struct {
	Pattern        Pattern            `json:"pattern"`
	Params         map[string]float64 `json:"params"`
	ExpectedPhotos int                `json:"expected_photos"`
	Waypoints      []Waypoint         `json:"waypoints"`
}
