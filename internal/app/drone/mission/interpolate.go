package mission

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// MaxSDKMove is the longest single move the Tello SDK accepts, in cm.
const MaxSDKMove = 500

// interpolate inserts evenly spaced ActionNone waypoints so that no leg,
// including the first one from the takeoff point, is longer than maxLeg.
// Intermediate points keep the heading of the leg's start so the drone
// does not turn mid-leg.
func interpolate(wps []Waypoint, maxLeg float64) []Waypoint {
	out := make([]Waypoint, 0, len(wps))
	prev := r3.Vector{}
	heading := 0.0
	for _, wp := range wps {
		leg := wp.Position.Sub(prev)
		if n := int(math.Ceil(leg.Norm() / maxLeg)); n > 1 {
			for j := 1; j < n; j++ {
				out = append(out, Waypoint{
					Position: prev.Add(leg.Mul(float64(j) / float64(n))),
					Heading:  heading,
					Action:   ActionNone,
					Label:    fmt.Sprintf("%s~%d", wp.Label, j),
				})
			}
		}
		out = append(out, wp)
		prev = wp.Position
		heading = wp.Heading
	}
	return out
}

// interpolatedLen is the number of waypoints interpolate would return.
func interpolatedLen(wps []Waypoint, maxLeg float64) float64 {
	total := 0.0
	prev := r3.Vector{}
	for _, wp := range wps {
		total += max(math.Ceil(wp.Position.Distance(prev)/maxLeg), 1)
		prev = wp.Position
	}
	return total
}

// LegLengths returns the straight-line length of every leg in the plan,
// starting with the leg from the takeoff point to the first waypoint.
func (p *Plan) LegLengths() []float64 {
	legs := make([]float64, len(p.waypoints))
	prev := r3.Vector{}
	for i, wp := range p.waypoints {
		legs[i] = wp.Position.Distance(prev)
		prev = wp.Position
	}
	return legs
}

// PathLength is the total distance flown through the plan, in cm.
func (p *Plan) PathLength() float64 {
	total := 0.0
	for _, l := range p.LegLengths() {
		total += l
	}
	return total
}
