package mission

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// MaxWaypoints bounds the size of any generated plan.
const MaxWaypoints = 100_000

// Option adjusts how a planner tags or post-processes its waypoints.
type Option func(*options)

type options struct {
	captureAll bool
	captureAt  map[int]bool
	maxLeg     float64
}

// WithCapture tags every generated waypoint with ActionCapturePhoto.
func WithCapture() Option {
	return func(o *options) { o.captureAll = true }
}

// WithCaptureAt tags the waypoints at the given indices with
// ActionCapturePhoto, e.g. individual square corners.
func WithCaptureAt(indices ...int) Option {
	return func(o *options) {
		if o.captureAt == nil {
			o.captureAt = make(map[int]bool)
		}
		for _, i := range indices {
			o.captureAt[i] = true
		}
	}
}

// WithMaxLeg splits any leg longer than cm into equal interpolated legs.
// Zero disables it.
func WithMaxLeg(cm float64) Option {
	return func(o *options) { o.maxLeg = cm }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// finish applies capture tagging and leg interpolation, then freezes the plan.
func finish(p Pattern, params map[string]float64, wps []Waypoint, o options) (*Plan, error) {
	if o.maxLeg < 0 || math.IsNaN(o.maxLeg) {
		return nil, invalid(p, "max_leg", "must be >= 0, got %v", o.maxLeg)
	}
	for i := range wps {
		if o.captureAll || o.captureAt[i] {
			wps[i].Action = ActionCapturePhoto
		}
	}
	for i := range o.captureAt {
		if i < 0 || i >= len(wps) {
			return nil, invalid(p, "capture_at", "index %d out of range [0, %d)", i, len(wps))
		}
	}
	if o.maxLeg > 0 {
		if n := interpolatedLen(wps, o.maxLeg); n > MaxWaypoints {
			return nil, invalid(p, "max_leg", "%v cm legs need %.0f waypoints, more than %d", o.maxLeg, n, MaxWaypoints)
		}
		wps = interpolate(wps, o.maxLeg)
	}
	return newPlan(p, params, wps), nil
}

// Square flies a closed square at constant height, heading held at 0. The
// last corner is the start position.
func Square(sideCm, heightCm float64, opts ...Option) (*Plan, error) {
	if !(sideCm > 0) || math.IsInf(sideCm, 0) {
		return nil, invalid(PatternSquare, "side_length", "must be > 0, got %v", sideCm)
	}
	if !(heightCm >= 0) || math.IsInf(heightCm, 0) {
		return nil, invalid(PatternSquare, "height", "must be >= 0, got %v", heightCm)
	}

	corners := []r3.Vector{
		{X: sideCm, Y: 0, Z: heightCm},
		{X: sideCm, Y: sideCm, Z: heightCm},
		{X: 0, Y: sideCm, Z: heightCm},
		{X: 0, Y: 0, Z: heightCm},
	}
	wps := make([]Waypoint, len(corners))
	for i, c := range corners {
		wps[i] = Waypoint{
			Position: c,
			Heading:  0,
			Action:   ActionNone,
			Label:    fmt.Sprintf("square-corner-%d", i+1),
		}
	}

	params := map[string]float64{"side_length_cm": sideCm, "height_cm": heightCm}
	return finish(PatternSquare, params, wps, collect(opts))
}

// EffectiveSpacing is the distance between neighbouring grid points once
// photo footprint overlap is applied.
func EffectiveSpacing(spacingCm, overlap float64) float64 {
	return spacingCm * (1 - overlap)
}

// Grid lays out an n×n lattice flown boustrophedon: even rows left to right,
// odd rows right to left. Every point captures a photo.
func Grid(n int, spacingCm, overlap, heightCm float64, opts ...Option) (*Plan, error) {
	if n < 1 {
		return nil, invalid(PatternGrid, "grid_size", "must be >= 1, got %d", n)
	}
	if n > MaxWaypoints || int64(n)*int64(n) > MaxWaypoints {
		return nil, invalid(PatternGrid, "grid_size", "%d×%d exceeds %d waypoints", n, n, MaxWaypoints)
	}
	if !(spacingCm > 0) || math.IsInf(spacingCm, 0) {
		return nil, invalid(PatternGrid, "spacing", "must be > 0, got %v", spacingCm)
	}
	if !(overlap >= 0 && overlap < 1) {
		return nil, invalid(PatternGrid, "overlap", "must be in [0, 1), got %v", overlap)
	}
	if !(heightCm >= 0) || math.IsInf(heightCm, 0) {
		return nil, invalid(PatternGrid, "height", "must be >= 0, got %v", heightCm)
	}

	eff := EffectiveSpacing(spacingCm, overlap)
	wps := make([]Waypoint, 0, n*n)
	for row := 0; row < n; row++ {
		for k := 0; k < n; k++ {
			col := k
			if row%2 == 1 {
				col = n - 1 - k
			}
			wps = append(wps, Waypoint{
				Position: r3.Vector{X: float64(col) * eff, Y: float64(row) * eff, Z: heightCm},
				Heading:  0,
				Action:   ActionCapturePhoto,
				Label:    fmt.Sprintf("grid[%d,%d]", row, col),
			})
		}
	}

	params := map[string]float64{
		"grid_size":            float64(n),
		"spacing_cm":           spacingCm,
		"overlap":              overlap,
		"height_cm":            heightCm,
		"effective_spacing_cm": eff,
	}
	return finish(PatternGrid, params, wps, collect(opts))
}

// Orbital places n points evenly on a circle around the takeoff point at
// the given height, each facing the centre and capturing a photo.
func Orbital(radiusCm float64, n int, heightCm float64, opts ...Option) (*Plan, error) {
	if !(radiusCm > 0) || math.IsInf(radiusCm, 0) {
		return nil, invalid(PatternOrbital, "radius", "must be > 0, got %v", radiusCm)
	}
	if n < 3 || n > MaxWaypoints {
		return nil, invalid(PatternOrbital, "points", "must be in [3, %d], got %d", MaxWaypoints, n)
	}
	if !(heightCm >= 0) || math.IsInf(heightCm, 0) {
		return nil, invalid(PatternOrbital, "height", "must be >= 0, got %v", heightCm)
	}

	step := 360 / float64(n)
	wps := make([]Waypoint, n)
	for i := 0; i < n; i++ {
		angle := float64(i) * step
		rad := angle * math.Pi / 180
		wps[i] = Waypoint{
			Position: r3.Vector{X: radiusCm * math.Cos(rad), Y: radiusCm * math.Sin(rad), Z: heightCm},
			Heading:  NormalizeHeading(angle + 180),
			Action:   ActionCapturePhoto,
			Label:    fmt.Sprintf("orbit-point-%d", i),
		}
	}

	params := map[string]float64{"radius_cm": radiusCm, "points": float64(n), "height_cm": heightCm}
	return finish(PatternOrbital, params, wps, collect(opts))
}

// Spiral is a rising helix: radius and height grow linearly per point and
// the angle advances 360/pointsPerTurn per point. Headings follow the
// tangent. No photos unless requested through options.
func Spiral(startRadiusCm, radiusGrowthCm, heightGrowthCm float64, turns, pointsPerTurn int, opts ...Option) (*Plan, error) {
	if turns < 1 {
		return nil, invalid(PatternSpiral, "turns", "must be >= 1, got %d", turns)
	}
	if pointsPerTurn < 3 {
		return nil, invalid(PatternSpiral, "points_per_turn", "must be >= 3, got %d", pointsPerTurn)
	}
	if turns > MaxWaypoints || pointsPerTurn > MaxWaypoints || int64(turns)*int64(pointsPerTurn) > MaxWaypoints {
		return nil, invalid(PatternSpiral, "turns", "%d turns of %d points exceed %d waypoints", turns, pointsPerTurn, MaxWaypoints)
	}
	for name, v := range map[string]float64{
		"start_radius":  startRadiusCm,
		"radius_growth": radiusGrowthCm,
		"height_growth": heightGrowthCm,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalid(PatternSpiral, name, "must be finite, got %v", v)
		}
	}
	if startRadiusCm < 0 {
		return nil, invalid(PatternSpiral, "start_radius", "must be >= 0, got %v", startRadiusCm)
	}

	total := turns * pointsPerTurn
	if last := startRadiusCm + float64(total-1)*radiusGrowthCm; last < 0 {
		return nil, invalid(PatternSpiral, "radius_growth", "radius shrinks below zero (%v) before the last point", last)
	}

	step := 360 / float64(pointsPerTurn)
	wps := make([]Waypoint, total)
	for i := 0; i < total; i++ {
		angle := float64(i) * step
		rad := angle * math.Pi / 180
		r := startRadiusCm + float64(i)*radiusGrowthCm
		wps[i] = Waypoint{
			Position: r3.Vector{X: r * math.Cos(rad), Y: r * math.Sin(rad), Z: float64(i) * heightGrowthCm},
			Heading:  NormalizeHeading(angle + 90),
			Action:   ActionNone,
			Label:    fmt.Sprintf("spiral-point-%d", i),
		}
	}

	params := map[string]float64{
		"start_radius_cm":  startRadiusCm,
		"radius_growth_cm": radiusGrowthCm,
		"height_growth_cm": heightGrowthCm,
		"turns":            float64(turns),
		"points_per_turn":  float64(pointsPerTurn),
	}
	return finish(PatternSpiral, params, wps, collect(opts))
}

// FromWaypoints wraps caller-supplied waypoints into a Plan. Headings are
// normalized, empty labels and actions get defaults.
func FromWaypoints(list []Waypoint, opts ...Option) (*Plan, error) {
	if len(list) == 0 {
		return nil, invalid(PatternWaypoints, "waypoints", "list is empty")
	}
	if len(list) > MaxWaypoints {
		return nil, invalid(PatternWaypoints, "waypoints", "%d waypoints exceed %d", len(list), MaxWaypoints)
	}
	wps := make([]Waypoint, len(list))
	for i, wp := range list {
		if !finite(wp.Position) {
			return nil, invalid(PatternWaypoints, fmt.Sprintf("waypoints[%d].position", i), "non-finite coordinate")
		}
		if math.IsNaN(wp.Heading) || math.IsInf(wp.Heading, 0) {
			return nil, invalid(PatternWaypoints, fmt.Sprintf("waypoints[%d].heading", i), "must be finite")
		}
		wp.Heading = NormalizeHeading(wp.Heading)
		if wp.Action == "" {
			wp.Action = ActionNone
		}
		if wp.Label == "" {
			wp.Label = fmt.Sprintf("waypoint-%d", i)
		}
		wps[i] = wp
	}

	params := map[string]float64{"count": float64(len(wps))}
	return finish(PatternWaypoints, params, wps, collect(opts))
}
