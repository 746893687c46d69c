// Package command flies a mission plan through a drone control port. The
// executor is written once against Port and does not know whether it is
// holding real hardware or the simulator.
package command

import (
	"context"

	"tello-mission/internal/app/drone/photo"
)

// Port is the capability set every drone backend implements. Each call
// blocks until the drone reports completion or failure; timeouts are the
// port's business and surface as ordinary errors.
//
// MoveTo offsets are in centimetres in the mission frame fixed at takeoff
// (x forward, y right, z up). Rotate is in degrees, positive clockwise.
type Port interface {
	Connect(ctx context.Context) error
	Takeoff(ctx context.Context) error
	Land(ctx context.Context) error
	EmergencyLand(ctx context.Context) error
	MoveTo(ctx context.Context, dx, dy, dz float64) error
	Rotate(ctx context.Context, deltaDeg float64) error
	CapturePhoto(ctx context.Context) (photo.Handle, error)
	Battery() (int, error)
	IsConnected() bool
}

// ActionHandler runs a custom waypoint action once the drone has arrived.
type ActionHandler func(ctx context.Context, port Port, index int, label string) error

type labelKey struct{}

// WithWaypointLabel attaches the label of the waypoint being serviced so a
// port can name what it captures there.
func WithWaypointLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, labelKey{}, label)
}

// WaypointLabel returns the label set by WithWaypointLabel, or "".
func WaypointLabel(ctx context.Context) string {
	s, _ := ctx.Value(labelKey{}).(string)
	return s
}
