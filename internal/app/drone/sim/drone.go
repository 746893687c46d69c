// Package sim is an in-process drone that answers the same calls as the
// real Tello. It flies instantly (or with a fixed step delay), drains a
// virtual battery and can be told to fail specific calls.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"tello-mission/internal/app/drone/command"
	"tello-mission/internal/app/drone/mission"
	"tello-mission/internal/app/drone/photo"
)

var (
	// ErrInjected is returned by every call failed on purpose through Config.
	ErrInjected     = errors.New("sim: injected fault")
	ErrNotConnected = errors.New("sim: not connected")
	ErrNotAirborne  = errors.New("sim: not airborne")
	ErrBelowGround  = errors.New("sim: move would go below the takeoff point")
	ErrBatteryEmpty = errors.New("sim: battery depleted")
	ErrClosed       = errors.New("sim: session closed")
	ErrNoCamera     = errors.New("sim: no photo store configured")
)

// Config shapes one simulated flight. FailMoveAt and FailPhotoAt hold
// zero-based call indices of MoveTo and CapturePhoto.
type Config struct {
	StepDelay        time.Duration
	Battery          int
	DrainPerMetre    float64
	DrainPerRotation float64 // per 90 degrees turned

	FailConnect bool
	FailTakeoff bool
	FailLand    bool
	FailMoveAt  []int
	FailPhotoAt []int
}

// State is a snapshot of the simulated drone.
type State struct {
	Connected bool      `json:"connected"`
	Airborne  bool      `json:"airborne"`
	Position  r3.Vector `json:"position"`
	Heading   float64   `json:"heading"`
	Battery   int       `json:"battery"`
	Moves     int       `json:"moves"`
	Photos    int       `json:"photos"`
	Distance  float64   `json:"distance_cm"`
}

// Drone implements command.Port.
type Drone struct {
	cfg    Config
	photos *photo.Store
	logger *zap.Logger

	mu        sync.Mutex
	closed    bool
	connected bool
	airborne  bool
	pos       r3.Vector
	heading   float64
	battery   float64
	distance  float64
	moves     int
	shots     int
}

var _ command.Port = (*Drone)(nil)

// Open starts a simulator session. The caller must Close it, which lands
// the drone if a mission left it in the air.
func Open(cfg Config, photos *photo.Store, logger *zap.Logger) (*Drone, error) {
	if cfg.Battery < 0 || cfg.Battery > 100 {
		return nil, fmt.Errorf("sim: battery %d out of range", cfg.Battery)
	}
	if cfg.StepDelay < 0 || cfg.DrainPerMetre < 0 || cfg.DrainPerRotation < 0 {
		return nil, fmt.Errorf("sim: negative delay or drain rate")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drone{
		cfg:     cfg,
		photos:  photos,
		logger:  logger.Named("sim"),
		battery: float64(cfg.Battery),
	}, nil
}

// Close ends the session. A drone still airborne is set down first.
func (d *Drone) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if d.airborne {
		d.logger.Warn("Session closed while airborne, landing", zap.Float64("z", d.pos.Z))
		d.touchDown()
	}
	d.connected = false
	d.closed = true
	return nil
}

func (d *Drone) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.cfg.FailConnect {
		return fmt.Errorf("connect: %w", ErrInjected)
	}
	d.connected = true
	d.logger.Info("Connected", zap.Int("battery", d.level()))
	return nil
}

func (d *Drone) Takeoff(ctx context.Context) error {
	if err := d.step(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	if d.cfg.FailTakeoff {
		return fmt.Errorf("takeoff: %w", ErrInjected)
	}
	d.airborne = true
	d.logger.Debug("Took off")
	return nil
}

func (d *Drone) Land(ctx context.Context) error {
	if err := d.step(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	if d.cfg.FailLand {
		return fmt.Errorf("land: %w", ErrInjected)
	}
	d.touchDown()
	return nil
}

// EmergencyLand always succeeds once connected: the motors are cut where
// the drone is.
func (d *Drone) EmergencyLand(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	d.logger.Warn("Emergency landing", zap.Float64("x", d.pos.X), zap.Float64("y", d.pos.Y), zap.Float64("z", d.pos.Z))
	d.touchDown()
	return nil
}

// MoveTo applies the offset in the mission frame.
func (d *Drone) MoveTo(ctx context.Context, dx, dy, dz float64) error {
	if err := d.step(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.flying(); err != nil {
		return err
	}
	n := d.moves
	d.moves++
	if slices.Contains(d.cfg.FailMoveAt, n) {
		return fmt.Errorf("move %d: %w", n, ErrInjected)
	}

	delta := r3.Vector{X: dx, Y: dy, Z: dz}
	next := d.pos.Add(delta)
	if next.Z < 0 {
		return fmt.Errorf("move %d to z=%.1f: %w", n, next.Z, ErrBelowGround)
	}
	dist := delta.Norm()
	d.battery -= dist / 100 * d.cfg.DrainPerMetre
	d.distance += dist
	d.pos = next
	return nil
}

func (d *Drone) Rotate(ctx context.Context, deltaDeg float64) error {
	if err := d.step(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.flying(); err != nil {
		return err
	}
	d.heading = mission.NormalizeHeading(d.heading + deltaDeg)
	d.battery -= math.Abs(deltaDeg) / 90 * d.cfg.DrainPerRotation
	return nil
}

// CapturePhoto renders the current view as a JPEG into the photo store.
func (d *Drone) CapturePhoto(ctx context.Context) (photo.Handle, error) {
	d.mu.Lock()
	if err := d.ready(); err != nil {
		d.mu.Unlock()
		return photo.Handle{}, err
	}
	n := d.shots
	d.shots++
	st := d.snapshot()
	d.mu.Unlock()

	if slices.Contains(d.cfg.FailPhotoAt, n) {
		return photo.Handle{}, fmt.Errorf("photo %d: %w", n, ErrInjected)
	}
	if d.photos == nil {
		return photo.Handle{}, ErrNoCamera
	}
	img, err := renderView(st)
	if err != nil {
		return photo.Handle{}, fmt.Errorf("photo %d: %w", n, err)
	}
	return d.photos.Save(command.WaypointLabel(ctx), "jpg", img)
}

func (d *Drone) Battery() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return 0, err
	}
	return d.level(), nil
}

func (d *Drone) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// State returns a snapshot of position, heading, battery and counters.
func (d *Drone) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

func (d *Drone) snapshot() State {
	return State{
		Connected: d.connected,
		Airborne:  d.airborne,
		Position:  d.pos,
		Heading:   d.heading,
		Battery:   d.level(),
		Moves:     d.moves,
		Photos:    d.shots,
		Distance:  d.distance,
	}
}

func (d *Drone) ready() error {
	if d.closed {
		return ErrClosed
	}
	if !d.connected {
		return ErrNotConnected
	}
	return nil
}

func (d *Drone) flying() error {
	if err := d.ready(); err != nil {
		return err
	}
	if !d.airborne {
		return ErrNotAirborne
	}
	if d.battery <= 0 {
		return ErrBatteryEmpty
	}
	return nil
}

func (d *Drone) touchDown() {
	d.airborne = false
	d.pos.Z = 0
}

func (d *Drone) level() int {
	return max(0, int(math.Floor(d.battery)))
}

// step waits out the configured per-call delay.
func (d *Drone) step(ctx context.Context) error {
	if d.cfg.StepDelay <= 0 {
		return nil
	}
	t := time.NewTimer(d.cfg.StepDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
