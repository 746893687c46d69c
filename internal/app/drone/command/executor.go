package command

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"tello-mission/internal/app/drone/mission"
)

// Option configures an Executor.
type Option func(*Executor)

// WithObserver adds an observer that receives every executor event.
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observers = append(e.observers, o) }
}

// WithActionHandler registers the handler for a custom waypoint action.
func WithActionHandler(action mission.Action, h ActionHandler) Option {
	return func(e *Executor) { e.handlers[action] = h }
}

// WithMinBattery refuses to take off below the given battery percentage.
func WithMinBattery(pct int) Option {
	return func(e *Executor) { e.minBattery = pct }
}

// WithCriticalBattery emergency-lands when the battery drops below pct
// between waypoints.
func WithCriticalBattery(pct int) Option {
	return func(e *Executor) { e.criticalBattery = pct }
}

// WithMaxPhotoFailures aborts the mission once more than n photo captures
// have failed. Zero keeps every photo failure non-fatal.
func WithMaxPhotoFailures(n int) Option {
	return func(e *Executor) { e.maxPhotoFailures = n }
}

// WithReturnHome flies back above the takeoff point before landing.
func WithReturnHome() Option {
	return func(e *Executor) { e.returnHome = true }
}

// Executor drives a Port through a mission plan. It holds no per-run state
// and may run several missions in turn, but never two on the same port at
// once.
type Executor struct {
	logger           *zap.Logger
	observers        []Observer
	handlers         map[mission.Action]ActionHandler
	minBattery       int
	criticalBattery  int
	maxPhotoFailures int
	returnHome       bool
	now              func() time.Time
}

func NewExecutor(logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		logger:   logger.Named("executor"),
		handlers: make(map[mission.Action]ActionHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute flies plan through port and always answers with a Result. The
// returned error is only non-nil for a malformed plan or missing handler,
// detected before any port call. Drone failures are reported through
// Result.Failure.
//
// Port calls are not interrupted by ctx; cancelling ctx is honoured between
// waypoints and lands the drone through the emergency path.
func (e *Executor) Execute(ctx context.Context, plan *mission.Plan, port Port) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if port == nil {
		return nil, &mission.ValidationError{Pattern: plan.Pattern(), Field: "port", Reason: "nil drone port"}
	}
	for i := 0; i < plan.Len(); i++ {
		wp := plan.At(i)
		if wp.Action.IsCustom() && e.handlers[wp.Action] == nil {
			return nil, &mission.ValidationError{
				Pattern: plan.Pattern(),
				Field:   fmt.Sprintf("waypoints[%d].action", i),
				Reason:  fmt.Sprintf("no handler registered for %q", wp.Action),
			}
		}
	}

	r := &run{
		Executor: e,
		plan:     plan,
		port:     port,
		rec:      newRecorder(plan.Pattern(), e.now()),
		state:    StateIdle,
		logger:   e.logger.With(zap.String("pattern", string(plan.Pattern())), zap.Int("waypoints", plan.Len())),
	}
	return r.fly(ctx), nil
}

// run is the state of one mission; the executor is its only owner.
type run struct {
	*Executor
	plan    *mission.Plan
	port    Port
	rec     *recorder
	state   State
	logger  *zap.Logger
	pos     r3.Vector
	heading float64

	photoFailures int
}

func (r *run) fly(ctx context.Context) *Result {
	opCtx := context.WithoutCancel(ctx)

	r.transition(StateConnecting, -1, "connecting to drone")
	if err := r.port.Connect(opCtx); err != nil {
		return r.finish(&Failure{Index: -1, Kind: KindConnection, State: StateConnecting, Err: err})
	}

	if r.minBattery > 0 {
		level, err := r.port.Battery()
		switch {
		case err != nil:
			r.logger.Warn("Battery level unavailable, skipping pre-flight check", zap.Error(err))
		case level < r.minBattery:
			return r.finish(&Failure{
				Index: -1, Kind: KindLowBattery, State: StateConnecting,
				Err: fmt.Errorf("%w: %d%% < %d%% required for takeoff", ErrBatteryLow, level, r.minBattery),
			})
		default:
			r.logger.Info("Pre-flight battery check passed", zap.Int("battery", level))
		}
	}

	r.transition(StateTakeoff, -1, "taking off")
	if err := r.port.Takeoff(opCtx); err != nil {
		if lerr := r.port.Land(opCtx); lerr != nil {
			r.logger.Warn("Cleanup landing after failed takeoff also failed", zap.Error(lerr))
		}
		return r.finish(&Failure{Index: -1, Kind: KindTakeoff, State: StateTakeoff, Err: err})
	}

	r.transition(StateFlying, -1, "mission started")
	for i := 0; i < r.plan.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return r.emergency(opCtx, &Failure{Index: i, Kind: KindAborted, State: StateFlying, Err: err})
		}
		if f := r.checkBattery(i); f != nil {
			return r.emergency(opCtx, f)
		}
		if f := r.visit(opCtx, i); f != nil {
			return r.emergency(opCtx, f)
		}
	}

	if r.returnHome {
		if f := r.goHome(opCtx); f != nil {
			return r.emergency(opCtx, f)
		}
	}

	r.transition(StateLanding, r.plan.Len(), "landing")
	if err := r.port.Land(opCtx); err != nil {
		return r.emergency(opCtx, &Failure{Index: r.plan.Len(), Kind: KindLanding, State: StateLanding, Err: err})
	}
	return r.finish(nil)
}

// visit flies to waypoint i, turns to its heading and performs its action.
func (r *run) visit(ctx context.Context, i int) *Failure {
	wp := r.plan.At(i)
	start := r.now()
	log := r.logger.With(zap.Int("index", i), zap.String("label", wp.Label))

	missed := func(what string, err error) *Failure {
		r.rec.record(WaypointOutcome{Index: i, Label: wp.Label, Elapsed: r.now().Sub(start)})
		return &Failure{Index: i, Kind: KindMovement, State: StateFlying, Err: fmt.Errorf("%s %s: %w", what, wp.Label, err)}
	}

	if d := wp.Position.Sub(r.pos); d.Norm() > 0 {
		log.Debug("Moving", zap.Float64("dx", d.X), zap.Float64("dy", d.Y), zap.Float64("dz", d.Z))
		if err := r.port.MoveTo(ctx, d.X, d.Y, d.Z); err != nil {
			return missed("move to", err)
		}
	}
	r.pos = wp.Position

	if d := mission.HeadingDelta(r.heading, wp.Heading); d != 0 {
		log.Debug("Rotating", zap.Float64("delta", d), zap.Float64("heading", wp.Heading))
		if err := r.port.Rotate(ctx, d); err != nil {
			return missed("rotate at", err)
		}
	}
	r.heading = wp.Heading

	outcome := WaypointOutcome{Index: i, Label: wp.Label, Reached: true}
	switch {
	case wp.Action == mission.ActionCapturePhoto:
		h, err := r.port.CapturePhoto(WithWaypointLabel(ctx, wp.Label))
		if err != nil {
			r.photoFailures++
			outcome.PhotoErr = err
			log.Warn("Photo capture failed, continuing", zap.Error(err), zap.Int("photo_failures", r.photoFailures))
			r.emit(Event{State: r.state, Index: i, Label: wp.Label, Kind: KindPhotoCapture, Message: err.Error()})
		} else {
			outcome.Photo = &h
			log.Info("Photo captured", zap.String("path", h.Path))
		}
	case wp.Action.IsCustom():
		if err := r.handlers[wp.Action](WithWaypointLabel(ctx, wp.Label), r.port, i, wp.Label); err != nil {
			outcome.ActionErr = err
			log.Warn("Custom action failed, continuing", zap.String("action", string(wp.Action)), zap.Error(err))
			r.emit(Event{State: r.state, Index: i, Label: wp.Label, Kind: KindAction, Message: err.Error()})
		}
	}
	outcome.Elapsed = r.now().Sub(start)
	r.rec.record(outcome)

	log.Info("Waypoint reached", zap.Duration("elapsed", outcome.Elapsed))
	r.emit(Event{State: r.state, Index: i, Label: wp.Label, Message: "waypoint reached"})

	if r.maxPhotoFailures > 0 && r.photoFailures > r.maxPhotoFailures {
		return &Failure{
			Index: i, Kind: KindPhotoCapture, State: StateFlying,
			Err: fmt.Errorf("%w: %d > %d", ErrTooManyPhotoFailures, r.photoFailures, r.maxPhotoFailures),
		}
	}
	return nil
}

func (r *run) checkBattery(i int) *Failure {
	if r.criticalBattery <= 0 {
		return nil
	}
	level, err := r.port.Battery()
	if err != nil {
		r.logger.Debug("Battery level unavailable", zap.Error(err))
		return nil
	}
	if level < r.criticalBattery {
		return &Failure{
			Index: i, Kind: KindLowBattery, State: StateFlying,
			Err: fmt.Errorf("%w: %d%% < %d%%", ErrBatteryLow, level, r.criticalBattery),
		}
	}
	return nil
}

// goHome returns above the takeoff point at the current height.
func (r *run) goHome(ctx context.Context) *Failure {
	home := r3.Vector{X: 0, Y: 0, Z: r.pos.Z}
	d := home.Sub(r.pos)
	if d.Norm() == 0 {
		return nil
	}
	r.logger.Info("Returning home", zap.Float64("distance", d.Norm()))
	if err := r.port.MoveTo(ctx, d.X, d.Y, d.Z); err != nil {
		return &Failure{Index: r.plan.Len(), Kind: KindMovement, State: StateFlying, Err: fmt.Errorf("return home: %w", err)}
	}
	r.pos = home
	return nil
}

func (r *run) emergency(ctx context.Context, f *Failure) *Result {
	r.logger.Error("Mission failed, emergency landing",
		zap.String("kind", string(f.Kind)), zap.Int("index", f.Index), zap.Error(f.Err))
	r.transition(StateEmergencyLanding, f.Index, "emergency landing: "+string(f.Kind))
	if err := r.port.EmergencyLand(ctx); err != nil {
		f.EmergencyErr = err
		r.logger.Error("Emergency landing failed", zap.Error(err))
	}
	return r.finish(f)
}

// finish moves to the terminal state and snapshots the report.
func (r *run) finish(f *Failure) *Result {
	if f == nil {
		r.transition(StateDone, r.plan.Len(), "mission completed")
	} else {
		r.state = StateFailed
		r.emit(Event{State: StateFailed, Index: f.Index, Kind: f.Worst(), Message: f.Error()})
	}
	res := r.rec.snapshot(r.state, f, r.now())
	r.logger.Info("Mission finished",
		zap.Bool("completed", res.Completed),
		zap.Int("reached", res.WaypointsReached),
		zap.Int("photos", len(res.Photos)),
		zap.Duration("duration", res.Duration))
	return res
}

func (r *run) transition(s State, index int, msg string) {
	r.logger.Info("State transition", zap.String("from", string(r.state)), zap.String("to", string(s)))
	r.state = s
	r.emit(Event{State: s, Index: index, Message: msg})
}

func (r *run) emit(ev Event) {
	if len(r.observers) == 0 {
		return
	}
	ev.Time = r.now()
	ev.Reached = r.rec.reached
	ev.Total = r.plan.Len()
	for _, o := range r.observers {
		o.OnEvent(ev)
	}
}
