package tello

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	dji "gobot.io/x/gobot/platforms/dji/tello"

	"tello-mission/internal/app/drone/command"
	"tello-mission/internal/app/drone/mission"
	"tello-mission/internal/app/drone/photo"
)

var (
	ErrNotConnected     = errors.New("tello: not connected")
	ErrNoFlightData     = errors.New("tello: no flight data received yet")
	ErrNoFrame          = errors.New("tello: no complete keyframe received yet")
	ErrPhotoUnavailable = errors.New("tello: no photo store configured")
)

const (
	takeoffSettle = 5 * time.Second
	landSettle    = 3 * time.Second
	batteryPoll   = 2 * time.Second
)

// Config calibrates the port. CmPerSecond and DegPerSecond are the speeds
// the drone reaches at StickSpeed; a move is timed from them.
type Config struct {
	StickSpeed      int
	CmPerSecond     float64
	DegPerSecond    float64
	CommandInterval time.Duration
	SettleTime      time.Duration
	Timeout         time.Duration
	LowBatteryWarn  int
}

// Port drives a Tello through Driver and implements command.Port.
type Port struct {
	drv     Driver
	cfg     Config
	photos  *photo.Store
	logger  *zap.Logger
	limiter *rate.Limiter
	sleep   func(context.Context, time.Duration) error
	poll    time.Duration

	mu        sync.Mutex
	connected bool
	battery   int
	height    int
	video     keyframer
	yaw       float64

	ready  chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ command.Port = (*Port)(nil)

// NewPort wraps drv. photos may be nil, in which case CapturePhoto fails.
func NewPort(drv Driver, cfg Config, photos *photo.Store, logger *zap.Logger) *Port {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.CommandInterval > 0 {
		limit = rate.Every(cfg.CommandInterval)
	}
	return &Port{
		drv:     drv,
		cfg:     cfg,
		photos:  photos,
		logger:  logger.Named("tello"),
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepCtx,
		poll:    batteryPoll,
		battery: -1,
		height:  -1,
		ready:   make(chan struct{}),
	}
}

// Connect starts the driver and waits for the drone to answer.
func (p *Port) Connect(ctx context.Context) error {
	if p.IsConnected() {
		return nil
	}

	handlers := map[string]func(interface{}){
		connectedEvent:  p.onConnected,
		flightDataEvent: p.onFlightData,
		videoFrameEvent: p.onVideoFrame,
	}
	for name, h := range handlers {
		if err := p.drv.On(name, h); err != nil {
			return fmt.Errorf("subscribe to %s: %w", name, err)
		}
	}
	if err := p.drv.Start(); err != nil {
		return fmt.Errorf("start driver: %w", err)
	}

	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()
	select {
	case <-p.ready:
	case <-timer.C:
		p.haltQuietly()
		return fmt.Errorf("%w: no answer within %s", ErrNotConnected, p.cfg.Timeout)
	case <-ctx.Done():
		p.haltQuietly()
		return ctx.Err()
	}

	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.watch(watchCtx)

	p.logger.Info("Connected to drone")
	return nil
}

func (p *Port) onConnected(interface{}) {
	if err := p.drv.StartVideo(); err != nil {
		p.logger.Error("Couldn't start video", zap.Error(err))
	}
	p.once.Do(func() { close(p.ready) })
}

func (p *Port) onFlightData(data interface{}) {
	fd, ok := data.(*dji.FlightData)
	if !ok {
		return
	}
	p.mu.Lock()
	p.battery = int(fd.BatteryPercentage)
	p.height = int(fd.Height)
	p.mu.Unlock()
}

func (p *Port) onVideoFrame(data interface{}) {
	pkt, ok := data.([]byte)
	if !ok || len(pkt) == 0 {
		return
	}
	p.mu.Lock()
	p.video.write(pkt)
	p.mu.Unlock()
}

// watch logs a warning each time the battery drops to a new low below
// the configured warning level, and keeps the video stream alive.
func (p *Port) watch(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	lastWarned := 101
	for {
		select {
		case <-ticker.C:
			level, err := p.Battery()
			if err == nil && level < p.cfg.LowBatteryWarn && level < lastWarned {
				lastWarned = level
				p.logger.Warn("Low battery", zap.Int("battery", level), zap.Int("warn_below", p.cfg.LowBatteryWarn))
			}
			if err := p.drv.StartVideo(); err != nil {
				p.logger.Debug("Video keepalive failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Port) Takeoff(ctx context.Context) error {
	if err := p.command(ctx, "takeoff", p.drv.TakeOff); err != nil {
		return err
	}
	return p.sleep(ctx, takeoffSettle)
}

func (p *Port) Land(ctx context.Context) error {
	if err := p.command(ctx, "land", p.drv.Land); err != nil {
		return err
	}
	return p.sleep(ctx, landSettle)
}

// EmergencyLand stops all motion and lands at once, skipping command pacing.
func (p *Port) EmergencyLand(context.Context) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	p.drv.Hover()
	if err := p.drv.Land(); err != nil {
		return fmt.Errorf("emergency land: %w", err)
	}
	return nil
}

// MoveTo flies the mission-frame offset one body axis at a time.
func (p *Port) MoveTo(ctx context.Context, dx, dy, dz float64) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	p.mu.Lock()
	yaw := p.yaw
	p.mu.Unlock()

	fwd, right := toBody(dx, dy, yaw)
	axes := []struct {
		dist     float64
		pos, neg func(int) error
		name     string
	}{
		{fwd, p.drv.Forward, p.drv.Backward, "forward"},
		{right, p.drv.Right, p.drv.Left, "right"},
		{dz, p.drv.Up, p.drv.Down, "up"},
	}
	for _, a := range axes {
		if math.Abs(a.dist) < 1 {
			continue
		}
		fn := a.pos
		if a.dist < 0 {
			fn = a.neg
		}
		d := time.Duration(math.Abs(a.dist) / p.cfg.CmPerSecond * float64(time.Second))
		if err := p.stick(ctx, fn, d); err != nil {
			return fmt.Errorf("%s %.0fcm: %w", a.name, a.dist, err)
		}
	}
	return nil
}

// Rotate turns by deltaDeg, clockwise when positive.
func (p *Port) Rotate(ctx context.Context, deltaDeg float64) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	if deltaDeg == 0 {
		return nil
	}
	fn := p.drv.Clockwise
	if deltaDeg < 0 {
		fn = p.drv.CounterClockwise
	}
	d := time.Duration(math.Abs(deltaDeg) / p.cfg.DegPerSecond * float64(time.Second))
	if err := p.stick(ctx, fn, d); err != nil {
		return fmt.Errorf("rotate %.0f°: %w", deltaDeg, err)
	}
	p.mu.Lock()
	p.yaw = mission.NormalizeHeading(p.yaw + deltaDeg)
	p.mu.Unlock()
	return nil
}

// stick holds one stick input for d, then hovers and lets the drone settle.
func (p *Port) stick(ctx context.Context, fn func(int) error, d time.Duration) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := fn(p.cfg.StickSpeed); err != nil {
		p.drv.Hover()
		return err
	}
	err := p.sleep(ctx, d)
	p.drv.Hover()
	if err != nil {
		return err
	}
	return p.sleep(ctx, p.cfg.SettleTime)
}

// CapturePhoto stores the most recent complete H.264 keyframe from the
// video stream.
func (p *Port) CapturePhoto(ctx context.Context) (photo.Handle, error) {
	if !p.IsConnected() {
		return photo.Handle{}, ErrNotConnected
	}
	if p.photos == nil {
		return photo.Handle{}, ErrPhotoUnavailable
	}
	p.mu.Lock()
	frame := p.video.keyframe()
	p.mu.Unlock()
	if len(frame) == 0 {
		return photo.Handle{}, ErrNoFrame
	}
	return p.photos.Save(command.WaypointLabel(ctx), "h264", frame)
}

func (p *Port) Battery() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return 0, ErrNotConnected
	}
	if p.battery < 0 {
		return 0, ErrNoFlightData
	}
	return p.battery, nil
}

// Height is the last reported height in decimetres, or -1 when unknown.
func (p *Port) Height() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

func (p *Port) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Close stops the battery watcher and halts the driver.
func (p *Port) Close() error {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
		p.cancel = nil
	}
	p.mu.Lock()
	was := p.connected
	p.connected = false
	p.mu.Unlock()
	if !was {
		return nil
	}
	if err := p.drv.Halt(); err != nil {
		return fmt.Errorf("halt driver: %w", err)
	}
	return nil
}

func (p *Port) command(ctx context.Context, name string, fn func() error) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug("Command sent", zap.String("command", name))
	return nil
}

func (p *Port) haltQuietly() {
	if err := p.drv.Halt(); err != nil {
		p.logger.Debug("Halt after failed connect", zap.Error(err))
	}
}

// toBody rotates a mission-frame offset into the drone's body frame given
// its yaw, clockwise from the takeoff heading.
func toBody(dx, dy, yawDeg float64) (forward, right float64) {
	rad := yawDeg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return dx*cos + dy*sin, -dx*sin + dy*cos
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
