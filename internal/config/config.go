package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. TELLO_DRONE_BACKEND.
const EnvPrefix = "TELLO"

// Backends understood by drone.backend.
const (
	BackendSim   = "sim"
	BackendTello = "tello"
)

// Config holds the whole application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Drone     DroneConfig     `mapstructure:"drone" yaml:"drone"`
	Simulator SimulatorConfig `mapstructure:"simulator" yaml:"simulator"`
	Photos    PhotosConfig    `mapstructure:"photos" yaml:"photos"`
	Mission   MissionConfig   `mapstructure:"mission" yaml:"mission"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Report    ReportConfig    `mapstructure:"report" yaml:"report"`
}

type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the terminal colour for each log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// DroneConfig selects the backend and calibrates the real Tello. The stick
// API of the driver takes speeds, not distances, so moves are timed from
// CmPerSecond and DegPerSecond measured at StickSpeed.
type DroneConfig struct {
	Backend         string        `mapstructure:"backend" yaml:"backend"`
	UDPPort         string        `mapstructure:"udp_port" yaml:"udp_port"`
	StickSpeed      int           `mapstructure:"stick_speed" yaml:"stick_speed"`
	CmPerSecond     float64       `mapstructure:"cm_per_second" yaml:"cm_per_second"`
	DegPerSecond    float64       `mapstructure:"deg_per_second" yaml:"deg_per_second"`
	CommandInterval time.Duration `mapstructure:"command_interval" yaml:"command_interval"`
	SettleTime      time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	LowBatteryWarn  int           `mapstructure:"low_battery_warn" yaml:"low_battery_warn"`
}

type SimulatorConfig struct {
	StepDelay        time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	Battery          int           `mapstructure:"battery" yaml:"battery"`
	DrainPerMetre    float64       `mapstructure:"drain_per_metre" yaml:"drain_per_metre"`
	DrainPerRotation float64       `mapstructure:"drain_per_rotation" yaml:"drain_per_rotation"`
	FailConnect      bool          `mapstructure:"fail_connect" yaml:"fail_connect"`
	FailTakeoff      bool          `mapstructure:"fail_takeoff" yaml:"fail_takeoff"`
	FailLand         bool          `mapstructure:"fail_land" yaml:"fail_land"`
	FailMoveAt       []int         `mapstructure:"fail_move_at" yaml:"fail_move_at"`
	FailPhotoAt      []int         `mapstructure:"fail_photo_at" yaml:"fail_photo_at"`
}

// PhotosConfig routes captures by pattern. Grid and orbital missions get
// their own directories; everything else lands in Dir.
type PhotosConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	GridDir    string `mapstructure:"grid_dir" yaml:"grid_dir"`
	OrbitalDir string `mapstructure:"orbital_dir" yaml:"orbital_dir"`
}

// DirFor returns the photo directory for a mission pattern.
func (p PhotosConfig) DirFor(pattern string) string {
	switch {
	case pattern == "grid" && p.GridDir != "":
		return p.GridDir
	case pattern == "orbital" && p.OrbitalDir != "":
		return p.OrbitalDir
	}
	return p.Dir
}

type MissionConfig struct {
	MinBattery       int     `mapstructure:"min_battery" yaml:"min_battery"`
	CriticalBattery  int     `mapstructure:"critical_battery" yaml:"critical_battery"`
	MaxPhotoFailures int     `mapstructure:"max_photo_failures" yaml:"max_photo_failures"`
	ReturnHome       bool    `mapstructure:"return_home" yaml:"return_home"`
	MaxLeg           float64 `mapstructure:"max_leg" yaml:"max_leg"`
}

type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

type ReportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// NewDefaultConfig returns the configuration produced by SetDefaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tello")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Drone --
	v.SetDefault("drone.backend", BackendSim)
	v.SetDefault("drone.udp_port", "8888")
	v.SetDefault("drone.stick_speed", 30)
	v.SetDefault("drone.cm_per_second", 30.0)
	v.SetDefault("drone.deg_per_second", 45.0)
	v.SetDefault("drone.command_interval", "100ms")
	v.SetDefault("drone.settle_time", "500ms")
	v.SetDefault("drone.timeout", "10s")
	v.SetDefault("drone.low_battery_warn", 20)

	// -- Simulator --
	v.SetDefault("simulator.step_delay", "0s")
	v.SetDefault("simulator.battery", 100)
	v.SetDefault("simulator.drain_per_metre", 0.5)
	v.SetDefault("simulator.drain_per_rotation", 0.1)
	v.SetDefault("simulator.fail_connect", false)
	v.SetDefault("simulator.fail_takeoff", false)
	v.SetDefault("simulator.fail_land", false)
	v.SetDefault("simulator.fail_move_at", []int{})
	v.SetDefault("simulator.fail_photo_at", []int{})

	// -- Photos --
	v.SetDefault("photos.dir", "photos")
	v.SetDefault("photos.grid_dir", "photos/grid")
	v.SetDefault("photos.orbital_dir", "photos/orbital")

	// -- Mission --
	v.SetDefault("mission.min_battery", 30)
	v.SetDefault("mission.critical_battery", 15)
	v.SetDefault("mission.max_photo_failures", 0)
	v.SetDefault("mission.return_home", false)
	v.SetDefault("mission.max_leg", 0.0)

	// -- Telemetry --
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.addr", "127.0.0.1:8090")

	// -- Report --
	v.SetDefault("report.dir", "reports")
}

// NewConfigFromViper decodes and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Drone.Validate(); err != nil {
		return fmt.Errorf("drone: %w", err)
	}
	if err := c.Simulator.Validate(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	if err := c.Mission.Validate(); err != nil {
		return fmt.Errorf("mission: %w", err)
	}
	if c.Photos.Dir == "" {
		return fmt.Errorf("photos.dir is required")
	}
	if c.Telemetry.Enabled && c.Telemetry.Addr == "" {
		return fmt.Errorf("telemetry.addr is required when telemetry is enabled")
	}
	if c.Report.Dir == "" {
		return fmt.Errorf("report.dir is required")
	}
	return nil
}

func (d *DroneConfig) Validate() error {
	switch d.Backend {
	case BackendSim, BackendTello:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendSim, BackendTello, d.Backend)
	}
	if d.Backend == BackendSim {
		return nil
	}
	if d.UDPPort == "" {
		return fmt.Errorf("udp_port is required")
	}
	if d.StickSpeed < 1 || d.StickSpeed > 100 {
		return fmt.Errorf("stick_speed must be between 1 and 100")
	}
	if d.CmPerSecond <= 0 || d.DegPerSecond <= 0 {
		return fmt.Errorf("cm_per_second and deg_per_second must be positive")
	}
	if d.CommandInterval < 0 || d.SettleTime < 0 {
		return fmt.Errorf("command_interval and settle_time must not be negative")
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	return nil
}

func (s *SimulatorConfig) Validate() error {
	if s.Battery < 0 || s.Battery > 100 {
		return fmt.Errorf("battery must be between 0 and 100")
	}
	if s.DrainPerMetre < 0 || s.DrainPerRotation < 0 {
		return fmt.Errorf("drain rates must not be negative")
	}
	if s.StepDelay < 0 {
		return fmt.Errorf("step_delay must not be negative")
	}
	return nil
}

func (m *MissionConfig) Validate() error {
	if m.MinBattery < 0 || m.MinBattery > 100 {
		return fmt.Errorf("min_battery must be between 0 and 100")
	}
	if m.CriticalBattery < 0 || m.CriticalBattery > 100 {
		return fmt.Errorf("critical_battery must be between 0 and 100")
	}
	if m.MaxPhotoFailures < 0 {
		return fmt.Errorf("max_photo_failures must not be negative")
	}
	if m.MaxLeg < 0 {
		return fmt.Errorf("max_leg must not be negative")
	}
	return nil
}
