package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, BackendSim, cfg.Drone.Backend)
	assert.Equal(t, "8888", cfg.Drone.UDPPort)
	assert.Equal(t, 100*time.Millisecond, cfg.Drone.CommandInterval)
	assert.Equal(t, 10*time.Second, cfg.Drone.Timeout)
	assert.Equal(t, 100, cfg.Simulator.Battery)
	assert.Empty(t, cfg.Simulator.FailMoveAt)
	assert.Equal(t, 30, cfg.Mission.MinBattery)
	assert.Equal(t, 0, cfg.Mission.MaxPhotoFailures)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Drone.Backend = "bebop" }, "backend must be"},
		{"tello stick speed", func(c *Config) {
			c.Drone.Backend = BackendTello
			c.Drone.StickSpeed = 0
		}, "stick_speed"},
		{"tello calibration", func(c *Config) {
			c.Drone.Backend = BackendTello
			c.Drone.CmPerSecond = 0
		}, "cm_per_second"},
		{"tello timeout", func(c *Config) {
			c.Drone.Backend = BackendTello
			c.Drone.Timeout = 0
		}, "timeout"},
		{"sim battery", func(c *Config) { c.Simulator.Battery = 120 }, "battery must be between"},
		{"negative drain", func(c *Config) { c.Simulator.DrainPerMetre = -1 }, "drain rates"},
		{"min battery", func(c *Config) { c.Mission.MinBattery = -5 }, "min_battery"},
		{"photo failures", func(c *Config) { c.Mission.MaxPhotoFailures = -1 }, "max_photo_failures"},
		{"max leg", func(c *Config) { c.Mission.MaxLeg = -1 }, "max_leg"},
		{"photos dir", func(c *Config) { c.Photos.Dir = "" }, "photos.dir"},
		{"telemetry addr", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Addr = ""
		}, "telemetry.addr"},
		{"report dir", func(c *Config) { c.Report.Dir = "" }, "report.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("sim ignores tello calibration", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Drone.StickSpeed = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestNewConfigFromViper(t *testing.T) {
	yaml := []byte(`
drone:
  backend: tello
  stick_speed: 40
  command_interval: 250ms
simulator:
  fail_move_at: [2, 5]
mission:
  return_home: true
  max_leg: 400
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, BackendTello, cfg.Drone.Backend)
	assert.Equal(t, 40, cfg.Drone.StickSpeed)
	assert.Equal(t, 250*time.Millisecond, cfg.Drone.CommandInterval)
	assert.Equal(t, []int{2, 5}, cfg.Simulator.FailMoveAt)
	assert.True(t, cfg.Mission.ReturnHome)
	assert.Equal(t, 400.0, cfg.Mission.MaxLeg)
	// untouched keys keep their defaults
	assert.Equal(t, 30.0, cfg.Drone.CmPerSecond)
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("drone.backend", "mavic")

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestPhotosDirFor(t *testing.T) {
	p := PhotosConfig{Dir: "photos", GridDir: "photos/grid", OrbitalDir: "photos/orbital"}
	assert.Equal(t, "photos/grid", p.DirFor("grid"))
	assert.Equal(t, "photos/orbital", p.DirFor("orbital"))
	assert.Equal(t, "photos", p.DirFor("square"))

	p.GridDir = ""
	assert.Equal(t, "photos", p.DirFor("grid"))
}
