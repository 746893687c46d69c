package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tello-mission/internal/observability"
)

// writeConfig points every output directory into a temp dir.
func writeConfig(t *testing.T, extra string) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	cfg := fmt.Sprintf(`
logger:
  level: error
  format: json
drone:
  backend: tello
photos:
  dir: %[1]s/photos
  grid_dir: %[1]s/photos/grid
  orbital_dir: %[1]s/photos/orbital
report:
  dir: %[1]s/reports
%[2]s`, dir, extra)
	cfgPath = filepath.Join(dir, "tello.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPlanCommand_PrintsJSON(t *testing.T) {
	cfg, _ := writeConfig(t, "")
	out, err := runCLI(t, "--config", cfg, "plan", "grid", "--size", "3", "--spacing", "50", "--overlap", "0.5", "--height", "120")
	require.NoError(t, err)

	var plan struct {
		Pattern        string             `json:"pattern"`
		Params         map[string]float64 `json:"params"`
		ExpectedPhotos int                `json:"expected_photos"`
		Waypoints      []struct {
			Label string `json:"label"`
		} `json:"waypoints"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "grid", plan.Pattern)
	assert.Equal(t, 9, plan.ExpectedPhotos)
	assert.Equal(t, 25.0, plan.Params["effective_spacing_cm"])
	require.Len(t, plan.Waypoints, 9)
	assert.Equal(t, "grid[0,0]", plan.Waypoints[0].Label)
	assert.Equal(t, "grid[1,2]", plan.Waypoints[3].Label)
}

func TestPlanCommand_RejectsInvalidParameters(t *testing.T) {
	cfg, _ := writeConfig(t, "")
	_, err := runCLI(t, "--config", cfg, "plan", "grid", "--overlap", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestFly_SimulatedGrid(t *testing.T) {
	cfg, dir := writeConfig(t, "")
	out, err := runCLI(t, "--config", cfg, "--sim", "grid", "--size", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "mission grid completed: 4/4 waypoints, 4 photos (0 failed)")

	photos, err := os.ReadDir(filepath.Join(dir, "photos", "grid"))
	require.NoError(t, err)
	assert.Len(t, photos, 4)

	reports, err := os.ReadDir(filepath.Join(dir, "reports"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestFly_SimulatedFailureExitsWithError(t *testing.T) {
	cfg, _ := writeConfig(t, `
simulator:
  fail_move_at: [1]
`)
	out, err := runCLI(t, "--config", cfg, "--sim", "square", "--side", "80")
	require.Error(t, err)
	assert.Contains(t, out, "mission square failed: 1/4 waypoints")
	assert.Contains(t, err.Error(), "movement failure at waypoint 1")
}

func TestFly_SimulatedWithDashboardReturns(t *testing.T) {
	cfg, dir := writeConfig(t, `
telemetry:
  addr: 127.0.0.1:0
`)
	done := make(chan error, 1)
	var out string
	go func() {
		var err error
		out, err = runCLI(t, "--config", cfg, "--sim", "--telemetry", "square", "--side", "80")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("fly with the dashboard did not return")
	}
	assert.Contains(t, out, "mission square completed: 4/4 waypoints")

	reports, err := os.ReadDir(filepath.Join(dir, "reports"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestFly_WaypointFileWithCustomAction(t *testing.T) {
	cfg, dir := writeConfig(t, "")
	file := filepath.Join(dir, "route.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
  {"x": 100, "y": 0, "z": 80, "action": "log_battery"},
  {"x": 100, "y": 100, "z": 80, "heading": 90, "action": "capture_photo", "label": "corner"}
]`), 0o644))

	out, err := runCLI(t, "--config", cfg, "--sim", "--return-home", "waypoints", file)
	require.NoError(t, err)
	assert.Contains(t, out, "mission waypoints completed: 2/2 waypoints, 1 photos")
}
