package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tello-mission/internal/app/drone/command"
	"tello-mission/internal/app/drone/mission"
	"tello-mission/internal/app/drone/sim"
)

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	plan, err := mission.Square(100, 80)
	require.NoError(t, err)
	drone, err := sim.Open(sim.Config{Battery: 100, FailMoveAt: []int{1}}, nil, nil)
	require.NoError(t, err)
	defer drone.Close()

	res, err := command.NewExecutor(nil).Execute(context.Background(), plan, drone)
	require.NoError(t, err)

	path, err := w.Write(plan, res)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, res.StartedAt.UTC().Format(stampLayout)+"_square.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back struct {
		Plan struct {
			Pattern   string           `json:"pattern"`
			Waypoints []map[string]any `json:"waypoints"`
		} `json:"plan"`
		Result struct {
			Completed        bool `json:"completed"`
			WaypointsReached int  `json:"waypoints_reached"`
			Failure          struct {
				Index int    `json:"index"`
				Kind  string `json:"kind"`
				Error string `json:"error"`
			} `json:"failure"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "square", back.Plan.Pattern)
	assert.Len(t, back.Plan.Waypoints, 4)
	assert.False(t, back.Result.Completed)
	assert.Equal(t, 1, back.Result.WaypointsReached)
	assert.Equal(t, 1, back.Result.Failure.Index)
	assert.Equal(t, "movement", back.Result.Failure.Kind)
	assert.Contains(t, back.Result.Failure.Error, "injected fault")
}

func TestWriter_RejectsMissingParts(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	_, err = w.Write(nil, &command.Result{})
	assert.Error(t, err)
}

func TestWriter_KeepsMissionsStartedTogether(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	plan, err := mission.Square(100, 80)
	require.NoError(t, err)
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	var paths []string
	for i := 0; i < 3; i++ {
		res := &command.Result{Pattern: mission.PatternSquare, StartedAt: started, WaypointsReached: i}
		path, err := w.Write(plan, res)
		require.NoError(t, err)
		paths = append(paths, filepath.Base(path))
	}
	assert.Equal(t, []string{
		"20260501T100000.000000000Z_square.json",
		"20260501T100000.000000000Z_square-1.json",
		"20260501T100000.000000000Z_square-2.json",
	}, paths)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	data, err := os.ReadFile(filepath.Join(dir, paths[2]))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"waypoints_reached": 2`)
}
