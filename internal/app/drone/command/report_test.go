package command

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tello-mission/internal/app/drone/mission"
	"tello-mission/internal/app/drone/photo"
)

func TestRecorder_SnapshotIsDetached(t *testing.T) {
	start := time.Unix(1000, 0)
	rec := newRecorder(mission.PatternGrid, start)
	rec.record(WaypointOutcome{Index: 0, Label: "grid[0,0]", Reached: true, Photo: &photo.Handle{Path: "a.jpg"}})
	rec.record(WaypointOutcome{Index: 1, Label: "grid[0,1]", Reached: true, PhotoErr: errBoom})

	res := rec.snapshot(StateDone, nil, start.Add(3*time.Second))
	assert.True(t, res.Completed)
	assert.Equal(t, 2, res.WaypointsReached)
	assert.Equal(t, 3*time.Second, res.Duration)
	require.Len(t, res.Photos, 1)

	// Later recording or mutation of the snapshot must not leak across.
	res.Outcomes[0].Photo.Path = "changed.jpg"
	rec.record(WaypointOutcome{Index: 2, Label: "grid[0,2]", Reached: true})
	assert.Equal(t, "a.jpg", rec.outcomes[0].Photo.Path)
	assert.Len(t, res.Outcomes, 2)
	assert.Equal(t, 2, res.WaypointsReached)
}

func TestRecorder_FailedSnapshot(t *testing.T) {
	rec := newRecorder(mission.PatternSquare, time.Now())
	rec.record(WaypointOutcome{Index: 0, Label: "square-corner-1", Reached: true})
	rec.record(WaypointOutcome{Index: 1, Label: "square-corner-2"})

	f := &Failure{Index: 1, Kind: KindMovement, State: StateFlying, Err: errBoom}
	res := rec.snapshot(StateFailed, f, time.Now())

	assert.False(t, res.Completed)
	assert.Equal(t, 1, res.WaypointsReached)
	require.NotNil(t, res.Failure)
	assert.NotSame(t, f, res.Failure)
	assert.Equal(t, StateFailed, res.FinalState)
}

func TestResult_JSON(t *testing.T) {
	res := &Result{
		Pattern:          mission.PatternSquare,
		WaypointsReached: 1,
		Failure:          &Failure{Index: 1, Kind: KindMovement, State: StateFlying, Err: errBoom},
		FinalState:       StateFailed,
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"waypoints_reached":1`)
	assert.Contains(t, s, `"kind":"movement"`)
	assert.Contains(t, s, `"error":"boom"`)
	assert.Contains(t, s, `"final_state":"failed"`)
}

func TestWaypointOutcome_JSONKeepsErrors(t *testing.T) {
	res := &Result{Outcomes: []WaypointOutcome{
		{Index: 0, Label: "grid[0,0]", Reached: true, PhotoErr: errBoom},
		{Index: 1, Label: "check", Reached: true, ActionErr: errors.New("handler failed")},
		{Index: 2, Label: "grid[0,1]", Reached: true, Photo: &photo.Handle{Path: "b.jpg"}},
	}}
	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded struct {
		Outcomes []map[string]any `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Outcomes, 3)
	assert.Equal(t, "boom", decoded.Outcomes[0]["photo_error"])
	assert.Equal(t, true, decoded.Outcomes[0]["reached"])
	assert.Equal(t, "handler failed", decoded.Outcomes[1]["action_error"])
	assert.NotContains(t, decoded.Outcomes[2], "photo_error")
	assert.NotContains(t, decoded.Outcomes[2], "action_error")
	assert.Equal(t, "grid[0,1]", decoded.Outcomes[2]["label"])
}

func TestFailure_Error(t *testing.T) {
	f := &Failure{Index: 3, Kind: KindMovement, State: StateFlying, Err: errBoom}
	assert.Equal(t, "movement failure at waypoint 3 during flying: boom", f.Error())
	assert.Equal(t, KindMovement, f.Worst())
}
