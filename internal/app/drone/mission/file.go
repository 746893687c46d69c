package mission

import (
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileWaypoint is the on-disk shape of one entry in a waypoint file:
//
//	[{"x": 0, "y": 0, "z": 100, "heading": 90, "action": "capture_photo", "label": "start"}]
type fileWaypoint struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Heading float64 `json:"heading"`
	Action  Action  `json:"action"`
	Label   string  `json:"label"`
}

// ParseWaypoints decodes a JSON waypoint list and plans it.
func ParseWaypoints(data []byte, opts ...Option) (*Plan, error) {
	var entries []fileWaypoint
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode waypoints: %w", err)
	}
	list := make([]Waypoint, len(entries))
	for i, e := range entries {
		list[i] = Waypoint{
			Position: r3.Vector{X: e.X, Y: e.Y, Z: e.Z},
			Heading:  e.Heading,
			Action:   e.Action,
			Label:    e.Label,
		}
	}
	return FromWaypoints(list, opts...)
}

// LoadWaypoints reads a waypoint file from disk and plans it.
func LoadWaypoints(path string, opts ...Option) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read waypoint file: %w", err)
	}
	plan, err := ParseWaypoints(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}
