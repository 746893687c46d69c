// Package audit keeps a JSON record of each flown mission beside its
// photos.
package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"tello-mission/internal/app/drone/command"
	"tello-mission/internal/app/drone/mission"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is what gets written for one mission.
type Record struct {
	Plan   *mission.Plan   `json:"plan"`
	Result *command.Result `json:"result"`
}

type Writer struct {
	dir string
}

// NewWriter creates dir if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// stampLayout sorts lexically and keeps nanoseconds.
const stampLayout = "20060102T150405.000000000Z"

// maxAttempts bounds the numbered names tried when a report name is taken.
const maxAttempts = 1000

// Write stores the plan and its result as
// <dir>/<start time>_<pattern>.json and returns the path. An existing
// report is never overwritten; a -N suffix is added instead.
func (w *Writer) Write(plan *mission.Plan, res *command.Result) (string, error) {
	if plan == nil || res == nil {
		return "", fmt.Errorf("audit: plan and result are required")
	}
	data, err := json.MarshalIndent(Record{Plan: plan, Result: res}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("audit: encode: %w", err)
	}

	base := fmt.Sprintf("%s_%s", res.StartedAt.UTC().Format(stampLayout), res.Pattern)
	for i := 0; i < maxAttempts; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.json", base, i)
		}
		path := filepath.Join(w.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("audit: create %s: %w", path, err)
		}
		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return "", fmt.Errorf("audit: write %s: %w", path, werr)
		}
		return path, nil
	}
	return "", fmt.Errorf("audit: no free report name for %s", base)
}
