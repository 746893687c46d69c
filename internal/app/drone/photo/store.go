// Package photo deposits captured images on disk and hands back handles
// that identify them in mission results.
package photo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle identifies one stored photo.
type Handle struct {
	ID         uuid.UUID `json:"id"`
	Path       string    `json:"path"`
	Label      string    `json:"label"`
	CapturedAt time.Time `json:"captured_at"`
	Size       int       `json:"size"`
}

// Store writes photos into a single directory. File names embed the label,
// a per-store sequence number and the capture time, e.g.
// grid[1,2]_4_1718000000.jpg becomes grid_1_2_4_1718000000.jpg.
type Store struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	seq     int
	handles []Handle
}

// NewStore creates dir if needed and returns a store writing into it.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("photo: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("photo: create %s: %w", dir, err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Save writes data as <label>_<seq>_<unix>.<ext> and records the handle.
func (s *Store) Save(label, ext string, data []byte) (Handle, error) {
	if len(data) == 0 {
		return Handle{}, fmt.Errorf("photo: empty image for %q", label)
	}
	if label == "" {
		label = "photo"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	base := strings.Trim(unsafeChars.ReplaceAllString(label, "_"), "_")
	name := fmt.Sprintf("%s_%d_%d.%s", base, s.seq, at.Unix(), ext)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("photo: write %s: %w", path, err)
	}
	s.seq++

	h := Handle{ID: uuid.New(), Path: path, Label: label, CapturedAt: at, Size: len(data)}
	s.handles = append(s.handles, h)
	return h, nil
}

// List returns every handle saved through this store, oldest first.
func (s *Store) List() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.handles)
}
