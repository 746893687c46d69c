package photo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "photos", "grid")
	store, err := NewStore(dir)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Unix(1718000000, 0) }

	h, err := store.Save("grid[1,2]", "jpg", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, h.ID)
	assert.Equal(t, filepath.Join(dir, "grid_1_2_0_1718000000.jpg"), h.Path)
	assert.Equal(t, "grid[1,2]", h.Label)
	assert.Equal(t, 3, h.Size)

	data, err := os.ReadFile(h.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

	h2, err := store.Save("", "h264", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photo_1_1718000000.h264"), h2.Path)

	assert.Equal(t, []Handle{h, h2}, store.List())
}

func TestStore_RejectsEmptyImage(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("x", "jpg", nil)
	assert.Error(t, err)
	assert.Empty(t, store.List())
}

func TestNewStore_EmptyDir(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}
