package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceMovesFileToDestination(t *testing.T) {
	t.Parallel()

	stagingDir := t.TempDir()
	mountDir := t.TempDir()
	l := NewLocalStore(mountDir)

	stagingPath := filepath.Join(stagingDir, "payload")
	require.NoError(t, os.WriteFile(stagingPath, []byte("content"), 0644))

	dest, err := l.Place(context.Background(), stagingPath, "videos/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(mountDir, "videos", "clip.mp4"), dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = os.Stat(stagingPath)
	assert.True(t, os.IsNotExist(err), "staging payload should be gone after a same-device rename")
}

func TestPlaceCreatesNestedDestinationDirectories(t *testing.T) {
	t.Parallel()

	stagingDir := t.TempDir()
	mountDir := t.TempDir()
	l := NewLocalStore(mountDir)

	stagingPath := filepath.Join(stagingDir, "payload")
	require.NoError(t, os.WriteFile(stagingPath, []byte("x"), 0644))

	_, err := l.Place(context.Background(), stagingPath, "a/b/c/deep.bin")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(mountDir, "a", "b", "c", "deep.bin"))
	assert.NoError(t, err)
}

func TestExistsReflectsDiskState(t *testing.T) {
	t.Parallel()

	mountDir := t.TempDir()
	l := NewLocalStore(mountDir)

	assert.False(t, l.Exists(context.Background(), "report.pdf"))

	require.NoError(t, os.WriteFile(filepath.Join(mountDir, "report.pdf"), []byte("x"), 0644))
	assert.True(t, l.Exists(context.Background(), "report.pdf"))
}

func TestEnsureDirCreatesDestinationDirectory(t *testing.T) {
	t.Parallel()

	mountDir := t.TempDir()
	l := NewLocalStore(mountDir)

	require.NoError(t, l.EnsureDir(context.Background(), "nested/dir/file.bin"))

	info, err := os.Stat(filepath.Join(mountDir, "nested", "dir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
