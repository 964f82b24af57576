package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusflow/internal/domain/entities"
	"tusflow/internal/infrastructure/pathing"
	"tusflow/pkg/constants"
)

func newTestRegistry(t *testing.T) (*Registry, *pathing.Service, string) {
	t.Helper()
	mount := t.TempDir()
	paths := pathing.New(mount, `[^A-Za-z0-9._-]`)
	return New(paths), paths, mount
}

func TestFinalFilenameDefaultUsesStagingID(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRegistry(t)

	name, err := r.FinalFilename(entities.UploadMetadata{}, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", name)
}

func TestFinalFilenameOriginalNoCollision(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRegistry(t)

	meta := entities.UploadMetadata{
		Filename:     "my video.mp4",
		WithFilename: constants.WithFilenameOriginal,
		OnDuplicate:  constants.OnDuplicatePrevent,
	}
	name, err := r.FinalFilename(meta, "staging-id")
	require.NoError(t, err)
	assert.Equal(t, "my_video.mp4", name)
}

func TestFinalFilenameOriginalWithNumberOnCollision(t *testing.T) {
	t.Parallel()

	r, paths, mount := newTestRegistry(t)

	require.NoError(t, os.WriteFile(filepath.Join(mount, "video.mp4"), []byte("x"), 0644))

	meta := entities.UploadMetadata{
		Filename:     "video.mp4",
		WithFilename: constants.WithFilenameOriginal,
		OnDuplicate:  constants.OnDuplicateNumber,
	}
	name, err := r.FinalFilename(meta, "staging-id")
	require.NoError(t, err)
	assert.Equal(t, "video(1).mp4", name)

	assert.True(t, paths.Exists("video.mp4", ""))
}

func TestFinalFilenameOriginalWithPreventOnCollisionFallsBackToName(t *testing.T) {
	t.Parallel()

	r, _, mount := newTestRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(mount, "video.mp4"), []byte("x"), 0644))

	meta := entities.UploadMetadata{
		Filename:     "video.mp4",
		WithFilename: constants.WithFilenameOriginal,
		OnDuplicate:  constants.OnDuplicatePrevent,
	}
	name, err := r.FinalFilename(meta, "staging-id")
	require.NoError(t, err)
	assert.Equal(t, "video.mp4", name, "prevent policy does not rename at finalize time; collision is rejected earlier at create")
}

func TestDispatchDuplicateUnknownNameFallsBackToPrevent(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRegistry(t)

	name, err := r.DispatchDuplicate("not-a-registered-policy", "video.mp4", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "video.mp4", name)
}

func TestUsesOriginalFilename(t *testing.T) {
	t.Parallel()

	assert.True(t, UsesOriginalFilename(entities.UploadMetadata{WithFilename: constants.WithFilenameOriginal, Filename: "a.txt"}))
	assert.False(t, UsesOriginalFilename(entities.UploadMetadata{WithFilename: constants.WithFilenameOriginal, Filename: ""}))
	assert.False(t, UsesOriginalFilename(entities.UploadMetadata{WithFilename: constants.WithFilenameDefault, Filename: "a.txt"}))
}

func TestRegisterCustomFilenameHandler(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRegistry(t)
	r.RegisterFilenameHandler("upper", func(meta entities.UploadMetadata, stagingID string) (string, error) {
		return "UPPER-" + stagingID, nil
	})

	name, err := r.FinalFilename(entities.UploadMetadata{WithFilename: "upper"}, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "UPPER-xyz", name)
}
