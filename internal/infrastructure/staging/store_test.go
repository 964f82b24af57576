package staging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusflow/internal/domain/entities"
	"tusflow/internal/domain/repositories"
)

func TestCreateAndLoad(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	meta := entities.UploadMetadata{Filename: "a.txt"}

	id, err := s.Create(context.Background(), 11, meta)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	info, err := s.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size)
	assert.Equal(t, int64(0), info.Offset)
	assert.Equal(t, "a.txt", info.Metadata.Filename)
	assert.False(t, info.Complete())
}

func TestLoadUnknownIDReturnsNotFound(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	_, err := s.Load(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestAppendAdvancesOffsetAndRejectsMismatch(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	id, err := s.Create(context.Background(), 10, entities.UploadMetadata{})
	require.NoError(t, err)

	newOffset, err := s.Append(context.Background(), id, 0, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), newOffset)

	_, err = s.Append(context.Background(), id, 0, strings.NewReader("hello"))
	assert.ErrorIs(t, err, repositories.ErrOffsetMismatch)

	newOffset, err = s.Append(context.Background(), id, 5, strings.NewReader("world"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), newOffset)

	info, err := s.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, info.Complete())

	data, err := os.ReadFile(s.PayloadPath(id))
	require.NoError(t, err)
	assert.Equal(t, "helloworld", string(data))
}

func TestOverwriteSidecar(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	id, err := s.Create(context.Background(), 10, entities.UploadMetadata{})
	require.NoError(t, err)

	synthesized := entities.UploadInfo{ID: id, Size: 99, Offset: 99, Metadata: entities.UploadMetadata{Filename: "merged.bin"}}
	require.NoError(t, s.OverwriteSidecar(context.Background(), id, synthesized))

	info, err := s.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(99), info.Size)
	assert.Equal(t, int64(99), info.Offset)
	assert.Equal(t, "merged.bin", info.Metadata.Filename)
}

func TestRemoveDeletesPayloadAndSidecar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir)
	id, err := s.Create(context.Background(), 10, entities.UploadMetadata{})
	require.NoError(t, err)

	require.NoError(t, s.Remove(context.Background(), id))

	_, err = os.Stat(filepath.Join(dir, id))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, id+".json"))
	assert.True(t, os.IsNotExist(err))

	_, err = s.Load(context.Background(), id)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestRemoveSidecarOnlyLeavesPayload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir)
	id, err := s.Create(context.Background(), 10, entities.UploadMetadata{})
	require.NoError(t, err)

	require.NoError(t, s.RemoveSidecarOnly(id))

	_, err = os.Stat(filepath.Join(dir, id))
	assert.NoError(t, err, "payload file should survive")
	_, err = os.Stat(filepath.Join(dir, id+".json"))
	assert.True(t, os.IsNotExist(err))
}

func TestStagingDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir)
	assert.Equal(t, dir, s.StagingDir())
}
