package assembler

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusflow/internal/domain/entities"
	"tusflow/internal/infrastructure/staging"
)

type recordingFinalizer struct {
	finalized []string
}

func (f *recordingFinalizer) FinalizeSolo(ctx context.Context, stagingID string) error {
	f.finalized = append(f.finalized, stagingID)
	return nil
}

func createPart(t *testing.T, store *staging.Store, multipartID string, partIndex, totalParts int, originalSize int64, body string) string {
	t.Helper()
	meta := entities.UploadMetadata{
		MultipartID:      multipartID,
		PartIndex:        strconv.Itoa(partIndex),
		TotalParts:       strconv.Itoa(totalParts),
		OriginalFileSize: strconv.FormatInt(originalSize, 10),
	}
	id, err := store.Create(context.Background(), int64(len(body)), meta)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), id, 0, strings.NewReader(body))
	require.NoError(t, err)
	return id
}

func TestHandlePartCompletionOutOfOrderReassemblesInIndexOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := staging.New(dir)
	finalizer := &recordingFinalizer{}
	a := New(store, finalizer)

	multipartID := "group-1"
	part2 := createPart(t, store, multipartID, 2, 3, 15, "BBBBB")
	part1 := createPart(t, store, multipartID, 1, 3, 15, "AAAAA")
	part3 := createPart(t, store, multipartID, 3, 3, 15, "CCCCC")

	metaFor := func(id string, idx int) entities.UploadMetadata {
		return entities.UploadMetadata{MultipartID: multipartID, PartIndex: strconv.Itoa(idx), TotalParts: "3", OriginalFileSize: "15"}
	}

	complete, err := a.HandlePartCompletion(context.Background(), part2, metaFor(part2, 2))
	require.NoError(t, err)
	assert.False(t, complete)

	complete, err = a.HandlePartCompletion(context.Background(), part3, metaFor(part3, 3))
	require.NoError(t, err)
	assert.False(t, complete)

	complete, err = a.HandlePartCompletion(context.Background(), part1, metaFor(part1, 1))
	require.NoError(t, err)
	assert.True(t, complete)

	data, err := os.ReadFile(filepath.Join(dir, part1))
	require.NoError(t, err)
	assert.Equal(t, "AAAAABBBBBCCCCC", string(data))

	require.Len(t, finalizer.finalized, 1)
	assert.Equal(t, part1, finalizer.finalized[0])

	_, err = os.Stat(filepath.Join(dir, part2))
	assert.True(t, os.IsNotExist(err), "consumed part 2 payload should be removed")
	_, err = os.Stat(filepath.Join(dir, part3))
	assert.True(t, os.IsNotExist(err), "consumed part 3 payload should be removed")

	info, err := store.Load(context.Background(), part1)
	require.NoError(t, err)
	assert.Equal(t, int64(15), info.Size)
	assert.Equal(t, int64(15), info.Offset)
}

func TestHandlePartCompletionWaitsForMissingPart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := staging.New(dir)
	finalizer := &recordingFinalizer{}
	a := New(store, finalizer)

	multipartID := "group-2"
	part1 := createPart(t, store, multipartID, 1, 2, 10, "AAAAA")

	meta := entities.UploadMetadata{MultipartID: multipartID, PartIndex: "1", TotalParts: "2", OriginalFileSize: "10"}
	complete, err := a.HandlePartCompletion(context.Background(), part1, meta)
	require.NoError(t, err)
	assert.False(t, complete, "only one of two parts has landed")
}

func TestDiscardDropsInFlightAssembly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := staging.New(dir)
	finalizer := &recordingFinalizer{}
	a := New(store, finalizer)

	multipartID := "group-3"
	part1 := createPart(t, store, multipartID, 1, 2, 10, "AAAAA")
	meta := entities.UploadMetadata{MultipartID: multipartID, PartIndex: "1", TotalParts: "2", OriginalFileSize: "10"}
	_, err := a.HandlePartCompletion(context.Background(), part1, meta)
	require.NoError(t, err)

	a.Discard(multipartID)

	a.mu.Lock()
	_, ok := a.assemblies[multipartID]
	a.mu.Unlock()
	assert.False(t, ok, "discarded assembly must not remain tracked")
}
