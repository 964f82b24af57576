package repositories

import (
	"context"
	"io"

	"tusflow/internal/domain/entities"
)

// StagingStore implements C2: the per-upload raw payload file plus its
// JSON sidecar, on local disk. Every method that mutates a given
// stagingId's sidecar must be serialized per-id by the implementation
// (see SPEC_FULL.md §5).
type StagingStore interface {
	// Create allocates a fresh staging id, writes an empty payload file,
	// and persists the initial sidecar (offset=0).
	Create(ctx context.Context, size int64, meta entities.UploadMetadata) (stagingID string, err error)

	// Load returns the current sidecar for stagingID, or an error
	// satisfying errors.Is(err, ErrNotFound) if it doesn't exist.
	Load(ctx context.Context, stagingID string) (entities.UploadInfo, error)

	// Append writes body at the current offset, updates and persists the
	// sidecar, and returns the new offset. Returns ErrOffsetMismatch if
	// offset does not match the stored offset.
	Append(ctx context.Context, stagingID string, offset int64, body io.Reader) (newOffset int64, err error)

	// OverwriteSidecar replaces the sidecar wholesale — used by the
	// assembler after reassembly to make part 1's entry look like a
	// completed solo upload.
	OverwriteSidecar(ctx context.Context, stagingID string, info entities.UploadInfo) error

	// PayloadPath returns the on-disk path of stagingID's payload file.
	PayloadPath(stagingID string) string

	// Remove deletes both the payload file and sidecar for stagingID.
	Remove(ctx context.Context, stagingID string) error

	// RemoveSidecarOnly deletes just the sidecar, leaving the payload
	// file in place (used once a payload has been moved to its
	// destination but the caller wants to keep the sidecar there too —
	// usesOriginalFilename's "move, don't delete" branch handles that
	// separately; this is for callers that only need the sidecar gone).
	RemoveSidecarOnly(stagingID string) error

	// StagingDir returns the configured staging directory.
	StagingDir() string
}

// ErrNotFound is returned by StagingStore.Load for an unknown stagingID.
var ErrNotFound = errStagingNotFound{}

// ErrOffsetMismatch is returned by StagingStore.Append when the caller's
// claimed offset does not match the stored one.
var ErrOffsetMismatch = errOffsetMismatch{}

// ErrSidecarPersistFailed is returned by StagingStore.Append when the
// payload bytes were written successfully but persisting the updated
// sidecar failed, leaving the on-disk offset stale relative to the
// payload file.
var ErrSidecarPersistFailed = errSidecarPersistFailed{}

type errStagingNotFound struct{}

func (errStagingNotFound) Error() string { return "staging entry not found" }

type errOffsetMismatch struct{}

func (errOffsetMismatch) Error() string { return "offset mismatch" }

type errSidecarPersistFailed struct{}

func (errSidecarPersistFailed) Error() string { return "sidecar persist failed" }
