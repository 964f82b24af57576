// Package assembler implements C5: tracking the sibling parts of a
// multipart upload and reassembling them into a single destination
// file once the last sibling lands.
package assembler

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"tusflow/internal/domain/entities"
	"tusflow/internal/domain/repositories"
)

// Finalizer is called by the assembler once part 1's payload holds the
// fully reassembled bytes, to run the ordinary solo-upload finalize
// path (final placement, sidecar disposition, ledger/notify/thumbnail
// hooks) against part 1's staging id.
type Finalizer interface {
	FinalizeSolo(ctx context.Context, stagingID string) error
}

// Assembler is C5. Assemblies are keyed by multipartId and live only
// for the process lifetime, per SPEC_FULL.md's caveat on crash
// recovery.
type Assembler struct {
	staging   repositories.StagingStore
	finalizer Finalizer

	mu         sync.Mutex
	groupLocks map[string]*sync.Mutex
	assemblies map[string]*entities.MultipartAssembly
}

func New(staging repositories.StagingStore, finalizer Finalizer) *Assembler {
	return &Assembler{
		staging:    staging,
		finalizer:  finalizer,
		groupLocks: make(map[string]*sync.Mutex),
		assemblies: make(map[string]*entities.MultipartAssembly),
	}
}

func (a *Assembler) lockFor(multipartID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.groupLocks[multipartID]
	if !ok {
		l = &sync.Mutex{}
		a.groupLocks[multipartID] = l
	}
	return l
}

func (a *Assembler) discard(multipartID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.assemblies, multipartID)
}

// Discard drops any in-flight assembly tracked for multipartID without
// reassembling it. Used when a sibling part is explicitly terminated
// (DELETE) so the group cannot later reassemble against a missing
// part.
func (a *Assembler) Discard(multipartID string) {
	groupLock := a.lockFor(multipartID)
	groupLock.Lock()
	defer groupLock.Unlock()
	a.discard(multipartID)
}

// HandlePartCompletion records that stagingID's part has finished
// uploading and, if it was the last outstanding sibling, reassembles
// the group. The bool return reports whether the whole logical file is
// now done — callers use it to decide whether to attach
// Upload-Complete to the triggering PATCH response.
func (a *Assembler) HandlePartCompletion(ctx context.Context, stagingID string, meta entities.UploadMetadata) (bool, error) {
	multipartID := meta.MultipartID

	groupLock := a.lockFor(multipartID)
	groupLock.Lock()

	partIndex, err := strconv.Atoi(meta.PartIndex)
	if err != nil {
		groupLock.Unlock()
		return false, fmt.Errorf("parse partIndex: %w", err)
	}
	totalParts, err := strconv.Atoi(meta.TotalParts)
	if err != nil {
		groupLock.Unlock()
		return false, fmt.Errorf("parse totalParts: %w", err)
	}

	a.mu.Lock()
	assembly, ok := a.assemblies[multipartID]
	if !ok {
		assembly = &entities.MultipartAssembly{
			TotalParts: totalParts,
			Metadata:   meta,
			Parts:      make(map[int]string),
		}
		a.assemblies[multipartID] = assembly
	}
	a.mu.Unlock()

	assembly.Parts[partIndex] = stagingID

	if len(assembly.Parts) < assembly.TotalParts {
		groupLock.Unlock()
		return false, nil
	}

	// This is the last sibling: reassemble while still holding the
	// group lock so a retried/duplicate completion cannot re-fire.
	err = a.reassemble(ctx, assembly)
	a.discard(multipartID)
	groupLock.Unlock()

	if err != nil {
		return false, fmt.Errorf("reassemble multipart upload: %w", err)
	}
	return true, nil
}

// reassemble concatenates parts 2..N onto part 1's payload file in
// strict index order, deletes each consumed part's payload and
// sidecar, rewrites part 1's sidecar to look like a completed solo
// upload, then runs the solo finalize path against part 1.
func (a *Assembler) reassemble(ctx context.Context, assembly *entities.MultipartAssembly) error {
	baseID, ok := assembly.Parts[1]
	if !ok {
		return fmt.Errorf("missing part 1 of %d", assembly.TotalParts)
	}

	baseInfo, err := a.staging.Load(ctx, baseID)
	if err != nil {
		return fmt.Errorf("load part 1 sidecar: %w", err)
	}

	base, err := os.OpenFile(a.staging.PayloadPath(baseID), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open base payload for append: %w", err)
	}
	defer base.Close()

	for i := 2; i <= assembly.TotalParts; i++ {
		partID, ok := assembly.Parts[i]
		if !ok {
			return fmt.Errorf("missing part %d of %d", i, assembly.TotalParts)
		}

		if err := a.appendPart(base, partID); err != nil {
			return fmt.Errorf("append part %d: %w", i, err)
		}

		if err := a.staging.Remove(ctx, partID); err != nil {
			return fmt.Errorf("remove consumed part %d: %w", i, err)
		}
	}

	finalSize := baseInfo.Size
	if original, err := strconv.ParseInt(assembly.Metadata.OriginalFileSize, 10, 64); err == nil && original > 0 {
		finalSize = original
	}

	synthesized := entities.UploadInfo{
		ID:           baseID,
		Size:         finalSize,
		Offset:       finalSize,
		Metadata:     baseInfo.Metadata,
		CreationDate: baseInfo.CreationDate,
	}
	if err := a.staging.OverwriteSidecar(ctx, baseID, synthesized); err != nil {
		return fmt.Errorf("overwrite base sidecar: %w", err)
	}

	return a.finalizer.FinalizeSolo(ctx, baseID)
}

func (a *Assembler) appendPart(dst *os.File, partID string) error {
	src, err := os.Open(a.staging.PayloadPath(partID))
	if err != nil {
		return fmt.Errorf("open part payload: %w", err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy part bytes: %w", err)
	}
	return nil
}
