// Package handlers implements C4: the TUS 1.0.0 endpoint (create,
// append, head, options) plus the termination extension, grounded on
// the teacher's handler/service split and on the reference tusd
// handler's header and metadata conventions.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tusflow/internal/domain/entities"
	"tusflow/internal/domain/repositories"
	"tusflow/internal/infrastructure/assembler"
	"tusflow/internal/infrastructure/notify"
	"tusflow/internal/infrastructure/pathing"
	"tusflow/internal/infrastructure/strategy"
	"tusflow/internal/infrastructure/thumbnail"
	"tusflow/pkg/constants"
	upErrors "tusflow/pkg/errors"
	"tusflow/pkg/file"
	"tusflow/pkg/protocol"
)

const tusVersion = "1.0.0"

// TusHandler is C4. Ledger, notifier and thumbnail are best-effort
// ambient collaborators (D1, D3, D6) and may be nil — every call site
// guards against that and never lets their failure affect the
// protocol response.
type TusHandler struct {
	staging    repositories.StagingStore
	finalStore repositories.FinalStore
	paths      *pathing.Service
	registry   *strategy.Registry
	assembler  *assembler.Assembler

	ledger   repositories.LedgerRepository
	notifier *notify.Notifier
	thumb    *thumbnail.Generator

	maxFileSize int64
}

func New(
	staging repositories.StagingStore,
	finalStore repositories.FinalStore,
	paths *pathing.Service,
	registry *strategy.Registry,
	maxFileSize int64,
) *TusHandler {
	h := &TusHandler{
		staging:     staging,
		finalStore:  finalStore,
		paths:       paths,
		registry:    registry,
		maxFileSize: maxFileSize,
	}
	h.assembler = assembler.New(staging, h)
	return h
}

func (h *TusHandler) WithLedger(ledger repositories.LedgerRepository) *TusHandler {
	h.ledger = ledger
	return h
}

func (h *TusHandler) WithNotifier(notifier *notify.Notifier) *TusHandler {
	h.notifier = notifier
	return h
}

func (h *TusHandler) WithThumbnail(thumb *thumbnail.Generator) *TusHandler {
	h.thumb = thumb
	return h
}

func setCommonHeaders(c *fiber.Ctx) {
	c.Set("Tus-Resumable", tusVersion)
}

// Create handles POST /api/upload/.
func (h *TusHandler) Create(c *fiber.Ctx) error {
	setCommonHeaders(c)

	lengthHeader := c.Get("Upload-Length")
	if lengthHeader == "" {
		return upErrors.HandleError(c, upErrors.ErrMissingUploadLength(nil))
	}
	size, err := strconv.ParseInt(lengthHeader, 10, 64)
	if err != nil || size < 0 {
		return upErrors.HandleError(c, upErrors.ErrInvalidUploadLength(err))
	}
	if size > h.maxFileSize {
		return upErrors.HandleError(c, upErrors.ErrMaxSizeExceeded(nil))
	}

	rawMeta := protocol.ParseMetadataHeader(c.Get("Upload-Metadata"))
	meta := protocol.ToUploadMetadata(rawMeta)

	if meta.WithFilename == constants.WithFilenameOriginal && meta.Filename != "" && meta.OnDuplicate == constants.OnDuplicatePrevent {
		sanitized := h.paths.Sanitize(meta.Filename)
		if h.paths.Exists(sanitized, meta.DestinationPath) {
			return upErrors.HandleError(c, upErrors.ErrDuplicateExists(sanitized))
		}
	}

	stagingID, err := h.staging.Create(c.Context(), size, meta)
	if err != nil {
		return upErrors.HandleError(c, upErrors.ErrInternal(err))
	}

	location := fmt.Sprintf("%s://%s/api/upload/%s", schemeOf(c), c.Hostname(), stagingID)
	c.Set("Location", location)
	c.Set("Upload-Offset", "0")
	return c.Status(fiber.StatusCreated).Send(nil)
}

func schemeOf(c *fiber.Ctx) string {
	if c.Secure() {
		return "https"
	}
	return "http"
}

// Append handles PATCH /api/upload/{id}.
func (h *TusHandler) Append(c *fiber.Ctx) error {
	setCommonHeaders(c)

	stagingID := c.Params("id")

	offsetHeader := c.Get("Upload-Offset")
	if offsetHeader == "" {
		return upErrors.HandleError(c, upErrors.ErrMissingOffset(nil))
	}
	offset, err := strconv.ParseInt(offsetHeader, 10, 64)
	if err != nil || offset < 0 {
		return upErrors.HandleError(c, upErrors.ErrInvalidOffset(err))
	}
	if c.Get("Content-Type") != "application/offset+octet-stream" {
		return upErrors.HandleError(c, upErrors.ErrInvalidContentType(nil))
	}

	ctx := c.Context()

	info, err := h.staging.Load(ctx, stagingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return upErrors.HandleError(c, upErrors.ErrUploadNotFound(nil))
		}
		return upErrors.HandleError(c, upErrors.ErrInternal(err))
	}
	if offset != info.Offset {
		return upErrors.HandleError(c, upErrors.ErrOffsetMismatch(nil))
	}

	newOffset, err := h.staging.Append(ctx, stagingID, offset, bytes.NewReader(c.Body()))
	if err != nil {
		if errors.Is(err, repositories.ErrOffsetMismatch) {
			return upErrors.HandleError(c, upErrors.ErrOffsetMismatch(nil))
		}
		if errors.Is(err, repositories.ErrSidecarPersistFailed) {
			return upErrors.HandleError(c, upErrors.ErrSidecarWriteFailed(err))
		}
		return upErrors.HandleError(c, upErrors.ErrAppendFailed(err))
	}

	complete := false
	if newOffset >= info.Size {
		complete, err = h.finalize(ctx, stagingID, info.Metadata)
		if err != nil {
			if info.Metadata.IsMultipartPart() {
				return upErrors.HandleError(c, upErrors.ErrAssemblyFailed(err))
			}
			return upErrors.HandleError(c, upErrors.ErrFinalizeFailed(err))
		}
	}

	c.Set("Upload-Offset", strconv.FormatInt(newOffset, 10))
	if complete {
		c.Set("Upload-Complete", "true")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Head handles HEAD /api/upload/{id}.
func (h *TusHandler) Head(c *fiber.Ctx) error {
	setCommonHeaders(c)

	stagingID := c.Params("id")
	info, err := h.staging.Load(c.Context(), stagingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return upErrors.HandleError(c, upErrors.ErrUploadNotFound(nil))
		}
		return upErrors.HandleError(c, upErrors.ErrInternal(err))
	}

	c.Set("Cache-Control", "no-store")
	c.Set("Upload-Offset", strconv.FormatInt(info.Offset, 10))
	c.Set("Upload-Length", strconv.FormatInt(info.Size, 10))
	return c.SendStatus(fiber.StatusOK)
}

// Options handles OPTIONS /api/upload/.
func (h *TusHandler) Options(c *fiber.Ctx) error {
	c.Set("Tus-Resumable", tusVersion)
	c.Set("Tus-Version", tusVersion)
	c.Set("Tus-Extension", "creation,termination")
	c.Set("Access-Control-Allow-Origin", "*")
	c.Set("Access-Control-Allow-Methods", "POST,PATCH,HEAD,OPTIONS,DELETE")
	c.Set("Access-Control-Allow-Headers", "Upload-Length,Upload-Offset,Upload-Metadata,Content-Type,Tus-Resumable")
	c.Set("Access-Control-Expose-Headers", "Location,Upload-Offset,Upload-Length,Upload-Complete,Tus-Resumable,Tus-Version,Tus-Extension")
	return c.SendStatus(fiber.StatusNoContent)
}

// Delete handles DELETE /api/upload/{id} (the termination extension).
// Removes the staging payload+sidecar; if the id is a sibling of a
// still-open multipart group, the in-memory assembly for that group is
// discarded so it cannot reassemble against a missing part.
func (h *TusHandler) Delete(c *fiber.Ctx) error {
	setCommonHeaders(c)

	stagingID := c.Params("id")
	ctx := c.Context()

	info, err := h.staging.Load(ctx, stagingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return upErrors.HandleError(c, upErrors.ErrUploadNotFound(nil))
		}
		return upErrors.HandleError(c, upErrors.ErrInternal(err))
	}

	if info.Metadata.IsMultipartPart() {
		h.assembler.Discard(info.Metadata.MultipartID)
	}

	if err := h.staging.Remove(ctx, stagingID); err != nil {
		return upErrors.HandleError(c, upErrors.ErrInternal(err))
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// finalize is the branch point described in SPEC_FULL.md §4.4: a
// multipart part delegates to the assembler; everything else runs the
// solo-finalize path directly.
func (h *TusHandler) finalize(ctx context.Context, stagingID string, meta entities.UploadMetadata) (bool, error) {
	if meta.IsMultipartPart() {
		return h.assembler.HandlePartCompletion(ctx, stagingID, meta)
	}
	if err := h.FinalizeSolo(ctx, stagingID); err != nil {
		return false, err
	}
	return true, nil
}

// FinalizeSolo implements assembler.Finalizer: move the payload file
// at stagingID to its destination and dispose of the sidecar according
// to the filename strategy. Called directly for ordinary uploads and
// by the assembler once a multipart group's part 1 holds the fully
// reassembled bytes.
func (h *TusHandler) FinalizeSolo(ctx context.Context, stagingID string) error {
	info, err := h.staging.Load(ctx, stagingID)
	if err != nil {
		return fmt.Errorf("load sidecar for finalize: %w", err)
	}

	finalName, err := h.registry.FinalFilename(info.Metadata, stagingID)
	if err != nil {
		return fmt.Errorf("resolve final filename: %w", err)
	}

	destRelPath := pathing.Normalize(info.Metadata.DestinationPath) + finalName

	location, err := h.finalStore.Place(ctx, h.staging.PayloadPath(stagingID), destRelPath)
	if err != nil {
		return fmt.Errorf("place final file: %w", err)
	}

	if strategy.UsesOriginalFilename(info.Metadata) {
		sidecarDest := location + ".json"
		if copyErr := file.CopyFile(h.sidecarOf(stagingID), sidecarDest); copyErr != nil {
			log.Printf("finalize: failed to carry sidecar to destination: %v", copyErr)
			_ = h.staging.RemoveSidecarOnly(stagingID)
		}
	} else {
		if err := h.staging.RemoveSidecarOnly(stagingID); err != nil {
			log.Printf("finalize: failed to remove sidecar: %v", err)
		}
	}

	h.runAmbientHooks(ctx, location, info)

	return nil
}

func (h *TusHandler) sidecarOf(stagingID string) string {
	return h.staging.PayloadPath(stagingID) + ".json"
}

// runAmbientHooks fires the best-effort D1/D3/D6 side effects in a
// goroutine that outlives the request. It deliberately ignores the
// caller's ctx (fiber recycles the fasthttp request context the
// instant the handler returns) and runs against context.Background()
// instead. None of these side effects can turn a successful finalize
// into an error response; every failure is logged and swallowed.
func (h *TusHandler) runAmbientHooks(_ context.Context, location string, info entities.UploadInfo) {
	go func() {
		ctx := context.Background()
		digest, err := file.SHA256(location)
		if err != nil {
			log.Printf("ambient: digest %s: %v", location, err)
			return
		}

		if h.ledger != nil {
			record := entities.UploadRecord{
				ID:              uuid.NewString(),
				Filename:        info.Metadata.Filename,
				DestinationPath: info.Metadata.DestinationPath,
				Size:            info.Size,
				SHA256:          digest,
				MultipartID:     info.Metadata.MultipartID,
				TotalParts:      totalPartsOf(info.Metadata),
				CreatedAt:       info.CreationDate,
				CompletedAt:     timeNow(),
			}
			if err := h.ledger.RecordCompletion(ctx, record); err != nil {
				log.Printf("ambient: record ledger completion for %s: %v", location, err)
			}
		}

		if h.notifier != nil {
			h.notifier.Publish(ctx, notify.CompletionEvent{
				Filename:        info.Metadata.Filename,
				DestinationPath: info.Metadata.DestinationPath,
				Size:            info.Size,
				SHA256:          digest,
				MultipartID:     info.Metadata.MultipartID,
				CompletedAt:     timeNow(),
			})
		}

		if h.thumb != nil && h.thumb.ShouldGenerate(location, info.Metadata.Filetype) {
			h.thumb.Generate(location)
		}
	}()
}

func totalPartsOf(meta entities.UploadMetadata) int {
	if meta.TotalParts == "" {
		return 1
	}
	n, err := strconv.Atoi(meta.TotalParts)
	if err != nil {
		return 1
	}
	return n
}

func timeNow() time.Time {
	return time.Now().UTC()
}
