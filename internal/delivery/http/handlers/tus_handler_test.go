package handlers

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusflow/internal/infrastructure/pathing"
	"tusflow/internal/infrastructure/staging"
	"tusflow/internal/infrastructure/storage"
	"tusflow/internal/infrastructure/strategy"
)

func newTestHandler(t *testing.T) (*TusHandler, string) {
	t.Helper()

	stagingDir := t.TempDir()
	mountDir := t.TempDir()

	store := staging.New(stagingDir)
	paths := pathing.New(mountDir, `[^A-Za-z0-9._-]`)
	registry := strategy.New(paths)
	finalStore := storage.NewLocalStore(mountDir)

	return New(store, finalStore, paths, registry, 1<<30), mountDir
}

func appWith(h *TusHandler) *fiber.App {
	app := fiber.New()
	app.Post("/api/upload/", h.Create)
	app.Options("/api/upload/", h.Options)
	app.Patch("/api/upload/:id", h.Append)
	app.Head("/api/upload/:id", h.Head)
	app.Delete("/api/upload/:id", h.Delete)
	return app
}

func TestCreateThenAppendCompletesSoloUpload(t *testing.T) {
	t.Parallel()

	h, mountDir := newTestHandler(t)
	app := appWith(h)

	body := "hello, world"

	createReq := httptest.NewRequest("POST", "/api/upload/", nil)
	createReq.Header.Set("Upload-Length", strconv.Itoa(len(body)))
	createResp, err := app.Test(createReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, createResp.StatusCode)

	location := createResp.Header.Get("Location")
	require.NotEmpty(t, location)
	id := filepath.Base(location)

	patchReq := httptest.NewRequest("PATCH", "/api/upload/"+id, strings.NewReader(body))
	patchReq.Header.Set("Upload-Offset", "0")
	patchReq.Header.Set("Content-Type", "application/offset+octet-stream")
	patchResp, err := app.Test(patchReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, patchResp.StatusCode)
	assert.Equal(t, strconv.Itoa(len(body)), patchResp.Header.Get("Upload-Offset"))
	assert.Equal(t, "true", patchResp.Header.Get("Upload-Complete"))

	data, err := os.ReadFile(filepath.Join(mountDir, id))
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestAppendRejectsOffsetMismatch(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	app := appWith(h)

	createReq := httptest.NewRequest("POST", "/api/upload/", nil)
	createReq.Header.Set("Upload-Length", "10")
	createResp, err := app.Test(createReq)
	require.NoError(t, err)
	id := filepath.Base(createResp.Header.Get("Location"))

	patchReq := httptest.NewRequest("PATCH", "/api/upload/"+id, strings.NewReader("wrongoffset"))
	patchReq.Header.Set("Upload-Offset", "5")
	patchReq.Header.Set("Content-Type", "application/offset+octet-stream")
	patchResp, err := app.Test(patchReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, patchResp.StatusCode)
}

func TestAppendUnknownIDReturns404(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	app := appWith(h)

	patchReq := httptest.NewRequest("PATCH", "/api/upload/does-not-exist", strings.NewReader("x"))
	patchReq.Header.Set("Upload-Offset", "0")
	patchReq.Header.Set("Content-Type", "application/offset+octet-stream")
	resp, err := app.Test(patchReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateRejectsDuplicateWhenPreventPolicyCollides(t *testing.T) {
	t.Parallel()

	h, mountDir := newTestHandler(t)
	app := appWith(h)

	require.NoError(t, os.WriteFile(filepath.Join(mountDir, "report.pdf"), []byte("existing"), 0644))

	createReq := httptest.NewRequest("POST", "/api/upload/", nil)
	createReq.Header.Set("Upload-Length", "4")
	createReq.Header.Set("Upload-Metadata", "filename cmVwb3J0LnBkZg==,withFilename b3JpZ2luYWw=,onDuplicate cHJldmVudA==")
	resp, err := app.Test(createReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreateRequiresUploadLength(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	app := appWith(h)

	req := httptest.NewRequest("POST", "/api/upload/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestOptionsAdvertisesTerminationExtension(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	app := appWith(h)

	req := httptest.NewRequest("OPTIONS", "/api/upload/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Tus-Extension"), "termination")
	assert.Equal(t, "1.0.0", resp.Header.Get("Tus-Resumable"))
}

func TestHeadReportsOffsetAndLength(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	app := appWith(h)

	createReq := httptest.NewRequest("POST", "/api/upload/", nil)
	createReq.Header.Set("Upload-Length", "20")
	createResp, err := app.Test(createReq)
	require.NoError(t, err)
	id := filepath.Base(createResp.Header.Get("Location"))

	headReq := httptest.NewRequest("HEAD", "/api/upload/"+id, nil)
	headResp, err := app.Test(headReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, headResp.StatusCode)
	assert.Equal(t, "0", headResp.Header.Get("Upload-Offset"))
	assert.Equal(t, "20", headResp.Header.Get("Upload-Length"))
}

func TestDeleteRemovesUpload(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)
	app := appWith(h)

	createReq := httptest.NewRequest("POST", "/api/upload/", nil)
	createReq.Header.Set("Upload-Length", "5")
	createResp, err := app.Test(createReq)
	require.NoError(t, err)
	id := filepath.Base(createResp.Header.Get("Location"))

	delResp, err := app.Test(httptest.NewRequest("DELETE", "/api/upload/"+id, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, delResp.StatusCode)

	headResp, err := app.Test(httptest.NewRequest("HEAD", "/api/upload/"+id, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, headResp.StatusCode)
}
