// Package client implements C6: the client-side scheduler that drives
// a queue of files through the TUS protocol, split into parts per the
// partitioning policy and uploaded in parallel batches.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"tusflow/internal/domain/entities"
	"tusflow/pkg/protocol"
)

const tusVersion = "1.0.0"

// Session is a minimal TUS 1.0.0 client: create, append, head. It
// retries a failed append per the configured retryDelays,
// grounded on the teacher's CLI's semaphore-bounded retry-free chunk
// POSTs, generalized here into an actual TUS session with offsets.
type Session struct {
	HTTPClient  *http.Client
	Endpoint    string
	RetryDelays []time.Duration
}

func NewSession(endpoint string, retryDelays []time.Duration) *Session {
	return &Session{
		HTTPClient:  http.DefaultClient,
		Endpoint:    endpoint,
		RetryDelays: retryDelays,
	}
}

// Create opens a new upload session for size bytes, carrying meta in
// the Upload-Metadata header. Returns the session's absolute Location.
func (s *Session) Create(ctx context.Context, size int64, meta entities.UploadMetadata) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Tus-Resumable", tusVersion)
	req.Header.Set("Upload-Length", strconv.FormatInt(size, 10))
	req.Header.Set("Upload-Metadata", protocol.SerializeMetadataHeader(protocol.FromUploadMetadata(meta)))

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create returned status %d", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("create response missing Location header")
	}
	return location, nil
}

// Append uploads body at offset, retrying per RetryDelays on any
// failure: a network error or any non-204 status, 4xx included.
// Returns the new offset and whether the server
// reports the whole logical file as complete.
func (s *Session) Append(ctx context.Context, location string, offset int64, body []byte) (int64, bool, error) {
	delays := s.RetryDelays
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}

	var lastErr error
	for attempt, delay := range delays {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, false, ctx.Err()
			case <-time.After(delay):
			}
		}

		newOffset, complete, err := s.appendOnce(ctx, location, offset, body)
		if err == nil {
			return newOffset, complete, nil
		}
		lastErr = err
	}
	return 0, false, fmt.Errorf("append failed after %d attempts: %w", len(delays), lastErr)
}

func (s *Session) appendOnce(ctx context.Context, location string, offset int64, body []byte) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, location, bytes.NewReader(body))
	if err != nil {
		return 0, false, fmt.Errorf("build append request: %w", err)
	}
	req.Header.Set("Tus-Resumable", tusVersion)
	req.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))
	req.Header.Set("Content-Type", "application/offset+octet-stream")
	req.ContentLength = int64(len(body))

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("append request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, false, fmt.Errorf("append returned status %d: %s", resp.StatusCode, respBody)
	}

	newOffset, err := strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse response Upload-Offset: %w", err)
	}

	complete := resp.Header.Get("Upload-Complete") == "true"
	return newOffset, complete, nil
}

// Head queries a session's current offset and declared length.
func (s *Session) Head(ctx context.Context, location string) (offset, length int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, location, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build head request: %w", err)
	}
	req.Header.Set("Tus-Resumable", tusVersion)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("head request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("head returned status %d", resp.StatusCode)
	}

	offset, err = strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse Upload-Offset: %w", err)
	}
	length, err = strconv.ParseInt(resp.Header.Get("Upload-Length"), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse Upload-Length: %w", err)
	}
	return offset, length, nil
}

// Cancel terminates the upload at location by issuing a TUS DELETE
// (the termination extension); a 404 counts as success. The
// scheduler's Remove does not call it: Remove only cancels the
// sessions' contexts, which leaves the staging entries resumable.
func (s *Session) Cancel(ctx context.Context, location string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, location, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Tus-Resumable", tusVersion)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete returned status %d", resp.StatusCode)
	}
	return nil
}
