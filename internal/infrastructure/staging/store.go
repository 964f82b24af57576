// Package staging implements C2: the raw payload file plus JSON sidecar
// that tracks one in-flight upload's progress on local disk.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"tusflow/internal/domain/entities"
	"tusflow/internal/domain/repositories"
	fl "tusflow/pkg/file"
)

// Store is the filesystem-backed StagingStore. Every method that reads
// or mutates a given stagingId's sidecar takes that id's lock for the
// duration of the operation, so concurrent PATCH requests against the
// same upload serialize rather than race.
type Store struct {
	dir string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(dir string) *Store {
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Store) StagingDir() string {
	return s.dir
}

func (s *Store) lockFor(stagingID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[stagingID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[stagingID] = l
	}
	return l
}

func (s *Store) PayloadPath(stagingID string) string {
	return filepath.Join(s.dir, stagingID)
}

func (s *Store) sidecarPath(stagingID string) string {
	return filepath.Join(s.dir, stagingID+".json")
}

func (s *Store) Create(ctx context.Context, size int64, meta entities.UploadMetadata) (string, error) {
	stagingID := uuid.NewString()

	l := s.lockFor(stagingID)
	l.Lock()
	defer l.Unlock()

	f, err := os.Create(s.PayloadPath(stagingID))
	if err != nil {
		return "", fmt.Errorf("create payload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close payload file: %w", err)
	}

	info := entities.UploadInfo{
		ID:           stagingID,
		Size:         size,
		Offset:       0,
		Metadata:     meta,
		CreationDate: time.Now().UTC(),
	}

	if err := s.writeSidecar(stagingID, info); err != nil {
		return "", err
	}

	return stagingID, nil
}

func (s *Store) Load(ctx context.Context, stagingID string) (entities.UploadInfo, error) {
	l := s.lockFor(stagingID)
	l.Lock()
	defer l.Unlock()

	return s.readSidecar(stagingID)
}

func (s *Store) readSidecar(stagingID string) (entities.UploadInfo, error) {
	data, err := os.ReadFile(s.sidecarPath(stagingID))
	if err != nil {
		if os.IsNotExist(err) {
			return entities.UploadInfo{}, repositories.ErrNotFound
		}
		return entities.UploadInfo{}, fmt.Errorf("read sidecar: %w", err)
	}

	var info entities.UploadInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return entities.UploadInfo{}, fmt.Errorf("decode sidecar: %w", err)
	}
	return info, nil
}

// writeSidecar writes through a temp file and renames into place so a
// reader never observes a half-written sidecar. Caller must hold
// stagingID's lock.
func (s *Store) writeSidecar(stagingID string, info entities.UploadInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}

	final := s.sidecarPath(stagingID)
	tmp := fmt.Sprintf("%s.tmp.%d", final, time.Now().UnixNano())

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write sidecar tmp: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		if copyErr := fl.CopyFile(tmp, final); copyErr != nil {
			return fmt.Errorf("persist sidecar: %w", copyErr)
		}
	}

	return nil
}

func (s *Store) Append(ctx context.Context, stagingID string, offset int64, body io.Reader) (int64, error) {
	l := s.lockFor(stagingID)
	l.Lock()
	defer l.Unlock()

	info, err := s.readSidecar(stagingID)
	if err != nil {
		return 0, err
	}

	if offset != info.Offset {
		return 0, repositories.ErrOffsetMismatch
	}

	f, err := os.OpenFile(s.PayloadPath(stagingID), os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open payload file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek payload file: %w", err)
	}

	written, err := io.Copy(f, body)
	if err != nil {
		return 0, fmt.Errorf("write payload: %w", err)
	}

	info.Offset = offset + written
	if err := s.writeSidecar(stagingID, info); err != nil {
		return 0, fmt.Errorf("%w: %w", repositories.ErrSidecarPersistFailed, err)
	}

	return info.Offset, nil
}

func (s *Store) OverwriteSidecar(ctx context.Context, stagingID string, info entities.UploadInfo) error {
	l := s.lockFor(stagingID)
	l.Lock()
	defer l.Unlock()

	return s.writeSidecar(stagingID, info)
}

func (s *Store) Remove(ctx context.Context, stagingID string) error {
	l := s.lockFor(stagingID)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(s.PayloadPath(stagingID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove payload file: %w", err)
	}
	if err := os.Remove(s.sidecarPath(stagingID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove sidecar: %w", err)
	}
	return nil
}

func (s *Store) RemoveSidecarOnly(stagingID string) error {
	l := s.lockFor(stagingID)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(s.sidecarPath(stagingID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove sidecar: %w", err)
	}
	return nil
}
