package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	fl "tusflow/pkg/file"
)

// LocalStore is the default FinalStore (D5): final placement is a
// rename within mountPath, falling back to copy+unlink when the
// staging directory and mountPath live on different volumes.
type LocalStore struct {
	MountPath string
}

func NewLocalStore(mountPath string) *LocalStore {
	return &LocalStore{MountPath: mountPath}
}

func (l *LocalStore) resolve(destRelPath string) string {
	return filepath.Join(l.MountPath, destRelPath)
}

func (l *LocalStore) EnsureDir(ctx context.Context, destRelPath string) error {
	dir := filepath.Dir(l.resolve(destRelPath))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("ensure destination dir: %w", err)
	}
	return nil
}

func (l *LocalStore) Exists(ctx context.Context, destRelPath string) bool {
	_, err := os.Stat(l.resolve(destRelPath))
	return err == nil
}

// Place renames stagingPath to destRelPath under mountPath. A cross-
// device rename falls back to copy-then-unlink.
func (l *LocalStore) Place(ctx context.Context, stagingPath, destRelPath string) (string, error) {
	dest := l.resolve(destRelPath)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("ensure destination dir: %w", err)
	}

	if err := os.Rename(stagingPath, dest); err != nil {
		if copyErr := fl.CopyFile(stagingPath, dest); copyErr != nil {
			return "", fmt.Errorf("place file: %w", copyErr)
		}
	}

	return dest, nil
}
