package repositories

import "context"

// FinalStore is C1's destination-side collaborator (D5): the backend
// that receives a finalized upload's bytes. storage.LocalStore implements
// the rename/EXDEV contract described in SPEC_FULL.md §4.4; storage.S3Store
// is the opt-in alternative.
type FinalStore interface {
	// Place moves/uploads the staging payload at stagingPath to
	// destRelPath (relative to the store's root) and returns the final
	// location (a filesystem path or an object URL).
	Place(ctx context.Context, stagingPath, destRelPath string) (location string, err error)

	// Exists reports whether destRelPath is already occupied.
	Exists(ctx context.Context, destRelPath string) bool

	// EnsureDir creates any directories needed for destRelPath to be
	// placeable (a no-op for backends without a directory concept).
	EnsureDir(ctx context.Context, destRelPath string) error
}
