// Package ledger implements D1: a best-effort audit trail of finalized
// uploads, written to Postgres via gorm. Never consulted by the
// protocol handlers themselves.
package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tusflow/internal/domain/entities"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate creates/updates the upload_records table via gorm's
// schema sync, used as a fallback when goose migrations haven't been
// run for a given deployment.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&entities.UploadRecord{})
}

func (r *Repository) RecordCompletion(ctx context.Context, record entities.UploadRecord) error {
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("insert upload record: %w", err)
	}
	return nil
}
