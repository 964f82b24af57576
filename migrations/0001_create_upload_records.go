package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateUploadRecords, downCreateUploadRecords)
}

func upCreateUploadRecords(ctx context.Context, tx *sql.Tx) error {
	createTable := `
	CREATE TABLE upload_records (
		id UUID PRIMARY KEY,
		filename VARCHAR(500) NOT NULL,
		destination_path VARCHAR(500) NOT NULL,
		size BIGINT NOT NULL,
		sha256 VARCHAR(64) NOT NULL,
		multipart_id VARCHAR(64),
		total_parts INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		completed_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	`
	if _, err := tx.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("could not create upload_records table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `CREATE INDEX idx_upload_records_multipart_id ON upload_records (multipart_id);`); err != nil {
		return fmt.Errorf("could not create multipart_id index: %w", err)
	}

	return nil
}

func downCreateUploadRecords(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS upload_records;`); err != nil {
		return fmt.Errorf("could not drop upload_records table: %w", err)
	}
	return nil
}
