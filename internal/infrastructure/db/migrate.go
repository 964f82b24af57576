package db

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "tusflow/migrations"
)

// RunMigrations applies every pending goose migration registered by
// the migrations package against sqlDB. Intended to be gated behind
// RUN_AUTO_MIGRATION, per the teacher's startup sequence.
func RunMigrations(sqlDB *sql.DB) error {
	goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
