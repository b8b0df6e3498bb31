// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

func setup() error {
	goose.SetBaseFS(files)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Up runs all pending migrations.
func Up(db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back the latest migration.
func Down(db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	if err := goose.Down(db, "."); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func Status(db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	return goose.Status(db, ".")
}

// Version returns the current schema version.
func Version(db *sql.DB) (int64, error) {
	if err := setup(); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}
