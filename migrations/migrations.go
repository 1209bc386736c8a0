// Package migrations embeds the goose SQL migrations for the assessment audit log.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Run executes a goose command (up, down, status, version, redo, ...)
// against db using the embedded migrations.
func Run(ctx context.Context, db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}

// Up applies all pending migrations.
func Up(ctx context.Context, db *sql.DB) error {
	return Run(ctx, db, "up")
}
