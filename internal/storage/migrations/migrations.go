// Package migrations embeds the goose schema migrations for every storage backend.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql clickhouse/*.sql
var FS embed.FS

// Dialect selects both the goose dialect and the embedded migration directory
type Dialect string

const (
	SQLite     Dialect = "sqlite3"
	ClickHouse Dialect = "clickhouse"
)

// Dir returns the embedded directory holding the dialect's migrations
func (d Dialect) Dir() (string, error) {
	switch d {
	case SQLite:
		return "sqlite", nil
	case ClickHouse:
		return "clickhouse", nil
	}
	return "", fmt.Errorf("unsupported migration dialect %q", string(d))
}

func prepare(d Dialect) (string, error) {
	dir, err := d.Dir()
	if err != nil {
		return "", err
	}
	goose.SetBaseFS(FS)
	if err := goose.SetDialect(string(d)); err != nil {
		return "", fmt.Errorf("failed to set dialect: %w", err)
	}
	return dir, nil
}

// Up applies all pending migrations without logging
func Up(ctx context.Context, db *sql.DB, d Dialect) error {
	dir, err := prepare(d)
	if err != nil {
		return err
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Run executes a goose command (up, down, status, version) against the embedded migrations
func Run(ctx context.Context, db *sql.DB, d Dialect, command string) error {
	dir, err := prepare(d)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return goose.UpContext(ctx, db, dir)
	case "down":
		return goose.DownContext(ctx, db, dir)
	case "status":
		return goose.StatusContext(ctx, db, dir)
	case "version":
		return goose.VersionContext(ctx, db, dir)
	}
	return fmt.Errorf("unknown command: %s. Available commands: up, down, status, version", command)
}
