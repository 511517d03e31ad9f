// Package sqlite implements the session store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"metacards/internal/models"
	"metacards/internal/storage/migrations"
)

// timestampLayout matches SQLite's CURRENT_TIMESTAMP so defaults and explicit values sort together
const timestampLayout = "2006-01-02 15:04:05"

type SQLiteDB struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteDB opens (creating if needed) the database file at path
func NewSQLiteDB(path string, logger *zap.Logger) (*SQLiteDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteDB{db: db, logger: logger, now: time.Now}, nil
}

// Initialize applies the embedded migrations
func (s *SQLiteDB) Initialize(ctx context.Context) error {
	if err := migrations.Up(ctx, s.db, migrations.SQLite); err != nil {
		return err
	}
	s.logger.Debug("SQLite schema is up to date")
	return nil
}

// UpsertUser creates the user or updates the stored first name
func (s *SQLiteDB) UpsertUser(ctx context.Context, userID int64, displayName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, first_name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET first_name = excluded.first_name`,
		userID, displayName, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", userID, err)
	}
	return nil
}

// GetDisplayName returns the stored first name
func (s *SQLiteDB) GetDisplayName(ctx context.Context, userID int64) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT first_name FROM users WHERE user_id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return name, true, nil
}

// GetUser returns the full user record or nil when absent
func (s *SQLiteDB) GetUser(ctx context.Context, userID int64) (*models.UserRecord, error) {
	var (
		user      models.UserRecord
		createdAt string
		request   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, first_name, created_at, current_request FROM users WHERE user_id = ?`, userID,
	).Scan(&user.UserID, &user.DisplayName, &createdAt, &request)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	if user.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	if request.Valid {
		user.CurrentRequest = &request.String
	}
	return &user, nil
}

// SetInFlightRequest stores the user's pending request text
func (s *SQLiteDB) SetInFlightRequest(ctx context.Context, userID int64, text string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET current_request = ? WHERE user_id = ?`, text, userID)
	if err != nil {
		return fmt.Errorf("failed to set current request for user %d: %w", userID, err)
	}
	return nil
}

// ClearInFlightRequest resets the user's pending request text
func (s *SQLiteDB) ClearInFlightRequest(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET current_request = NULL WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear current request for user %d: %w", userID, err)
	}
	return nil
}

// AppendCompletedDraw inserts a draw and returns its autoincrement id
func (s *SQLiteDB) AppendCompletedDraw(ctx context.Context, draw models.CompletedDraw) (int64, error) {
	requestedAt := draw.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (
			user_id, request_text, block_card_id, resource_card_id,
			block_card_description, resource_card_description, requested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		draw.UserID, draw.RequestText, draw.BlockCardID, draw.ResourceCardID,
		draw.BlockCardDescription, draw.ResourceCardDescription, requestedAt.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to save draw for user %d: %w", draw.UserID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read draw id: %w", err)
	}
	s.logger.Debug("Saved completed draw", zap.Int64("draw_id", id), zap.Int64("user_id", draw.UserID))
	return id, nil
}

// GetLastDraws returns the last N draws, newest first
func (s *SQLiteDB) GetLastDraws(ctx context.Context, limit int) ([]models.CompletedDraw, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, request_text, block_card_id, resource_card_id,
		       block_card_description, resource_card_description, requested_at
		FROM requests ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get last draws: %w", err)
	}
	defer rows.Close()

	var draws []models.CompletedDraw
	for rows.Next() {
		var (
			d           models.CompletedDraw
			requestedAt string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.RequestText, &d.BlockCardID, &d.ResourceCardID,
			&d.BlockCardDescription, &d.ResourceCardDescription, &requestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		if d.RequestedAt, err = parseTimestamp(requestedAt); err != nil {
			return nil, fmt.Errorf("draw %d: %w", d.ID, err)
		}
		draws = append(draws, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draws: %w", err)
	}
	return draws, nil
}

// GetStats counts users and draws
func (s *SQLiteDB) GetStats(ctx context.Context) (models.StoreStats, error) {
	var stats models.StoreStats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM requests)`,
	).Scan(&stats.Users, &stats.Draws)
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05Z"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
