package ch

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"metacards/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouseDB struct {
	conn   clickhouse.Conn
	now    func() time.Time
	lastID atomic.Int64
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(Options(host, port, database, user, password, useTLS))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn, now: time.Now}, nil
}

// Options builds native-protocol connection options
func Options(host string, port int, database, user, password string, useTLS bool) *clickhouse.Options {
	options := &clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", host, port)},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}
	return options
}

// OpenSQL returns a database/sql handle for tooling such as goose
func OpenSQL(host string, port int, database, user, password string, useTLS bool) *sql.DB {
	return clickhouse.OpenDB(Options(host, port, database, user, password, useTLS))
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	// Tables are managed via cmd/migrate (internal/storage/migrations/clickhouse)
	return nil
}

// UpsertUser writes a new version of the user row with the given name
func (db *ClickHouseDB) UpsertUser(ctx context.Context, userID int64, displayName string) error {
	user, err := db.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		user = &models.UserRecord{UserID: userID, CreatedAt: db.now()}
	}
	user.DisplayName = displayName
	return db.writeUser(ctx, *user)
}

// GetDisplayName returns the latest stored name
func (db *ClickHouseDB) GetDisplayName(ctx context.Context, userID int64) (string, bool, error) {
	user, err := db.GetUser(ctx, userID)
	if err != nil || user == nil {
		return "", false, err
	}
	return user.DisplayName, true, nil
}

// GetUser returns the newest version of the user row or nil when absent
func (db *ClickHouseDB) GetUser(ctx context.Context, userID int64) (*models.UserRecord, error) {
	var (
		user    models.UserRecord
		request *string
	)
	// Aggregates skip NULLs, so pick the newest row directly instead of argMax
	err := db.conn.QueryRow(ctx, `
		SELECT user_id, first_name, created_at, current_request
		FROM users WHERE user_id = ?
		ORDER BY updated_at DESC LIMIT 1`, userID,
	).Scan(&user.UserID, &user.DisplayName, &user.CreatedAt, &request)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	user.CurrentRequest = request
	return &user, nil
}

// SetInFlightRequest writes a new user version carrying the request
func (db *ClickHouseDB) SetInFlightRequest(ctx context.Context, userID int64, text string) error {
	return db.updateRequest(ctx, userID, &text)
}

// ClearInFlightRequest writes a new user version without a request
func (db *ClickHouseDB) ClearInFlightRequest(ctx context.Context, userID int64) error {
	return db.updateRequest(ctx, userID, nil)
}

func (db *ClickHouseDB) updateRequest(ctx context.Context, userID int64, request *string) error {
	user, err := db.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	user.CurrentRequest = request
	return db.writeUser(ctx, *user)
}

func (db *ClickHouseDB) writeUser(ctx context.Context, user models.UserRecord) error {
	err := db.conn.Exec(ctx, `
		INSERT INTO users (user_id, first_name, created_at, current_request, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.UserID, user.DisplayName, user.CreatedAt, user.CurrentRequest, db.now())
	if err != nil {
		return fmt.Errorf("failed to write user %d: %w", user.UserID, err)
	}
	return nil
}

// AppendCompletedDraw inserts a draw. ClickHouse has no autoincrement, so ids are
// nanosecond timestamps made strictly increasing within the process.
func (db *ClickHouseDB) AppendCompletedDraw(ctx context.Context, draw models.CompletedDraw) (int64, error) {
	if draw.RequestedAt.IsZero() {
		draw.RequestedAt = db.now()
	}
	id := db.nextID(draw.RequestedAt)

	err := db.conn.Exec(ctx, `
		INSERT INTO requests (
			id, user_id, request_text, block_card_id, resource_card_id,
			block_card_description, resource_card_description, requested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, draw.UserID, draw.RequestText, int32(draw.BlockCardID), int32(draw.ResourceCardID),
		draw.BlockCardDescription, draw.ResourceCardDescription, draw.RequestedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to save draw for user %d: %w", draw.UserID, err)
	}
	return id, nil
}

func (db *ClickHouseDB) nextID(at time.Time) int64 {
	candidate := at.UnixNano()
	for {
		last := db.lastID.Load()
		if candidate <= last {
			candidate = last + 1
		}
		if db.lastID.CompareAndSwap(last, candidate) {
			return candidate
		}
	}
}

// GetLastDraws returns the last N draws
func (db *ClickHouseDB) GetLastDraws(ctx context.Context, limit int) ([]models.CompletedDraw, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT id, user_id, request_text, block_card_id, resource_card_id,
		       block_card_description, resource_card_description, requested_at
		FROM requests ORDER BY requested_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get last draws: %w", err)
	}
	defer rows.Close()

	var draws []models.CompletedDraw
	for rows.Next() {
		var (
			draw               models.CompletedDraw
			blockID, resouceID int32
		)
		if err := rows.Scan(&draw.ID, &draw.UserID, &draw.RequestText, &blockID, &resouceID,
			&draw.BlockCardDescription, &draw.ResourceCardDescription, &draw.RequestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draw.BlockCardID = int(blockID)
		draw.ResourceCardID = int(resouceID)
		draws = append(draws, draw)
	}
	return draws, rows.Err()
}

// GetStats counts distinct users and draws
func (db *ClickHouseDB) GetStats(ctx context.Context) (models.StoreStats, error) {
	var users, draws uint64
	if err := db.conn.QueryRow(ctx, `SELECT uniqExact(user_id) FROM users`).Scan(&users); err != nil {
		return models.StoreStats{}, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.conn.QueryRow(ctx, `SELECT count() FROM requests`).Scan(&draws); err != nil {
		return models.StoreStats{}, fmt.Errorf("failed to count draws: %w", err)
	}
	return models.StoreStats{Users: int64(users), Draws: int64(draws)}, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
