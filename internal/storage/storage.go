package storage

import (
	"context"

	"metacards/internal/models"
)

// Storage defines the interface for data storage operations.
// Every call is an independent auto-committed statement.
type Storage interface {
	// User operations

	// UpsertUser creates the user or refreshes their display name
	UpsertUser(ctx context.Context, userID int64, displayName string) error
	// GetDisplayName returns the stored name; ok is false for unknown users
	GetDisplayName(ctx context.Context, userID int64) (name string, ok bool, err error)
	// GetUser returns nil, nil for unknown users
	GetUser(ctx context.Context, userID int64) (*models.UserRecord, error)
	SetInFlightRequest(ctx context.Context, userID int64, text string) error
	ClearInFlightRequest(ctx context.Context, userID int64) error

	// Draw operations

	// AppendCompletedDraw stores the record and returns its assigned id
	AppendCompletedDraw(ctx context.Context, draw models.CompletedDraw) (int64, error)
	// GetLastDraws returns up to limit draws, newest first
	GetLastDraws(ctx context.Context, limit int) ([]models.CompletedDraw, error)
	GetStats(ctx context.Context) (models.StoreStats, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
