package ch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"metacards/internal/models"
	"metacards/internal/storage/migrations"
)

// setupTestDB creates a test ClickHouse instance using testcontainers
func setupTestDB(t *testing.T) (*ClickHouseDB, func()) {
	if testing.Short() {
		t.Skip("skipping ClickHouse container test in short mode")
	}
	ctx := context.Background()

	// Start ClickHouse container
	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	// Apply the same embedded migrations cmd/migrate uses
	sqlDB := OpenSQL(host, port.Int(), "default", "default", "", false)
	err = migrations.Up(ctx, sqlDB, migrations.ClickHouse)
	sqlDB.Close()
	require.NoError(t, err, "Failed to run migrations")

	db, err := NewClickHouseDB(host, port.Int(), "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")

	cleanup := func() {
		db.Close()
		clickhouseContainer.Terminate(ctx)
	}

	return db, cleanup
}

func TestClickHouseDB(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		user, err := db.GetUser(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, user)

		_, ok, err := db.GetDisplayName(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		// Updating an absent user writes nothing
		require.NoError(t, db.SetInFlightRequest(ctx, 1, "x"))
		user, err = db.GetUser(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("user versions", func(t *testing.T) {
		require.NoError(t, db.UpsertUser(ctx, 42, "Anna"))
		first, err := db.GetUser(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, first)

		require.NoError(t, db.SetInFlightRequest(ctx, 42, "find clarity"))
		user, err := db.GetUser(ctx, 42)
		require.NoError(t, err)
		require.NotNil(t, user.CurrentRequest)
		assert.Equal(t, "find clarity", *user.CurrentRequest)

		require.NoError(t, db.UpsertUser(ctx, 42, "Anya"))
		user, err = db.GetUser(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "Anya", user.DisplayName)
		require.NotNil(t, user.CurrentRequest, "rename keeps the pending request")
		assert.True(t, first.CreatedAt.Equal(user.CreatedAt), "rename keeps created_at")

		require.NoError(t, db.ClearInFlightRequest(ctx, 42))
		user, err = db.GetUser(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, user.CurrentRequest)
	})

	t.Run("draws", func(t *testing.T) {
		at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		first, err := db.AppendCompletedDraw(ctx, models.CompletedDraw{
			UserID: 42, RequestText: "rest", BlockCardID: 39, ResourceCardID: 1,
			BlockCardDescription: "Look closer", ResourceCardDescription: "Someone who guides",
			RequestedAt: at,
		})
		require.NoError(t, err)
		second, err := db.AppendCompletedDraw(ctx, models.CompletedDraw{
			UserID: 42, RequestText: "sleep", BlockCardID: 40, ResourceCardID: 2,
			RequestedAt: at,
		})
		require.NoError(t, err)
		assert.Greater(t, second, first)

		draws, err := db.GetLastDraws(ctx, 10)
		require.NoError(t, err)
		require.Len(t, draws, 2)
		assert.Equal(t, second, draws[0].ID)
		assert.Equal(t, 39, draws[1].BlockCardID)
		assert.Equal(t, "Look closer", draws[1].BlockCardDescription)

		stats, err := db.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.StoreStats{Users: 1, Draws: 2}, stats)
	})
}

func TestNextIDIsMonotonic(t *testing.T) {
	db := &ClickHouseDB{now: time.Now}
	at := time.Unix(100, 0)

	a := db.nextID(at)
	b := db.nextID(at)
	c := db.nextID(at.Add(-time.Second))

	assert.Equal(t, at.UnixNano(), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)
}
