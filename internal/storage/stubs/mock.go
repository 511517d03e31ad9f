package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"metacards/internal/models"
)

// MockDB is an in-memory implementation of the Storage interface for testing
type MockDB struct {
	mu     sync.RWMutex
	users  map[int64]models.UserRecord
	draws  []models.CompletedDraw
	nextID int64
	now    func() time.Time
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		users: make(map[int64]models.UserRecord),
		draws: make([]models.CompletedDraw, 0),
		now:   time.Now,
	}
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// UpsertUser creates the user or updates the display name
func (m *MockDB) UpsertUser(ctx context.Context, userID int64, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		user = models.UserRecord{UserID: userID, CreatedAt: m.now()}
	}
	user.DisplayName = displayName
	m.users[userID] = user
	return nil
}

// GetDisplayName returns the stored display name
func (m *MockDB) GetDisplayName(ctx context.Context, userID int64) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return "", false, nil
	}
	return user.DisplayName, true, nil
}

// GetUser returns a copy of the user record
func (m *MockDB) GetUser(ctx context.Context, userID int64) (*models.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	if user.CurrentRequest != nil {
		req := *user.CurrentRequest
		user.CurrentRequest = &req
	}
	return &user, nil
}

// SetInFlightRequest stores the pending request; unknown users are ignored like an UPDATE would
func (m *MockDB) SetInFlightRequest(ctx context.Context, userID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return nil
	}
	user.CurrentRequest = &text
	m.users[userID] = user
	return nil
}

// ClearInFlightRequest resets the pending request
func (m *MockDB) ClearInFlightRequest(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return nil
	}
	user.CurrentRequest = nil
	m.users[userID] = user
	return nil
}

// AppendCompletedDraw appends a draw record
func (m *MockDB) AppendCompletedDraw(ctx context.Context, draw models.CompletedDraw) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	draw.ID = m.nextID
	if draw.RequestedAt.IsZero() {
		draw.RequestedAt = m.now()
	}
	m.draws = append(m.draws, draw)
	return draw.ID, nil
}

// GetLastDraws returns the last N draws, newest first
func (m *MockDB) GetLastDraws(ctx context.Context, limit int) ([]models.CompletedDraw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]models.CompletedDraw, len(m.draws))
	copy(sorted, m.draws)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID > sorted[j].ID
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit], nil
}

// GetStats returns user and draw counts
func (m *MockDB) GetStats(ctx context.Context) (models.StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return models.StoreStats{
		Users: int64(len(m.users)),
		Draws: int64(len(m.draws)),
	}, nil
}

// Draws returns every stored draw in insertion order
func (m *MockDB) Draws() []models.CompletedDraw {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CompletedDraw, len(m.draws))
	copy(out, m.draws)
	return out
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
