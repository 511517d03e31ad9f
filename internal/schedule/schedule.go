// Package schedule runs keyed delayed actions on top of time.AfterFunc.
package schedule

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	timer     *time.Timer
	expiresAt time.Time
}

// Pending describes a scheduled action that has not fired yet
type Pending struct {
	Key       string
	ExpiresAt time.Time
}

// Scheduler keeps at most one pending action per key. Scheduling an existing
// key replaces the previous action.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*entry
	running sync.WaitGroup
	stopped bool
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		timers: make(map[string]*entry),
		logger: logger,
	}
}

// After runs fn once delay has elapsed unless the key is cancelled or replaced first.
func (s *Scheduler) After(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Debug("Scheduler stopped, dropping action", zap.String("key", key))
		return
	}
	if prev, ok := s.timers[key]; ok {
		prev.timer.Stop()
	}

	e := &entry{expiresAt: time.Now().Add(delay)}
	e.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.timers[key] != e {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.running.Add(1)
		s.mu.Unlock()

		defer s.running.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Scheduled action panicked", zap.String("key", key), zap.Any("panic", r))
			}
		}()
		fn()
	})
	s.timers[key] = e
	s.logger.Debug("Scheduled action", zap.String("key", key), zap.Duration("delay", delay))
}

// Cancel drops the pending action for key. Actions already running are not interrupted.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.timers[key]; ok {
		e.timer.Stop()
		delete(s.timers, key)
		s.logger.Debug("Cancelled action", zap.String("key", key))
	}
}

// Pending lists actions that have not fired, ordered by expiry
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Pending, 0, len(s.timers))
	for key, e := range s.timers {
		result = append(result, Pending{Key: key, ExpiresAt: e.expiresAt})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result
}

// Stop cancels every pending action, refuses new ones and waits for running actions to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for _, e := range s.timers {
		e.timer.Stop()
	}
	count := len(s.timers)
	s.timers = make(map[string]*entry)
	s.mu.Unlock()

	s.running.Wait()
	s.logger.Info("Scheduler stopped", zap.Int("cancelled", count))
}
