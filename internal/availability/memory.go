package availability

import (
	"context"
	"sync"
)

// InMemoryWindowStore is an in-memory WindowStore used in tests.
type InMemoryWindowStore struct {
	mu        sync.RWMutex
	schedules map[string][]DayWindow
}

// NewInMemoryWindowStore creates an empty in-memory window store.
func NewInMemoryWindowStore() *InMemoryWindowStore {
	return &InMemoryWindowStore{schedules: make(map[string][]DayWindow)}
}

func (s *InMemoryWindowStore) ReplaceSchedule(ctx context.Context, orgID string, windows []DayWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]DayWindow, len(windows))
	copy(copied, windows)
	s.schedules[orgID] = copied
	return nil
}

func (s *InMemoryWindowStore) GetWindows(ctx context.Context, orgID string) ([]DayWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	windows := s.schedules[orgID]
	copied := make([]DayWindow, len(windows))
	copy(copied, windows)
	return copied, nil
}
