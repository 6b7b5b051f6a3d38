package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process local Store. Expired entries are invisible to
// Exists immediately and are physically removed by Cleanup.
type MemoryStore struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	nowFunc func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(nowFunc func() time.Time) *MemoryStore {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &MemoryStore{
		revoked: make(map[string]time.Time),
		nowFunc: nowFunc,
	}
}

func (s *MemoryStore) Add(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[key] = s.nowFunc().Add(ttl)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.revoked[key]
	if !ok {
		return false, nil
	}
	return s.nowFunc().Before(exp), nil
}

// Cleanup removes expired entries and returns how many were dropped.
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	removed := 0
	for key, exp := range s.revoked {
		if !now.Before(exp) {
			delete(s.revoked, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}
