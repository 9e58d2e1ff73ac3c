package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
)

// entry represents a held claim with expiration
type entry struct {
	expiresAt time.Time
}

// InMemoryClaimStore implements ClaimStore using an in-memory map.
// Claims are only visible inside one process.
type InMemoryClaimStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryClaimStore creates a new in-memory claim store
// It starts a background goroutine to clean up expired entries
func NewInMemoryClaimStore() *InMemoryClaimStore {
	store := &InMemoryClaimStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Claim takes key for ttl.
// Returns false if the key is held and has not expired.
func (s *InMemoryClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, exists := s.entries[key]; exists && now.Before(e.expiresAt) {
		return false, nil
	}

	s.entries[key] = entry{expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the claim on key
func (s *InMemoryClaimStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryClaimStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryClaimStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryClaimStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryClaimStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ shared.ClaimStore = (*InMemoryClaimStore)(nil)
