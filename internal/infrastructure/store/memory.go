package store

import (
	"context"
	"sync"
	"time"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
)

// runItem is a stored run with its expiry
type runItem struct {
	Run        *domain.RunResult
	Expiration time.Time
}

// MemoryStore is a thread-safe in-memory run store with TTL support.
// Stored runs are shared; callers must treat them as read-only and Save a
// modified copy instead.
type MemoryStore struct {
	data  map[string]runItem
	mutex sync.RWMutex
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a store that drops expired runs every cleanupInterval
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]runItem),
		now:  time.Now,
		done: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go s.cleanupExpired(cleanupInterval)
	}

	return s
}

// Get retrieves a run by ID
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.RunResult, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.data[id]
	if !exists || s.now().After(item.Expiration) {
		return nil, domain.ErrRunNotFound
	}

	return item.Run, nil
}

// Save stores a run under its ID for ttl
func (s *MemoryStore) Save(ctx context.Context, run *domain.RunResult, ttl time.Duration) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidRequest
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[run.ID] = runItem{
		Run:        run,
		Expiration: s.now().Add(ttl),
	}
	return nil
}

// Delete removes a run
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, id)
	return nil
}

// Stop ends the cleanup goroutine
func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.done) })
}

// cleanupExpired removes expired runs periodically
func (s *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *MemoryStore) purge() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for id, item := range s.data {
		if now.After(item.Expiration) {
			delete(s.data, id)
		}
	}
}

// Size returns the current number of runs held (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}
