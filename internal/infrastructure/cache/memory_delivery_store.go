package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

const defaultSweepInterval = 5 * time.Minute

// MemoryDeliveryStore remembers accepted webhook deliveries in process memory.
// It only deduplicates redeliveries that reach the same instance.
type MemoryDeliveryStore struct {
	mu        sync.Mutex
	expiry    map[string]time.Time
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryDeliveryStore creates a store and starts its expiry sweeper
func NewMemoryDeliveryStore() *MemoryDeliveryStore {
	return newMemoryDeliveryStore(time.Now, defaultSweepInterval)
}

func newMemoryDeliveryStore(now func() time.Time, sweepEvery time.Duration) *MemoryDeliveryStore {
	s := &MemoryDeliveryStore{
		expiry: make(map[string]time.Time),
		now:    now,
		stop:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(sweepEvery)
	return s
}

// MarkProcessed records a delivery id. It returns false if the id was
// already recorded and has not expired.
func (s *MemoryDeliveryStore) MarkProcessed(_ context.Context, deliveryKey string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiry[deliveryKey]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiry[deliveryKey] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether a delivery id is currently recorded
func (s *MemoryDeliveryStore) IsProcessed(_ context.Context, deliveryKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiry[deliveryKey]
	return ok && s.now().Before(exp), nil
}

// Release forgets a delivery id
func (s *MemoryDeliveryStore) Release(_ context.Context, deliveryKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiry, deliveryKey)
	return nil
}

// Len returns the number of recorded ids, expired ones included until swept
func (s *MemoryDeliveryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiry)
}

// Close stops the sweeper. It is safe to call more than once.
func (s *MemoryDeliveryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *MemoryDeliveryStore) sweepLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryDeliveryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.expiry {
		if !now.Before(exp) {
			delete(s.expiry, key)
		}
	}
}

var _ shared.IdempotencyStore = (*MemoryDeliveryStore)(nil)
