package flags

import (
	"context"
	"sync"
)

// MemoryStore is a process-local flag store.
type MemoryStore struct {
	mu      sync.RWMutex
	percent int
}

func NewMemoryStore(initial int) (*MemoryStore, error) {
	if err := ValidatePercent(initial); err != nil {
		return nil, err
	}
	return &MemoryStore{percent: initial}, nil
}

func (s *MemoryStore) Get(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.percent, nil
}

func (s *MemoryStore) Set(_ context.Context, percent int) error {
	if err := ValidatePercent(percent); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percent = percent
	return nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, old, new int) (bool, error) {
	if err := ValidatePercent(new); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.percent != old {
		return false, nil
	}
	s.percent = new
	return true, nil
}
