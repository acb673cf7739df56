package storage

import (
	"context"
	"sync"

	"snoowatch/internal/watch"
)

// memoryStore keeps markers for the process lifetime only. Useful in tests
// and for throwaway runs; every target counts as first-observed on startup.
type memoryStore struct {
	mu     sync.Mutex
	states map[string]watch.State
}

func NewMemory() Store {
	return &memoryStore{states: map[string]watch.State{}}
}

func (s *memoryStore) GetState(ctx context.Context, username string) (watch.State, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[username]
	return st, ok, nil
}

func (s *memoryStore) PutState(ctx context.Context, username string, st watch.State) error {
	_ = ctx
	if username == "" {
		return nil
	}
	s.mu.Lock()
	s.states[username] = st
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error { return nil }
