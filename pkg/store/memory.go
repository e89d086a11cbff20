package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the schema in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	text string
	set  bool
}

// NewMemoryStore returns an empty store. Pass DefaultSchema to seed it.
func NewMemoryStore(seed ...string) *MemoryStore {
	s := &MemoryStore{}
	if len(seed) > 0 {
		s.text, s.set = seed[0], true
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return "", ErrNotFound
	}
	return s.text, nil
}

func (s *MemoryStore) Set(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text, s.set = text, true
	return nil
}
