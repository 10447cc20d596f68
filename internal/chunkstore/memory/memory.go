package memory

import (
	"context"
	"sync"

	"chapterqa/internal/chunkstore"
	"chapterqa/internal/domain"
)

// Storage keeps chunk sets in process memory. Sets are copied on the way
// in and out so callers can never mutate stored state.
type Storage struct {
	mu   sync.RWMutex
	sets map[domain.DocumentIdentity]*domain.ChunkSet
}

func NewStorage() *Storage {
	return &Storage{sets: make(map[domain.DocumentIdentity]*domain.ChunkSet)}
}

func (s *Storage) Get(_ context.Context, id domain.DocumentIdentity) (*domain.ChunkSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets[id].Clone(), nil
}

func (s *Storage) Put(_ context.Context, set *domain.ChunkSet) error {
	if err := chunkstore.ValidateSet(set); err != nil {
		return err
	}
	cp := set.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set.Identity] = cp
	return nil
}

// Len returns the number of stored sets.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

func (s *Storage) Close() error { return nil }
