// Package favourites keeps each user's set of saved carpark numbers.
package favourites

import (
	"context"
	"slices"
	"sync"
)

// Store persists favourite carpark numbers per user. List returns numbers sorted.
type Store interface {
	Add(ctx context.Context, user, number string) error
	Remove(ctx context.Context, user, number string) error
	Contains(ctx context.Context, user, number string) (bool, error)
	List(ctx context.Context, user string) ([]string, error)
	Clear(ctx context.Context, user string) error
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	sets map[string]map[string]struct{}
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, user, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[user]
	if !ok {
		set = make(map[string]struct{})
		s.sets[user] = set
	}
	set[number] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, user, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[user]
	if !ok {
		return nil
	}
	delete(set, number)
	if len(set) == 0 {
		delete(s.sets, user)
	}
	return nil
}

func (s *MemoryStore) Contains(_ context.Context, user, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sets[user][number]
	return ok, nil
}

func (s *MemoryStore) List(_ context.Context, user string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	numbers := make([]string, 0, len(s.sets[user]))
	for number := range s.sets[user] {
		numbers = append(numbers, number)
	}
	slices.Sort(numbers)
	return numbers, nil
}

func (s *MemoryStore) Clear(_ context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sets, user)
	return nil
}
