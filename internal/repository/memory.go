package repository

import (
	"context"
	"sync"

	"github.com/authgate/authgate-go/internal/model"
)

// MemoryStore implements AccountStore in process memory. The email index is
// checked and written under one lock, which makes Insert atomic.
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]*model.Account
	byID    map[string]*model.Account
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byEmail: make(map[string]*model.Account),
		byID:    make(map[string]*model.Account),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, a *model.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[a.Email]; exists {
		return ErrConstraintViolation
	}
	if _, exists := s.byID[a.ID]; exists {
		return ErrDuplicateID
	}

	stored := *a
	s.byEmail[a.Email] = &stored
	s.byID[a.ID] = &stored
	return nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.find(ctx, s.byEmail, email)
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return s.find(ctx, s.byID, id)
}

// Len returns the number of stored accounts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStore) find(ctx context.Context, index map[string]*model.Account, key string) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := index[key]
	if !ok {
		return nil, ErrNoRecord
	}
	found := *a
	return &found, nil
}
