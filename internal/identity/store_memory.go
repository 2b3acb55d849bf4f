package identity

import (
	"context"
	"sort"
	"sync"

	dErrors "benefit-gateway/pkg/domain-errors"
)

type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) Put(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	user.Roles = append([]string{}, user.Roles...)
	return &user, nil
}

func (s *MemoryStore) GetByUpstreamID(_ context.Context, upstreamID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.UpstreamID == upstreamID {
			user.Roles = append([]string{}, user.Roles...)
			return &user, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
}

func (s *MemoryStore) ListUpstreamIDsByRoles(_ context.Context, roles []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, user := range s.users {
		if user.IsSuperAdmin() || !user.HasAnyRole(roles) {
			continue
		}
		ids = append(ids, user.UpstreamID)
	}
	sort.Strings(ids)
	return ids, nil
}
