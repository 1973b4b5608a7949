// Package memory provides in-process stores with the same semantics as the
// MongoDB repositories. They back the server when no MONGO_URI is configured
// and keep service and handler tests free of a database.
package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkly/internal/models"
	"linkly/internal/repository"
)

type UserStore struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]models.User
	byEmail map[string]primitive.ObjectID
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[primitive.ObjectID]models.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := s.byID[id]
	return &user, nil
}

func (s *UserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user.PasswordHash = ""
	return &user, nil
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return repository.ErrDuplicate
	}

	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	s.byID[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

// Delete removes a user. Only tests use it, to simulate an account that
// disappears while its tokens are still valid.
func (s *UserStore) Delete(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byID[id]; ok {
		delete(s.byEmail, user.Email)
		delete(s.byID, id)
	}
}
