package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkly/internal/models"
	"linkly/internal/repository"
)

// RefreshTokenStore keys records by token hash, like the Mongo collection.
type RefreshTokenStore struct {
	mu      sync.Mutex
	records map[string]models.RefreshToken
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{records: make(map[string]models.RefreshToken)}
}

func (s *RefreshTokenStore) record(userID primitive.ObjectID, token string, expiresAt time.Time) models.RefreshToken {
	return models.RefreshToken{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		TokenHash: repository.HashToken(token),
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
}

func (s *RefreshTokenStore) Create(_ context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(userID, token, expiresAt)
	if _, exists := s.records[rec.TokenHash]; exists {
		return repository.ErrDuplicate
	}
	s.records[rec.TokenHash] = rec
	return nil
}

func (s *RefreshTokenStore) FindByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[repository.HashToken(token)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (s *RefreshTokenStore) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, repository.HashToken(token))
	return nil
}

func (s *RefreshTokenStore) DeleteAllByUser(_ context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteUserLocked(userID)
	return nil
}

// ReplaceForUser runs the delete and insert under one lock, so concurrent
// callers always leave exactly one record behind.
func (s *RefreshTokenStore) ReplaceForUser(_ context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteUserLocked(userID)
	rec := s.record(userID, token, expiresAt)
	s.records[rec.TokenHash] = rec
	return nil
}

func (s *RefreshTokenStore) CountByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, rec := range s.records {
		if rec.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *RefreshTokenStore) deleteUserLocked(userID primitive.ObjectID) {
	for hash, rec := range s.records {
		if rec.UserID == userID {
			delete(s.records, hash)
		}
	}
}
