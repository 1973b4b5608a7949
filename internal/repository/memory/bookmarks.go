package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkly/internal/models"
	"linkly/internal/repository"
)

type BookmarkStore struct {
	mu        sync.RWMutex
	bookmarks []models.Bookmark
}

func NewBookmarkStore() *BookmarkStore {
	return &BookmarkStore{}
}

func matches(b models.Bookmark, q repository.BookmarkQuery) bool {
	if b.UserID != q.UserID {
		return false
	}

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		if !strings.Contains(strings.ToLower(b.Title), search) &&
			!strings.Contains(strings.ToLower(b.Description), search) &&
			!strings.Contains(strings.ToLower(b.URL), search) {
			return false
		}
	}

	if tag := strings.TrimSpace(q.Tag); tag != "" {
		found := false
		for _, t := range b.Tags {
			if t == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func clone(b models.Bookmark) models.Bookmark {
	b.Tags = append(models.StringList{}, b.Tags...)
	if b.Metadata.OG != nil {
		og := make(map[string]string, len(b.Metadata.OG))
		for k, v := range b.Metadata.OG {
			og[k] = v
		}
		b.Metadata.OG = og
	}
	return b
}

// Find returns matches newest first. Bookmarks created in the same instant
// keep reverse insertion order.
func (s *BookmarkStore) Find(_ context.Context, q repository.BookmarkQuery) ([]models.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]models.Bookmark, 0)
	for i := len(s.bookmarks) - 1; i >= 0; i-- {
		if matches(s.bookmarks[i], q) {
			found = append(found, clone(s.bookmarks[i]))
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})

	if q.Skip > 0 {
		if q.Skip >= int64(len(found)) {
			return []models.Bookmark{}, nil
		}
		found = found[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(found)) {
		found = found[:q.Limit]
	}
	return found, nil
}

func (s *BookmarkStore) Count(_ context.Context, q repository.BookmarkQuery) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, b := range s.bookmarks {
		if matches(b, q) {
			n++
		}
	}
	return n, nil
}

func (s *BookmarkStore) indexLocked(id, userID primitive.ObjectID) int {
	for i, b := range s.bookmarks {
		if b.ID == id && b.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *BookmarkStore) FindOne(_ context.Context, id, userID primitive.ObjectID) (*models.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id, userID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	b := clone(s.bookmarks[i])
	return &b, nil
}

func (s *BookmarkStore) ExistsURL(_ context.Context, userID primitive.ObjectID, url string, excludeID primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bookmarks {
		if b.UserID == userID && b.URL == url && b.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *BookmarkStore) Insert(_ context.Context, bookmark *models.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if bookmark.ID.IsZero() {
		bookmark.ID = primitive.NewObjectID()
	}
	if bookmark.Tags == nil {
		bookmark.Tags = models.StringList{}
	}
	bookmark.CreatedAt = now
	bookmark.UpdatedAt = now

	s.bookmarks = append(s.bookmarks, clone(*bookmark))
	return nil
}

func (s *BookmarkStore) Update(_ context.Context, id, userID primitive.ObjectID, u repository.BookmarkUpdate) (*models.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id, userID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}

	b := &s.bookmarks[i]
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.URL != nil {
		b.URL = *u.URL
	}
	if u.Description != nil {
		b.Description = *u.Description
	}
	if u.Tags != nil {
		b.Tags = models.NewStringList(*u.Tags)
	}
	if u.IsArchived != nil {
		b.IsArchived = *u.IsArchived
	}
	if u.IsFavorite != nil {
		b.IsFavorite = *u.IsFavorite
	}
	b.UpdatedAt = time.Now().UTC()

	updated := clone(*b)
	return &updated, nil
}

func (s *BookmarkStore) Delete(_ context.Context, id, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id, userID)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.bookmarks = append(s.bookmarks[:i], s.bookmarks[i+1:]...)
	return nil
}

func (s *BookmarkStore) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.Count(ctx, repository.BookmarkQuery{UserID: userID})
}
