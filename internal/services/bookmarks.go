package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkly/internal/apperr"
	"linkly/internal/events"
	"linkly/internal/metadata"
	"linkly/internal/models"
	"linkly/internal/repository"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type CreateBookmarkInput struct {
	Title       string
	URL         string
	Description string
	Tags        []string
}

// UpdateBookmarkInput changes only the non-nil fields.
type UpdateBookmarkInput struct {
	Title       *string
	URL         *string
	Description *string
	Tags        *[]string
	IsArchived  *bool
	IsFavorite  *bool
}

// ListFilter narrows a listing. Empty fields match everything.
type ListFilter struct {
	Search string
	Tag    string
}

type ListParams struct {
	Page   int64
	Limit  int64
	Search string
	Tag    string
}

type BookmarkPage struct {
	Bookmarks []models.Bookmark `json:"bookmarks"`
	Total     int64             `json:"total"`
	Page      int64             `json:"page"`
	Limit     int64             `json:"limit"`
	Pages     int64             `json:"pages"`
}

type BookmarkOptions struct {
	Publisher events.Publisher
	Logger    *slog.Logger
}

type BookmarkService struct {
	store     BookmarkStore
	extractor metadata.Extractor
	publisher events.Publisher
	logger    *slog.Logger
}

func NewBookmarkService(store BookmarkStore, extractor metadata.Extractor, opts BookmarkOptions) *BookmarkService {
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &BookmarkService{
		store:     store,
		extractor: extractor,
		publisher: opts.Publisher,
		logger:    opts.Logger,
	}
}

func parseBookmarkID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("Invalid bookmark id", apperr.CodeValidation)
	}
	return oid, nil
}

func bookmarkNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Bookmark not found", apperr.CodeResourceNotFound)
	}
	return err
}

func duplicateURL() error {
	return apperr.BadRequest("Bookmark with this URL already exists", apperr.CodeBookmarkDuplicateURL)
}

// List returns the user's bookmarks matching f, newest first.
func (s *BookmarkService) List(ctx context.Context, id *Identity, f ListFilter) ([]models.Bookmark, error) {
	return s.store.Find(ctx, repository.BookmarkQuery{UserID: id.UserID, Search: f.Search, Tag: f.Tag})
}

func (s *BookmarkService) ListPage(ctx context.Context, id *Identity, p ListParams) (*BookmarkPage, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Page-1 > math.MaxInt64/p.Limit {
		return nil, apperr.BadRequest("page is out of range", apperr.CodeValidation)
	}

	q := repository.BookmarkQuery{
		UserID: id.UserID,
		Search: p.Search,
		Tag:    p.Tag,
		Skip:   (p.Page - 1) * p.Limit,
		Limit:  p.Limit,
	}

	bookmarks, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	return &BookmarkPage{
		Bookmarks: bookmarks,
		Total:     total,
		Page:      p.Page,
		Limit:     p.Limit,
		Pages:     (total + p.Limit - 1) / p.Limit,
	}, nil
}

func (s *BookmarkService) Get(ctx context.Context, id *Identity, bookmarkID string) (*models.Bookmark, error) {
	oid, err := parseBookmarkID(bookmarkID)
	if err != nil {
		return nil, err
	}

	bookmark, err := s.store.FindOne(ctx, oid, id.UserID)
	if err != nil {
		return nil, bookmarkNotFound(err)
	}
	return bookmark, nil
}

// Create rejects a url the user already saved, then enriches the bookmark
// with page metadata. A missing title falls back to the page title and then
// to the url itself.
func (s *BookmarkService) Create(ctx context.Context, id *Identity, in CreateBookmarkInput) (*models.Bookmark, error) {
	url := strings.TrimSpace(in.URL)

	exists, err := s.store.ExistsURL(ctx, id.UserID, url, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, duplicateURL()
	}

	var meta models.BookmarkMetadata
	if s.extractor != nil {
		meta = s.extractor.Extract(ctx, url)
	}

	bookmark := &models.Bookmark{
		Title:       firstNonBlank(in.Title, meta.Title, url),
		URL:         url,
		Description: firstNonBlank(in.Description, meta.Description),
		Tags:        models.NewStringList(in.Tags),
		UserID:      id.UserID,
		Metadata:    meta,
	}
	if err := s.store.Insert(ctx, bookmark); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.New(events.BookmarkCreated, id.UserID.Hex(), bookmark))
	return bookmark, nil
}

func (s *BookmarkService) Update(ctx context.Context, id *Identity, bookmarkID string, in UpdateBookmarkInput) (*models.Bookmark, error) {
	oid, err := parseBookmarkID(bookmarkID)
	if err != nil {
		return nil, err
	}

	if in.URL != nil {
		url := strings.TrimSpace(*in.URL)
		in.URL = &url

		exists, err := s.store.ExistsURL(ctx, id.UserID, url, oid)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, duplicateURL()
		}
	}

	bookmark, err := s.store.Update(ctx, oid, id.UserID, repository.BookmarkUpdate{
		Title:       in.Title,
		URL:         in.URL,
		Description: in.Description,
		Tags:        in.Tags,
		IsArchived:  in.IsArchived,
		IsFavorite:  in.IsFavorite,
	})
	if err != nil {
		return nil, bookmarkNotFound(err)
	}

	publish(ctx, s.publisher, s.logger, events.New(events.BookmarkUpdated, id.UserID.Hex(), bookmark))
	return bookmark, nil
}

func (s *BookmarkService) Delete(ctx context.Context, id *Identity, bookmarkID string) error {
	oid, err := parseBookmarkID(bookmarkID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, oid, id.UserID); err != nil {
		return bookmarkNotFound(err)
	}

	publish(ctx, s.publisher, s.logger, events.New(events.BookmarkDeleted, id.UserID.Hex(), map[string]string{"id": oid.Hex()}))
	return nil
}

// Search matches query against title, description and url, ignoring case.
// An empty query matches everything.
func (s *BookmarkService) Search(ctx context.Context, id *Identity, query string) ([]models.Bookmark, error) {
	return s.List(ctx, id, ListFilter{Search: query})
}

func (s *BookmarkService) ByTag(ctx context.Context, id *Identity, tag string) ([]models.Bookmark, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, apperr.BadRequest("Tag parameter is required", apperr.CodeValidation)
	}
	return s.List(ctx, id, ListFilter{Tag: tag})
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
