package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"linkly/internal/apperr"
	"linkly/internal/events"
	"linkly/internal/models"
	"linkly/internal/repository"
	"linkly/internal/repository/memory"
	"linkly/internal/services/mocks"
)

type stubExtractor struct {
	meta  models.BookmarkMetadata
	calls int
}

func (s *stubExtractor) Extract(context.Context, string) models.BookmarkMetadata {
	s.calls++
	return s.meta
}

func newBookmarkFixture() (*BookmarkService, *stubExtractor, *recordingPublisher, *Identity) {
	extractor := &stubExtractor{}
	pub := &recordingPublisher{}
	svc := NewBookmarkService(memory.NewBookmarkStore(), extractor, BookmarkOptions{Publisher: pub})
	return svc, extractor, pub, &Identity{UserID: primitive.NewObjectID(), Email: "owner@example.com"}
}

func TestCreateBookmarkUsesMetadataFallbacks(t *testing.T) {
	svc, extractor, pub, owner := newBookmarkFixture()
	ctx := context.Background()

	extractor.meta = models.BookmarkMetadata{Title: "Scraped Title", Description: "Scraped description"}
	b, err := svc.Create(ctx, owner, CreateBookmarkInput{URL: "https://go.dev", Tags: []string{"go", " go ", ""}})
	require.NoError(t, err)
	assert.Equal(t, "Scraped Title", b.Title)
	assert.Equal(t, "Scraped description", b.Description)
	assert.Equal(t, models.StringList{"go"}, b.Tags)
	assert.Equal(t, owner.UserID, b.UserID)
	assert.False(t, b.ID.IsZero())

	extractor.meta = models.BookmarkMetadata{}
	b, err = svc.Create(ctx, owner, CreateBookmarkInput{URL: "https://unreachable.example"})
	require.NoError(t, err)
	assert.Equal(t, "https://unreachable.example", b.Title)
	assert.Empty(t, b.Description)
	assert.NotNil(t, b.Tags)

	extractor.meta = models.BookmarkMetadata{Title: "Ignored"}
	b, err = svc.Create(ctx, owner, CreateBookmarkInput{Title: "Mine", Description: "Also mine", URL: "https://gin-gonic.com"})
	require.NoError(t, err)
	assert.Equal(t, "Mine", b.Title)
	assert.Equal(t, "Also mine", b.Description)
	assert.Equal(t, "Ignored", b.Metadata.Title)

	assert.Equal(t, []events.Type{events.BookmarkCreated, events.BookmarkCreated, events.BookmarkCreated}, pub.types())
}

func TestCreateBookmarkRejectsDuplicateURL(t *testing.T) {
	svc, extractor, _, owner := newBookmarkFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, owner, CreateBookmarkInput{Title: "Go", URL: "https://go.dev"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, owner, CreateBookmarkInput{Title: "Go again", URL: "https://go.dev"})
	requireKind(t, err, apperr.KindBadRequest, apperr.CodeBookmarkDuplicateURL)
	assert.Equal(t, 1, extractor.calls)

	other := &Identity{UserID: primitive.NewObjectID()}
	_, err = svc.Create(ctx, other, CreateBookmarkInput{Title: "Go", URL: "https://go.dev"})
	assert.NoError(t, err)
}

func TestBookmarksAreScopedToOwner(t *testing.T) {
	svc, _, _, owner := newBookmarkFixture()
	ctx := context.Background()
	intruder := &Identity{UserID: primitive.NewObjectID()}

	b, err := svc.Create(ctx, owner, CreateBookmarkInput{Title: "Private", URL: "https://private.example"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, intruder, b.ID.Hex())
	requireKind(t, err, apperr.KindNotFound, apperr.CodeResourceNotFound)

	title := "Hijacked"
	_, err = svc.Update(ctx, intruder, b.ID.Hex(), UpdateBookmarkInput{Title: &title})
	requireKind(t, err, apperr.KindNotFound, apperr.CodeResourceNotFound)

	err = svc.Delete(ctx, intruder, b.ID.Hex())
	requireKind(t, err, apperr.KindNotFound, apperr.CodeResourceNotFound)

	list, err := svc.List(ctx, intruder, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := svc.Get(ctx, owner, b.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
}

func TestUpdateBookmark(t *testing.T) {
	svc, _, pub, owner := newBookmarkFixture()
	ctx := context.Background()

	first, err := svc.Create(ctx, owner, CreateBookmarkInput{Title: "Go", URL: "https://go.dev"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, owner, CreateBookmarkInput{Title: "Gin", URL: "https://gin-gonic.com"})
	require.NoError(t, err)

	taken := "https://go.dev"
	_, err = svc.Update(ctx, owner, second.ID.Hex(), UpdateBookmarkInput{URL: &taken})
	requireKind(t, err, apperr.KindBadRequest, apperr.CodeBookmarkDuplicateURL)

	same := " https://go.dev "
	fav := true
	tags := []string{"lang"}
	updated, err := svc.Update(ctx, owner, first.ID.Hex(), UpdateBookmarkInput{URL: &same, IsFavorite: &fav, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev", updated.URL)
	assert.Equal(t, "Go", updated.Title)
	assert.True(t, updated.IsFavorite)
	assert.Equal(t, models.StringList{"lang"}, updated.Tags)

	_, err = svc.Update(ctx, owner, "not-an-id", UpdateBookmarkInput{IsFavorite: &fav})
	requireKind(t, err, apperr.KindBadRequest, apperr.CodeValidation)

	assert.Contains(t, pub.types(), events.BookmarkUpdated)
}

func TestDeleteBookmark(t *testing.T) {
	svc, _, pub, owner := newBookmarkFixture()
	ctx := context.Background()

	b, err := svc.Create(ctx, owner, CreateBookmarkInput{Title: "Go", URL: "https://go.dev"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, b.ID.Hex()))
	err = svc.Delete(ctx, owner, b.ID.Hex())
	requireKind(t, err, apperr.KindNotFound, apperr.CodeResourceNotFound)

	assert.Equal(t, []events.Type{events.BookmarkCreated, events.BookmarkDeleted}, pub.types())
}

func TestSearchAndTags(t *testing.T) {
	svc, _, _, owner := newBookmarkFixture()
	ctx := context.Background()

	for _, in := range []CreateBookmarkInput{
		{Title: "Go blog", URL: "https://go.dev/blog", Tags: []string{"go"}},
		{Title: "Mongo", URL: "https://mongodb.com", Description: "Document DATABASE", Tags: []string{"db"}},
		{Title: "Regex (advanced)", URL: "https://regex101.com", Tags: []string{"go", "tools"}},
	} {
		_, err := svc.Create(ctx, owner, in)
		require.NoError(t, err)
	}

	found, err := svc.Search(ctx, owner, "database")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Mongo", found[0].Title)

	found, err = svc.Search(ctx, owner, "(advanced")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = svc.Search(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	found, err = svc.List(ctx, owner, ListFilter{Search: "go", Tag: "go"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Go blog", found[0].Title)

	tagged, err := svc.ByTag(ctx, owner, "go")
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	_, err = svc.ByTag(ctx, owner, " ")
	requireKind(t, err, apperr.KindBadRequest, apperr.CodeValidation)
}

func TestListPage(t *testing.T) {
	svc, _, _, owner := newBookmarkFixture()
	ctx := context.Background()

	for _, url := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		_, err := svc.Create(ctx, owner, CreateBookmarkInput{Title: url, URL: url})
		require.NoError(t, err)
	}

	page, err := svc.ListPage(ctx, owner, ListParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.EqualValues(t, 2, page.Pages)
	assert.Len(t, page.Bookmarks, 1)
	assert.Equal(t, "https://a.example", page.Bookmarks[0].URL)

	page, err = svc.ListPage(ctx, owner, ListParams{Page: 0, Limit: 1000})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Page)
	assert.EqualValues(t, MaxPageLimit, page.Limit)
	assert.EqualValues(t, 1, page.Pages)

	page, err = svc.ListPage(ctx, &Identity{UserID: primitive.NewObjectID()}, ListParams{})
	require.NoError(t, err)
	assert.Zero(t, page.Pages)
	assert.NotNil(t, page.Bookmarks)
}

func TestListPageRejectsOverflowingPage(t *testing.T) {
	svc, _, _, owner := newBookmarkFixture()

	_, err := svc.ListPage(context.Background(), owner, ListParams{Page: math.MaxInt64, Limit: 2})
	requireKind(t, err, apperr.KindBadRequest, apperr.CodeValidation)
}

func TestCreateBookmarkStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockBookmarkStore(ctrl)
	owner := &Identity{UserID: primitive.NewObjectID()}

	store.EXPECT().ExistsURL(gomock.Any(), owner.UserID, "https://go.dev", primitive.NilObjectID).Return(false, nil)
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	svc := NewBookmarkService(store, nil, BookmarkOptions{})
	_, err := svc.Create(context.Background(), owner, CreateBookmarkInput{URL: "https://go.dev"})

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.From(err).Kind)
}

func TestUpdateBookmarkSkipsURLCheckWhenURLUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockBookmarkStore(ctrl)
	owner := &Identity{UserID: primitive.NewObjectID()}
	id := primitive.NewObjectID()

	archived := true
	store.EXPECT().
		Update(gomock.Any(), id, owner.UserID, repository.BookmarkUpdate{IsArchived: &archived}).
		Return(&models.Bookmark{ID: id, IsArchived: true}, nil)

	svc := NewBookmarkService(store, nil, BookmarkOptions{})
	b, err := svc.Update(context.Background(), owner, id.Hex(), UpdateBookmarkInput{IsArchived: &archived})
	require.NoError(t, err)
	assert.True(t, b.IsArchived)
}
