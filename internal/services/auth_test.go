package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"linkly/internal/apperr"
	"linkly/internal/auth"
	"linkly/internal/events"
	"linkly/internal/models"
	"linkly/internal/repository"
	"linkly/internal/repository/memory"
	"linkly/internal/services/mocks"
)

const testSecret = "test-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type authFixture struct {
	svc       *AuthService
	users     *memory.UserStore
	tokens    *memory.RefreshTokenStore
	bookmarks *memory.BookmarkStore
	codec     *auth.Codec
	events    *recordingPublisher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:     memory.NewUserStore(),
		tokens:    memory.NewRefreshTokenStore(),
		bookmarks: memory.NewBookmarkStore(),
		codec:     auth.NewCodec(testSecret),
		events:    &recordingPublisher{},
	}
	f.svc = NewAuthService(f.users, f.tokens, f.bookmarks, f.codec, AuthOptions{
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Publisher:  f.events,
	})
	return f
}

func (f *authFixture) register(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: "Test User", Email: email, Password: "password123"})
	require.NoError(t, err)
	return res
}

func requireKind(t *testing.T, err error, kind apperr.Kind, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	appErr := apperr.From(err)
	assert.Equal(t, kind, appErr.Kind, err.Error())
	assert.Equal(t, code, appErr.Code)
}

func TestRegisterThenLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg := f.register(t, "test@example.com")
	assert.Equal(t, "test@example.com", reg.User.Email)
	assert.Equal(t, "Test User", reg.User.Name)

	login, err := f.svc.Login(ctx, LoginInput{Email: "test@example.com", Password: "password123"})
	require.NoError(t, err)

	for _, tok := range []string{reg.AccessToken, login.AccessToken} {
		subject, ok := f.codec.Verify(tok)
		require.True(t, ok)
		assert.Equal(t, reg.User.ID, subject)
	}
	assert.NotEqual(t, reg.AccessToken, login.AccessToken)
	assert.Equal(t, []events.Type{events.UserRegistered, events.UserLoggedIn}, f.events.types())
}

func TestRegisterNormalizesEmail(t *testing.T) {
	f := newAuthFixture(t)

	f.register(t, "  Mixed@Example.COM ")

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "mixed@example.com", Password: "password123"})
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first := f.register(t, "dup@example.com")

	_, err := f.svc.Register(ctx, RegisterInput{Name: "Someone Else", Email: "dup@example.com", Password: "otherpass"})
	requireKind(t, err, apperr.KindConflict, apperr.CodeEmailAlreadyExists)

	oid, _ := primitive.ObjectIDFromHex(first.User.ID)
	profile, err := f.svc.GetProfile(ctx, oid)
	require.NoError(t, err)
	assert.Equal(t, "Test User", profile.Name)

	_, err = f.svc.Login(ctx, LoginInput{Email: "dup@example.com", Password: "password123"})
	assert.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "user@example.com")

	_, err := f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	requireKind(t, err, apperr.KindNotFound, apperr.CodeUserNotFound)

	_, err = f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "wrongpassword"})
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeInvalidCredentials)
}

func TestLoginKeepsSingleSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg := f.register(t, "single@example.com")
	userID, _ := primitive.ObjectIDFromHex(reg.User.ID)

	var last *AuthResult
	for i := 0; i < 3; i++ {
		res, err := f.svc.Login(ctx, LoginInput{Email: "single@example.com", Password: "password123"})
		require.NoError(t, err)
		last = res

		n, err := f.tokens.CountByUser(ctx, userID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	}

	_, err := f.svc.RefreshAccessToken(ctx, reg.RefreshToken)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeInvalidToken)

	_, err = f.svc.RefreshAccessToken(ctx, last.RefreshToken)
	assert.NoError(t, err)
}

func TestConcurrentLoginsLeaveOneSession(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "race@example.com")
	userID, _ := primitive.ObjectIDFromHex(reg.User.ID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Login(context.Background(), LoginInput{Email: "race@example.com", Password: "password123"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := f.tokens.CountByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRefreshAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg := f.register(t, "refresh@example.com")
	login, err := f.svc.Login(ctx, LoginInput{Email: "refresh@example.com", Password: "password123"})
	require.NoError(t, err)

	access, err := f.svc.RefreshAccessToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, access)

	subject, ok := f.codec.Verify(access)
	require.True(t, ok)
	assert.Equal(t, reg.User.ID, subject)

	// Refresh tokens are reusable until they expire or are replaced.
	_, err = f.svc.RefreshAccessToken(ctx, login.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshAccessTokenFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg := f.register(t, "fail@example.com")
	userID, _ := primitive.ObjectIDFromHex(reg.User.ID)

	_, err := f.svc.RefreshAccessToken(ctx, "")
	requireKind(t, err, apperr.KindBadRequest, apperr.CodeRefreshTokenNotFound)

	neverIssued, err := f.codec.Issue(reg.User.ID, time.Hour)
	require.NoError(t, err)
	_, err = f.svc.RefreshAccessToken(ctx, neverIssued)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeInvalidToken)
	assert.Equal(t, "Invalid refresh token", err.Error())

	expired, err := f.codec.Issue(reg.User.ID, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.tokens.ReplaceForUser(ctx, userID, expired, time.Now().Add(time.Hour)))

	_, err = f.svc.RefreshAccessToken(ctx, expired)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeExpiredToken)
	assert.Equal(t, "Expired or invalid refresh token", err.Error())

	_, err = f.tokens.FindByToken(ctx, expired)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRefreshAccessTokenForgedTokenIsRemoved(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg := f.register(t, "forged@example.com")
	userID, _ := primitive.ObjectIDFromHex(reg.User.ID)

	forged, err := auth.NewCodec("other-secret").Issue(reg.User.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Create(ctx, userID, forged, time.Now().Add(time.Hour)))

	_, err = f.svc.RefreshAccessToken(ctx, forged)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeExpiredToken)

	_, err = f.tokens.FindByToken(ctx, forged)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg := f.register(t, "logout@example.com")

	require.NoError(t, f.svc.Logout(ctx, reg.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, reg.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, "never-issued"))

	_, err := f.svc.RefreshAccessToken(ctx, reg.RefreshToken)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeInvalidToken)

	err = f.svc.Logout(ctx, "  ")
	requireKind(t, err, apperr.KindBadRequest, apperr.CodeRefreshTokenNotFound)

	assert.Equal(t, []events.Type{events.UserRegistered, events.UserLoggedOut}, f.events.types())
}

func TestLogoutAll(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg := f.register(t, "all@example.com")

	id, err := f.svc.Authenticate(ctx, "Bearer "+reg.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.LogoutAll(ctx, id))

	n, err := f.tokens.CountByUser(ctx, id.UserID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProfileNeverExposesPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg := f.register(t, "profile@example.com")
	userID, _ := primitive.ObjectIDFromHex(reg.User.ID)

	require.NoError(t, f.bookmarks.Insert(ctx, &models.Bookmark{Title: "Go", URL: "https://go.dev", UserID: userID}))

	profile, err := f.svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "profile@example.com", profile.Email)

	stats, err := f.svc.GetProfileWithStats(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Stats.TotalBookmarks)
	assert.Equal(t, stats.CreatedAt, stats.Stats.MemberSince)

	for _, v := range []any{profile, stats, reg} {
		body, err := json.Marshal(v)
		require.NoError(t, err)
		assert.NotContains(t, strings.ToLower(string(body)), "password")
	}

	_, err = f.svc.GetProfile(ctx, primitive.NewObjectID())
	requireKind(t, err, apperr.KindNotFound, apperr.CodeUserNotFound)
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	reg := f.register(t, "gate@example.com")

	id, err := f.svc.Authenticate(ctx, "Bearer "+reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id.UserID.Hex())
	assert.Equal(t, "gate@example.com", id.Email)

	_, err = f.svc.Authenticate(ctx, "")
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeUnauthorized)

	_, err = f.svc.Authenticate(ctx, reg.AccessToken)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeUnauthorized)

	expired, _ := f.codec.Issue(reg.User.ID, -time.Second)
	_, err = f.svc.Authenticate(ctx, "Bearer "+expired)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeInvalidToken)

	notAnID, _ := f.codec.Issue("not-an-object-id", time.Minute)
	_, err = f.svc.Authenticate(ctx, "Bearer "+notAnID)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeInvalidToken)

	f.users.Delete(id.UserID)
	_, err = f.svc.Authenticate(ctx, "Bearer "+reg.AccessToken)
	requireKind(t, err, apperr.KindUnauthorized, apperr.CodeUnauthorized)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newAuthFixture(t)
	f.events.err = errors.New("broker down")

	f.register(t, "broker@example.com")
	assert.Len(t, f.events.types(), 1)
}

func TestRegisterPropagatesStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	tokens := mocks.NewMockRefreshTokenStore(ctrl)

	users.EXPECT().FindByEmail(gomock.Any(), "x@example.com").Return(nil, errors.New("socket closed"))

	svc := NewAuthService(users, tokens, nil, auth.NewCodec(testSecret), AuthOptions{})
	_, err := svc.Register(context.Background(), RegisterInput{Name: "X", Email: "x@example.com", Password: "password123"})

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.From(err).Kind)
}

func TestRegisterMapsDuplicateInsertToConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	tokens := mocks.NewMockRefreshTokenStore(ctrl)

	users.EXPECT().FindByEmail(gomock.Any(), "race@example.com").Return(nil, repository.ErrNotFound)
	users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(repository.ErrDuplicate)

	svc := NewAuthService(users, tokens, nil, auth.NewCodec(testSecret), AuthOptions{})
	_, err := svc.Register(context.Background(), RegisterInput{Name: "X", Email: "race@example.com", Password: "password123"})

	requireKind(t, err, apperr.KindConflict, apperr.CodeEmailAlreadyExists)
}

func TestLoginFallsBackToDeleteThenCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	tokens := mocks.NewMockRefreshTokenStore(ctrl)

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &models.User{ID: primitive.NewObjectID(), Name: "Fallback", Email: "fb@example.com", PasswordHash: hash}

	users.EXPECT().FindByEmail(gomock.Any(), "fb@example.com").Return(user, nil)
	gomock.InOrder(
		tokens.EXPECT().DeleteAllByUser(gomock.Any(), user.ID).Return(nil),
		tokens.EXPECT().Create(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).Return(nil),
	)

	svc := NewAuthService(users, tokens, nil, auth.NewCodec(testSecret), AuthOptions{})
	res, err := svc.Login(context.Background(), LoginInput{Email: "fb@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), res.User.ID)
}

func TestRefreshDoesNotHideDeleteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	tokens := mocks.NewMockRefreshTokenStore(ctrl)

	expired, err := auth.NewCodec(testSecret).Issue(primitive.NewObjectID().Hex(), -time.Minute)
	require.NoError(t, err)

	tokens.EXPECT().FindByToken(gomock.Any(), expired).Return(&models.RefreshToken{}, nil)
	tokens.EXPECT().DeleteByToken(gomock.Any(), expired).Return(errors.New("write concern timeout"))

	svc := NewAuthService(users, tokens, nil, auth.NewCodec(testSecret), AuthOptions{})
	_, err = svc.RefreshAccessToken(context.Background(), expired)

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.From(err).Kind)
}

func TestProfileStatsPropagatesCountFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	counter := mocks.NewMockBookmarkCounter(ctrl)

	userID := primitive.NewObjectID()
	users.EXPECT().FindByID(gomock.Any(), userID).Return(&models.User{ID: userID}, nil)
	counter.EXPECT().CountByUser(gomock.Any(), userID).Return(int64(0), errors.New("timeout"))

	svc := NewAuthService(users, mocks.NewMockRefreshTokenStore(ctrl), counter, auth.NewCodec(testSecret), AuthOptions{})
	_, err := svc.GetProfileWithStats(context.Background(), userID)
	assert.Error(t, err)
}
