package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkly/internal/apperr"
	"linkly/internal/auth"
	"linkly/internal/events"
	"linkly/internal/models"
	"linkly/internal/repository"
)

// Identity is the account an access token resolved to. The gate returns it
// and handlers receive it as a parameter.
type Identity struct {
	UserID primitive.ObjectID
	Name   string
	Email  string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

type AuthOptions struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Publisher  events.Publisher
	Logger     *slog.Logger
}

// AuthService owns the session slot: a user holds at most one refresh token,
// and every register or login replaces it.
type AuthService struct {
	users      UserStore
	tokens     RefreshTokenStore
	bookmarks  BookmarkCounter
	codec      *auth.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	publisher  events.Publisher
	logger     *slog.Logger
}

func NewAuthService(users UserStore, tokens RefreshTokenStore, bookmarks BookmarkCounter, codec *auth.Codec, opts AuthOptions) *AuthService {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 10 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		bookmarks:  bookmarks,
		codec:      codec,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		publisher:  opts.Publisher,
		logger:     opts.Logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperr.Conflict("Email already registered", apperr.CodeEmailAlreadyExists)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Email already registered", apperr.CodeEmailAlreadyExists)
		}
		return nil, err
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.Hex())
	publish(ctx, s.publisher, s.logger, events.New(events.UserRegistered, user.ID.Hex(), user.Public()))
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("User not found", apperr.CodeUserNotFound)
	}
	if err != nil {
		return nil, err
	}

	if !user.ComparePassword(in.Password) {
		return nil, apperr.Unauthorized("Invalid credentials", apperr.CodeInvalidCredentials)
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, events.New(events.UserLoggedIn, user.ID.Hex(), nil))
	return result, nil
}

// RefreshAccessToken exchanges a stored refresh token for a new access token.
// The refresh token itself is not rotated.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", apperr.BadRequest("No refresh token provided", apperr.CodeRefreshTokenNotFound)
	}

	if _, err := s.tokens.FindByToken(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.Unauthorized("Invalid refresh token", apperr.CodeInvalidToken)
		}
		return "", err
	}

	subject, ok := s.codec.Verify(refreshToken)
	if !ok {
		if err := s.tokens.DeleteByToken(ctx, refreshToken); err != nil {
			return "", err
		}
		return "", apperr.Unauthorized("Expired or invalid refresh token", apperr.CodeExpiredToken)
	}

	return s.codec.Issue(subject, s.accessTTL)
}

// Logout is idempotent: unknown or already revoked tokens succeed silently.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return apperr.BadRequest("No refresh token provided", apperr.CodeRefreshTokenNotFound)
	}

	record, err := s.tokens.FindByToken(ctx, refreshToken)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if err := s.tokens.DeleteByToken(ctx, refreshToken); err != nil {
		return err
	}

	if record != nil {
		publish(ctx, s.publisher, s.logger, events.New(events.UserLoggedOut, record.UserID.Hex(), nil))
	}
	return nil
}

// LogoutAll revokes every refresh token of the caller.
func (s *AuthService) LogoutAll(ctx context.Context, id *Identity) error {
	if err := s.tokens.DeleteAllByUser(ctx, id.UserID); err != nil {
		return err
	}
	publish(ctx, s.publisher, s.logger, events.New(events.UserLoggedOut, id.UserID.Hex(), map[string]bool{"all": true}))
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.Profile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *AuthService) GetProfileWithStats(ctx context.Context, userID primitive.ObjectID) (*models.ProfileWithStats, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var total int64
	if s.bookmarks != nil {
		if total, err = s.bookmarks.CountByUser(ctx, userID); err != nil {
			return nil, err
		}
	}

	return &models.ProfileWithStats{
		Profile: user.Profile(),
		Stats: models.ProfileStats{
			TotalBookmarks: total,
			MemberSince:    user.CreatedAt,
		},
	}, nil
}

// Authenticate resolves the Authorization header of a request to an identity.
// It consults only the token signature and the user store, never the refresh
// token store.
func (s *AuthService) Authenticate(ctx context.Context, authorization string) (*Identity, error) {
	token, ok := auth.ExtractBearer(authorization)
	if !ok {
		return nil, apperr.Unauthorized("No token provided", apperr.CodeUnauthorized)
	}

	subject, ok := s.codec.Verify(token)
	if !ok {
		return nil, apperr.Unauthorized("Invalid or expired access token", apperr.CodeInvalidToken)
	}

	userID, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired access token", apperr.CodeInvalidToken)
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("User not found", apperr.CodeUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	return &Identity{UserID: user.ID, Name: user.Name, Email: user.Email}, nil
}

func (s *AuthService) findUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("User not found", apperr.CodeUserNotFound)
	}
	return user, err
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	subject := user.ID.Hex()

	accessToken, err := s.codec.Issue(subject, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.Issue(subject, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	if err := s.replaceSession(ctx, user.ID, refreshToken, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user.Public(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// replaceSession prefers the store's atomic swap. Stores without one get the
// delete-then-insert sequence, which can briefly leave two records when two
// logins for the same user interleave.
func (s *AuthService) replaceSession(ctx context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error {
	if r, ok := s.tokens.(SessionReplacer); ok {
		return r.ReplaceForUser(ctx, userID, token, expiresAt)
	}
	if err := s.tokens.DeleteAllByUser(ctx, userID); err != nil {
		return err
	}
	return s.tokens.Create(ctx, userID, token, expiresAt)
}
