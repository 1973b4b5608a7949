// Package services holds the account and bookmark use cases. Handlers call
// services; services talk to stores through the interfaces below.
package services

//go:generate mockgen -source=stores.go -destination=mocks/stores.go -package=mocks

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"linkly/internal/models"
	"linkly/internal/repository"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByID must not load the password hash.
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type RefreshTokenStore interface {
	Create(ctx context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllByUser(ctx context.Context, userID primitive.ObjectID) error
}

// SessionReplacer is implemented by token stores that can swap a user's
// session in a single atomic operation.
type SessionReplacer interface {
	ReplaceForUser(ctx context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error
}

type BookmarkCounter interface {
	CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type BookmarkStore interface {
	BookmarkCounter
	Find(ctx context.Context, q repository.BookmarkQuery) ([]models.Bookmark, error)
	Count(ctx context.Context, q repository.BookmarkQuery) (int64, error)
	FindOne(ctx context.Context, id, userID primitive.ObjectID) (*models.Bookmark, error)
	ExistsURL(ctx context.Context, userID primitive.ObjectID, url string, excludeID primitive.ObjectID) (bool, error)
	Insert(ctx context.Context, bookmark *models.Bookmark) error
	Update(ctx context.Context, id, userID primitive.ObjectID, u repository.BookmarkUpdate) (*models.Bookmark, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}
