package database

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"linkly/internal/repository"
)

// RefreshTokenSweepGrace is how long an expired refresh token record is kept
// before the TTL monitor removes it. Until then a refresh with it is reported
// as expired rather than unknown.
const RefreshTokenSweepGrace = 24 * time.Hour

func ensureIndexes(db *mongo.Database, collection string, models []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		slog.Error("index creation failed", "collection", collection, "error", err)
		return err
	}
	slog.Info("indexes ready", "collection", collection, "indexes", names)
	return nil
}

func EnsureUserIndexes(db *mongo.Database) error {
	return ensureIndexes(db, repository.UsersCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
	})
}

// EnsureRefreshTokenIndexes backs the one-session-per-user slot with a unique
// userId index. The TTL index only sweeps records nobody logged out of, and
// only after RefreshTokenSweepGrace so token expiry stays the codec's call.
func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	return ensureIndexes(db, repository.RefreshTokensCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetName("tokenHash_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").
				SetExpireAfterSeconds(int32(RefreshTokenSweepGrace / time.Second)),
		},
	})
}

func EnsureBookmarkIndexes(db *mongo.Database) error {
	return ensureIndexes(db, repository.BookmarksCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "url", Value: 1}},
			Options: options.Index().SetName("userId_url"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "tags", Value: 1}},
			Options: options.Index().SetName("userId_tags"),
		},
	})
}

// EnsureIndexes creates every index the stores rely on.
func EnsureIndexes(db *mongo.Database) error {
	for _, ensure := range []func(*mongo.Database) error{
		EnsureUserIndexes,
		EnsureRefreshTokenIndexes,
		EnsureBookmarkIndexes,
	} {
		if err := ensure(db); err != nil {
			return err
		}
	}
	return nil
}
