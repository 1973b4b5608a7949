package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"linkly/internal/models"
)

const RefreshTokensCollection = "refresh_tokens"

type RefreshTokenRepo struct {
	coll *mongo.Collection
}

func NewRefreshTokenRepo(db *mongo.Database) *RefreshTokenRepo {
	return &RefreshTokenRepo{coll: db.Collection(RefreshTokensCollection)}
}

// HashToken is the lookup key stored in place of the token string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newRefreshToken(userID primitive.ObjectID, token string, expiresAt time.Time) models.RefreshToken {
	return models.RefreshToken{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		TokenHash: HashToken(token),
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
}

func (r *RefreshTokenRepo) Create(ctx context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error {
	_, err := r.coll.InsertOne(ctx, newRefreshToken(userID, token, expiresAt))
	return translate(err)
}

func (r *RefreshTokenRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var record models.RefreshToken
	if err := r.coll.FindOne(ctx, bson.M{"tokenHash": HashToken(token)}).Decode(&record); err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// DeleteByToken succeeds whether or not a record matched.
func (r *RefreshTokenRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"tokenHash": HashToken(token)})
	return err
}

func (r *RefreshTokenRepo) DeleteAllByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

// ReplaceForUser atomically swaps the user's session slot for token. The
// userId_unique index keeps concurrent upserts from leaving two records.
func (r *RefreshTokenRepo) ReplaceForUser(ctx context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) error {
	record := newRefreshToken(userID, token, expiresAt)
	update := bson.M{
		"$set": bson.M{
			"tokenHash": record.TokenHash,
			"expiresAt": record.ExpiresAt,
			"createdAt": record.CreatedAt,
		},
		"$setOnInsert": bson.M{"_id": record.ID},
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"userId": userID}, update, options.Update().SetUpsert(true))
	return translate(err)
}

func (r *RefreshTokenRepo) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"userId": userID})
}
