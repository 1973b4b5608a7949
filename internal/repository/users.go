package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"linkly/internal/models"
)

const UsersCollection = "users"

type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection(UsersCollection)}
}

// FindByEmail returns the full user document, password hash included.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByID never loads the password hash.
func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	opts := options.FindOne().SetProjection(bson.M{"passwordHash": 0})

	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Create inserts user and assigns its id and timestamps. A taken email yields
// ErrDuplicate through the email_unique index.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, user)
	return translate(err)
}
