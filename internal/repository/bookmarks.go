package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"linkly/internal/models"
)

const BookmarksCollection = "bookmarks"

// BookmarkQuery scopes a listing to one user. Search matches title,
// description and url case-insensitively; Tag must be one of the tags.
// A zero Limit means no limit.
type BookmarkQuery struct {
	UserID primitive.ObjectID
	Search string
	Tag    string
	Skip   int64
	Limit  int64
}

// BookmarkUpdate holds the fields to change; nil fields are left alone.
type BookmarkUpdate struct {
	Title       *string
	URL         *string
	Description *string
	Tags        *[]string
	IsArchived  *bool
	IsFavorite  *bool
}

type BookmarkRepo struct {
	coll *mongo.Collection
}

func NewBookmarkRepo(db *mongo.Database) *BookmarkRepo {
	return &BookmarkRepo{coll: db.Collection(BookmarksCollection)}
}

func bookmarkFilter(q BookmarkQuery) bson.M {
	filter := bson.M{"userId": q.UserID}

	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := regexp.QuoteMeta(search)
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
			{"url": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	if tag := strings.TrimSpace(q.Tag); tag != "" {
		filter["tags"] = tag
	}

	return filter
}

func bookmarkUpdateDoc(u BookmarkUpdate, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.URL != nil {
		set["url"] = *u.URL
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Tags != nil {
		set["tags"] = models.NewStringList(*u.Tags)
	}
	if u.IsArchived != nil {
		set["isArchived"] = *u.IsArchived
	}
	if u.IsFavorite != nil {
		set["isFavorite"] = *u.IsFavorite
	}
	return bson.M{"$set": set}
}

// Find returns matching bookmarks, newest first.
func (r *BookmarkRepo) Find(ctx context.Context, q BookmarkQuery) ([]models.Bookmark, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := r.coll.Find(ctx, bookmarkFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	bookmarks := make([]models.Bookmark, 0)
	if err := cursor.All(ctx, &bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// Count ignores Skip and Limit.
func (r *BookmarkRepo) Count(ctx context.Context, q BookmarkQuery) (int64, error) {
	return r.coll.CountDocuments(ctx, bookmarkFilter(q))
}

func (r *BookmarkRepo) FindOne(ctx context.Context, id, userID primitive.ObjectID) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	if err := r.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&bookmark); err != nil {
		return nil, translate(err)
	}
	return &bookmark, nil
}

// ExistsURL reports whether userID already saved url. A non-zero excludeID
// skips that bookmark, so an update can keep its own url.
func (r *BookmarkRepo) ExistsURL(ctx context.Context, userID primitive.ObjectID, url string, excludeID primitive.ObjectID) (bool, error) {
	filter := bson.M{"userId": userID, "url": url}
	if !excludeID.IsZero() {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	err := r.coll.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

func (r *BookmarkRepo) Insert(ctx context.Context, bookmark *models.Bookmark) error {
	now := time.Now().UTC()
	if bookmark.ID.IsZero() {
		bookmark.ID = primitive.NewObjectID()
	}
	if bookmark.Tags == nil {
		bookmark.Tags = models.StringList{}
	}
	bookmark.CreatedAt = now
	bookmark.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, bookmark)
	return translate(err)
}

// Update applies u and returns the updated document.
func (r *BookmarkRepo) Update(ctx context.Context, id, userID primitive.ObjectID, u BookmarkUpdate) (*models.Bookmark, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var bookmark models.Bookmark
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "userId": userID},
		bookmarkUpdateDoc(u, time.Now().UTC()),
		opts,
	).Decode(&bookmark)
	if err != nil {
		return nil, translate(err)
	}
	return &bookmark, nil
}

func (r *BookmarkRepo) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BookmarkRepo) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"userId": userID})
}
